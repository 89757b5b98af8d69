package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"

	"github.com/xxxsen/accountd/internal/pkg/errcode"
)

type codeErr struct {
	code uint32
	msg  string
}

func (e codeErr) Error() string {
	return e.msg
}

func (e codeErr) Code() uint32 {
	return e.code
}

func AsCodeErr(code uint32, msg string) error {
	return codeErr{code: code, msg: msg}
}

func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes a business failure. The request itself succeeded, so the
// HTTP status stays 200 and the outcome is carried by code.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, http.StatusOK, AsCodeErr(uint32(code), message))
}

// ErrorWithData is Error with a payload describing the failure.
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.AbortWithStatusJSON(http.StatusOK, &proxyutil.CommonResponse{
		Code:    uint32(code),
		Message: message,
		Data:    data,
	})
}

// Invalid rejects a malformed request.
func Invalid(c *gin.Context, message string) {
	proxyutil.FailJson(c, http.StatusBadRequest, AsCodeErr(errcode.ErrInvalid, message))
}

// Unauthorized rejects a request without valid credentials.
func Unauthorized(c *gin.Context, message string) {
	proxyutil.FailJson(c, http.StatusUnauthorized, AsCodeErr(errcode.ErrUnauthorized, message))
}

// Fault reports an infrastructure failure.
func Fault(c *gin.Context) {
	proxyutil.FailJson(c, http.StatusInternalServerError, AsCodeErr(errcode.ErrInternal, "internal error"))
}
