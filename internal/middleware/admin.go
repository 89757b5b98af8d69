package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/pkg/response"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminAuth guards operator endpoints with a shared token. An empty token
// disables every admin route.
func AdminAuth(token string) gin.HandlerFunc {
	expected := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(AdminTokenHeader))
		if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
			logutil.GetLogger(c.Request.Context()).Warn("admin auth rejected",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			)
			response.Unauthorized(c, "invalid admin token")
			return
		}
		c.Next()
	}
}
