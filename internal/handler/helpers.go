package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/middleware"
	"github.com/xxxsen/accountd/internal/model"
	"github.com/xxxsen/accountd/internal/pkg/errcode"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/response"
	"github.com/xxxsen/accountd/internal/pkg/timeutil"
)

// businessCodes is checked in order; the first match wins.
var businessCodes = []struct {
	err  error
	code int
}{
	{appErr.ErrInvalidEmail, errcode.ErrInvalidEmail},
	{appErr.ErrAlreadySoftDeleted, errcode.ErrAlreadySoftDeleted},
	{appErr.ErrAlreadyActive, errcode.ErrAlreadyActive},
	{appErr.ErrAlreadyDisabled, errcode.ErrAlreadyDisabled},
	{appErr.ErrAccountDisabled, errcode.ErrAccountDisabled},
	{appErr.ErrAccountDeleted, errcode.ErrAccountDeleted},
	{appErr.ErrNoActiveOtp, errcode.ErrNoActiveOtp},
	{appErr.ErrOtpExpired, errcode.ErrOtpExpired},
	{appErr.ErrCodeMismatch, errcode.ErrCodeMismatch},
	{appErr.ErrAttemptsExhausted, errcode.ErrAttemptsExhausted},
	{appErr.ErrKeyNotFound, errcode.ErrKeyNotFound},
	{appErr.ErrKeyExpired, errcode.ErrKeyExpired},
	{appErr.ErrKeygenFailed, errcode.ErrKeygenFailed},
	{appErr.ErrDecryptionFailed, errcode.ErrDecryptionFailed},
	{appErr.ErrVersionConflict, errcode.ErrVersionConflict},
	{appErr.ErrUnauthorized, errcode.ErrUnauthorized},
	{appErr.ErrForbidden, errcode.ErrForbidden},
	{appErr.ErrNotFound, errcode.ErrNotFound},
	{appErr.ErrConflict, errcode.ErrConflict},
	{appErr.ErrTooMany, errcode.ErrTooMany},
}

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func errCodeOf(err error) int {
	for _, item := range businessCodes {
		if errors.Is(err, item.err) {
			return item.code
		}
	}
	return errcode.ErrUnknown
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	kind := appErr.KindOf(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("kind", kind.String()),
	)
	switch {
	case kind == appErr.KindValidation:
		logger.Debug("request rejected", zap.Error(err))
		response.Invalid(c, "invalid request")
	case kind.Business():
		logger.Info("request failed", zap.Error(err))
		var sde *appErr.SoftDeletedError
		if errors.As(err, &sde) {
			response.ErrorWithData(c, errcode.ErrAlreadySoftDeleted, appErr.ErrAlreadySoftDeleted.Error(), gin.H{
				"auto_purge_at":      sde.AutoPurgeAt,
				"auto_purge_at_text": timeutil.FormatUnix(sde.AutoPurgeAt),
			})
			return
		}
		response.Error(c, errCodeOf(err), businessMessage(err))
	default:
		logger.Error("request error", zap.Error(err))
		response.Fault(c)
	}
}

// businessMessage returns the sentinel text so wrapped detail stays in logs.
func businessMessage(err error) string {
	for _, item := range businessCodes {
		if errors.Is(err, item.err) {
			return item.err.Error()
		}
	}
	return "failed"
}

type userView struct {
	ID          string           `json:"id"`
	UserName    string           `json:"user_name"`
	Email       string           `json:"email"`
	Status      model.UserStatus `json:"status"`
	DeletedAt   string           `json:"deleted_at,omitempty"`
	AutoPurgeAt int64            `json:"auto_purge_at,omitempty"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
}

func toUserView(u *model.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{
		ID:          u.ID,
		UserName:    u.UserName,
		Email:       u.Email,
		Status:      u.Status,
		DeletedAt:   timeutil.FormatUnix(u.DeletedAt),
		AutoPurgeAt: u.AutoPurgeAt,
		CreatedAt:   timeutil.FormatUnix(u.Ctime),
		UpdatedAt:   timeutil.FormatUnix(u.Mtime),
	}
}
