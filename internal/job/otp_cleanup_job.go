package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type OtpCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

type OtpCleanupJob struct {
	otp OtpCleaner
}

func NewOtpCleanupJob(otp OtpCleaner) *OtpCleanupJob {
	return &OtpCleanupJob{otp: otp}
}

func (j *OtpCleanupJob) Name() string {
	return "otp_cleanup"
}

func (j *OtpCleanupJob) Run(ctx context.Context) error {
	if j.otp == nil {
		return nil
	}
	n, err := j.otp.CleanupExpired(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logutil.GetLogger(ctx).Info("expired otp records removed", zap.Int64("count", n))
	}
	return nil
}
