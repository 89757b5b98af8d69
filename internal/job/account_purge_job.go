package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type AccountPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// AccountPurgeJob removes soft deleted accounts whose retention window has
// ended.
type AccountPurgeJob struct {
	accounts AccountPurger
}

func NewAccountPurgeJob(accounts AccountPurger) *AccountPurgeJob {
	return &AccountPurgeJob{accounts: accounts}
}

func (j *AccountPurgeJob) Name() string {
	return "account_purge"
}

func (j *AccountPurgeJob) Run(ctx context.Context) error {
	if j.accounts == nil {
		return nil
	}
	n, err := j.accounts.PurgeExpired(ctx)
	if n > 0 {
		logutil.GetLogger(ctx).Info("expired accounts purged", zap.Int("count", n))
	}
	return err
}
