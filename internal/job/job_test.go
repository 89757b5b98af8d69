package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type purgerFunc func(ctx context.Context) (int, error)

func (f purgerFunc) PurgeExpired(ctx context.Context) (int, error) { return f(ctx) }

type cleanerFunc func(ctx context.Context) (int64, error)

func (f cleanerFunc) CleanupExpired(ctx context.Context) (int64, error) { return f(ctx) }

func TestAccountPurgeJob(t *testing.T) {
	calls := 0
	job := NewAccountPurgeJob(purgerFunc(func(context.Context) (int, error) {
		calls++
		return 2, nil
	}))
	require.Equal(t, "account_purge", job.Name())
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, calls)

	boom := errors.New("boom")
	job = NewAccountPurgeJob(purgerFunc(func(context.Context) (int, error) { return 1, boom }))
	require.ErrorIs(t, job.Run(context.Background()), boom)

	require.NoError(t, NewAccountPurgeJob(nil).Run(context.Background()))
}

func TestOtpCleanupJob(t *testing.T) {
	job := NewOtpCleanupJob(cleanerFunc(func(context.Context) (int64, error) { return 3, nil }))
	require.Equal(t, "otp_cleanup", job.Name())
	require.NoError(t, job.Run(context.Background()))

	boom := errors.New("boom")
	job = NewOtpCleanupJob(cleanerFunc(func(context.Context) (int64, error) { return 0, boom }))
	require.ErrorIs(t, job.Run(context.Background()), boom)
}
