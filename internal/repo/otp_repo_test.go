package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/timeutil"
	"github.com/xxxsen/accountd/internal/repo"
	"github.com/xxxsen/accountd/test/testutil"
)

func newOtp(id string, now int64) *model.OtpRecord {
	return &model.OtpRecord{
		ID:          id,
		Email:       "alice@example.com",
		Purpose:     model.OtpPurposeLoginUnlock,
		CodeHash:    "hash",
		Status:      model.OtpStatusPending,
		MaxAttempts: 5,
		CreatedAt:   now,
		ExpiresAt:   now + 600,
	}
}

func TestOtpRepoUpsertAndVersioning(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()

	otps := repo.NewOtpRepo(db)
	now := timeutil.NowUnix()
	first := newOtp("otp-1", now)
	require.NoError(t, otps.Put(ctx, first))
	require.Equal(t, int64(1), first.Version)

	second := newOtp("otp-2", now)
	require.NoError(t, otps.Put(ctx, second))
	require.Equal(t, int64(2), second.Version)

	got, err := otps.Get(ctx, "alice@example.com", model.OtpPurposeLoginUnlock)
	require.NoError(t, err)
	require.Equal(t, "otp-2", got.ID)

	// The replaced record can no longer be written.
	require.ErrorIs(t, otps.Save(ctx, first), appErr.ErrVersionConflict)

	got.AttemptCount = 1
	require.NoError(t, otps.Save(ctx, got))
	require.Equal(t, int64(3), got.Version)

	require.NoError(t, otps.Delete(ctx, got))
	_, err = otps.Get(ctx, "alice@example.com", model.OtpPurposeLoginUnlock)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestOtpRepoDeleteExpiredBefore(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()

	otps := repo.NewOtpRepo(db)
	now := timeutil.NowUnix()
	old := newOtp("otp-old", now-7200)
	old.Email = "old@example.com"
	require.NoError(t, otps.Put(ctx, old))
	require.NoError(t, otps.Put(ctx, newOtp("otp-new", now)))

	n, err := otps.DeleteExpiredBefore(ctx, now-3600)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}
