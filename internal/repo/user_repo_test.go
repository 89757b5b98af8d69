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

func newUser(id, email string, now int64) *model.User {
	return &model.User{
		ID:           id,
		UserName:     "alice",
		Email:        email,
		PasswordHash: "hash",
		Status:       model.UserStatusActive,
		Ctime:        now,
		Mtime:        now,
	}
}

func TestUserRepoCRUD(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := repo.NewUserRepo(db)
	now := timeutil.NowUnix()
	user := newUser("user-1", "alice@example.com", now)
	require.NoError(t, users.Create(ctx, user))
	require.Equal(t, int64(1), user.Version)
	require.ErrorIs(t, users.Create(ctx, newUser("user-2", "alice@example.com", now)), appErr.ErrConflict)

	got, err := users.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, model.UserStatusActive, got.Status)

	stale := *got
	got.Status = model.UserStatusDisabled
	require.NoError(t, users.Save(ctx, got))
	require.Equal(t, int64(2), got.Version)

	stale.UserName = "bob"
	require.ErrorIs(t, users.Save(ctx, &stale), appErr.ErrVersionConflict)

	byID, err := users.GetByID(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, model.UserStatusDisabled, byID.Status)

	require.NoError(t, users.Delete(ctx, "user-1"))
	require.ErrorIs(t, users.Delete(ctx, "user-1"), appErr.ErrNotFound)
	_, err = users.GetByID(ctx, "user-1")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestUserRepoPurge(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	ctx := context.Background()

	users := repo.NewUserRepo(db)
	now := timeutil.NowUnix()
	for i, id := range []string{"due-1", "due-2", "later"} {
		u := newUser(id, id+"@example.com", now)
		require.NoError(t, users.Create(ctx, u))
		u.Status = model.UserStatusSoftDeleted
		u.DeletedAt = now - 100
		u.AutoPurgeAt = now - int64(10-i)
		if id == "later" {
			u.AutoPurgeAt = now + 3600
		}
		require.NoError(t, users.Save(ctx, u))
	}

	due, err := users.ListSoftDeletedBefore(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.Equal(t, "due-1", due[0].ID)

	ok, err := users.DeleteSoftDeletedBefore(ctx, "due-1", now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = users.DeleteSoftDeletedBefore(ctx, "due-1", now)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = users.DeleteSoftDeletedBefore(ctx, "later", now)
	require.NoError(t, err)
	require.False(t, ok)
}
