package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/test/testutil"
)

const testRetention = 30 * 24 * time.Hour

type accountFixture struct {
	svc   *AccountService
	users *testutil.MemUserStore
	clock *fakeClock
}

func newAccountFixture(t *testing.T, emails ...string) *accountFixture {
	t.Helper()
	f := &accountFixture{users: testutil.NewMemUserStore(), clock: newFakeClock()}
	f.svc = NewAccountService(f.users, testRetention, 2)
	f.svc.now = f.clock.Now
	now := f.clock.Now().Unix()
	for _, email := range emails {
		require.NoError(t, f.users.Create(context.Background(), &model.User{
			ID:       newID(),
			UserName: email,
			Email:    email,
			Status:   model.UserStatusActive,
			Ctime:    now,
			Mtime:    now,
		}))
	}
	return f
}

func (f *accountFixture) status(t *testing.T, email string) model.UserStatus {
	t.Helper()
	u, err := f.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return u.Status
}

func TestAccount_SoftDeleteThenRestore(t *testing.T) {
	f := newAccountFixture(t, aliceEmail)
	ctx := context.Background()

	u, err := f.svc.SoftDelete(ctx, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, model.UserStatusSoftDeleted, u.Status)
	require.Equal(t, f.clock.Now().Unix(), u.DeletedAt)
	require.Equal(t, f.clock.Now().Add(testRetention).Unix(), u.AutoPurgeAt)

	f.clock.Advance(testRetention - time.Second)
	u, err = f.svc.Restore(ctx, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, model.UserStatusActive, u.Status)
	require.Zero(t, u.DeletedAt)
	require.Zero(t, u.AutoPurgeAt)
	require.Equal(t, model.UserStatusActive, f.status(t, aliceEmail))
}

func TestAccount_RestoreAfterPurgeTime(t *testing.T) {
	f := newAccountFixture(t, aliceEmail)
	ctx := context.Background()

	_, err := f.svc.SoftDelete(ctx, aliceEmail)
	require.NoError(t, err)
	f.clock.Advance(testRetention)

	_, err = f.svc.Restore(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrInvalidEmail)
	require.Equal(t, 0, f.users.Len())
}

func TestAccount_DoubleSoftDeleteCarriesPurgeTime(t *testing.T) {
	f := newAccountFixture(t, aliceEmail)
	ctx := context.Background()

	first, err := f.svc.SoftDelete(ctx, aliceEmail)
	require.NoError(t, err)
	_, err = f.svc.SoftDelete(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAlreadySoftDeleted)
	var sde *appErr.SoftDeletedError
	require.True(t, errors.As(err, &sde))
	require.Equal(t, first.AutoPurgeAt, sde.AutoPurgeAt)
}

func TestAccount_DisableEnable(t *testing.T) {
	f := newAccountFixture(t, aliceEmail)
	ctx := context.Background()

	u, err := f.svc.Disable(ctx, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, model.UserStatusDisabled, u.Status)
	version := u.Version

	_, err = f.svc.Disable(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAlreadyDisabled)
	stored, err := f.users.GetByEmail(ctx, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, model.UserStatusDisabled, stored.Status)
	require.Equal(t, version, stored.Version)

	_, err = f.svc.SoftDelete(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAccountDisabled)
	_, err = f.svc.Restore(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAccountDisabled)

	u, err = f.svc.Enable(ctx, aliceEmail)
	require.NoError(t, err)
	require.Equal(t, model.UserStatusActive, u.Status)
	_, err = f.svc.Enable(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAlreadyActive)
}

func TestAccount_IllegalFromSoftDeleted(t *testing.T) {
	f := newAccountFixture(t, aliceEmail)
	ctx := context.Background()
	_, err := f.svc.SoftDelete(ctx, aliceEmail)
	require.NoError(t, err)

	_, err = f.svc.Disable(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAlreadySoftDeleted)
	_, err = f.svc.Enable(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAlreadySoftDeleted)
	_, err = f.svc.Restore(ctx, aliceEmail)
	require.NoError(t, err)
	_, err = f.svc.Restore(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrAlreadyActive)
}

func TestAccount_HardDelete(t *testing.T) {
	f := newAccountFixture(t, aliceEmail, "bob@example.com")
	ctx := context.Background()

	require.ErrorIs(t, f.svc.HardDelete(ctx, "nobody@example.com"), appErr.ErrInvalidEmail)

	_, err := f.svc.Disable(ctx, "bob@example.com")
	require.NoError(t, err)
	require.NoError(t, f.svc.HardDelete(ctx, "bob@example.com"))
	require.NoError(t, f.svc.HardDelete(ctx, aliceEmail))
	require.Equal(t, 0, f.users.Len())

	require.ErrorIs(t, f.svc.HardDelete(ctx, aliceEmail), appErr.ErrInvalidEmail)
}

func TestAccount_MissingAndInvalid(t *testing.T) {
	f := newAccountFixture(t)
	ctx := context.Background()

	_, err := f.svc.SoftDelete(ctx, aliceEmail)
	require.ErrorIs(t, err, appErr.ErrInvalidEmail)
	_, err = f.svc.Get(ctx, "  ")
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestAccount_PurgeExpired(t *testing.T) {
	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	f := newAccountFixture(t, emails...)
	ctx := context.Background()

	for _, email := range emails[:3] {
		_, err := f.svc.SoftDelete(ctx, email)
		require.NoError(t, err)
	}
	f.clock.Advance(time.Hour)
	_, err := f.svc.SoftDelete(ctx, emails[3])
	require.NoError(t, err)

	n, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	f.clock.Advance(testRetention - time.Minute)
	n, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, 2, f.users.Len())

	n, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = f.svc.Restore(ctx, emails[3])
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	n, err = f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Equal(t, model.UserStatusActive, f.status(t, emails[3]))
}

func TestAccount_StoreFailureIsDependency(t *testing.T) {
	f := newAccountFixture(t, aliceEmail)
	f.users.Err = errors.New("db down")
	_, err := f.svc.Disable(context.Background(), aliceEmail)
	require.ErrorIs(t, err, appErr.ErrDependency)
	_, err = f.svc.PurgeExpired(context.Background())
	require.ErrorIs(t, err, appErr.ErrDependency)
}

func TestAccount_ConcurrentTransitionsAndPurge(t *testing.T) {
	group := func(prefix string) []string {
		out := make([]string, 4)
		for i := range out {
			out[i] = fmt.Sprintf("%s%d@example.com", prefix, i)
		}
		return out
	}
	due, fresh, active := group("due"), group("fresh"), group("active")
	f := newAccountFixture(t, append(append(append([]string{}, due...), fresh...), active...)...)
	ctx := context.Background()

	for _, email := range due {
		_, err := f.svc.SoftDelete(ctx, email)
		require.NoError(t, err)
	}
	f.clock.Advance(testRetention)
	for _, email := range fresh {
		_, err := f.svc.SoftDelete(ctx, email)
		require.NoError(t, err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		failures = append(failures, err)
	}
	for i := 0; i < 4; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			if _, err := f.svc.PurgeExpired(ctx); err != nil {
				fail(err)
			}
		}()
		go func(email string) {
			defer wg.Done()
			if _, err := f.svc.Restore(ctx, email); !errors.Is(err, appErr.ErrInvalidEmail) {
				fail(fmt.Errorf("restore %s: %v", email, err))
			}
		}(due[i])
		go func(email string) {
			defer wg.Done()
			if _, err := f.svc.Restore(ctx, email); err != nil {
				fail(fmt.Errorf("restore %s: %w", email, err))
			}
		}(fresh[i])
		go func(email string) {
			defer wg.Done()
			if _, err := f.svc.SoftDelete(ctx, email); err != nil {
				fail(fmt.Errorf("soft delete %s: %w", email, err))
			}
		}(active[i])
	}
	wg.Wait()

	require.Empty(t, failures)
	require.Equal(t, len(fresh)+len(active), f.users.Len())
	for _, email := range fresh {
		require.Equal(t, model.UserStatusActive, f.status(t, email))
	}
	for _, email := range active {
		require.Equal(t, model.UserStatusSoftDeleted, f.status(t, email))
	}
}
