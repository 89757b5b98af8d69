package service

import (
	"context"
	"errors"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/metrics"
	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/keylock"
)

const (
	defaultRetention  = 30 * 24 * time.Hour
	defaultPurgeBatch = 100
)

const (
	actionSoftDelete = "soft_delete"
	actionRestore    = "restore"
	actionDisable    = "disable"
	actionEnable     = "enable"
	actionHardDelete = "hard_delete"
)

// AccountService owns the account status machine:
//
//	active -> soft_deleted -> active (restore before auto purge)
//	active -> disabled -> active
//	any    -> removed (hard delete, or auto purge of soft_deleted)
type AccountService struct {
	users      UserStore
	retention  time.Duration
	purgeBatch int
	locks      *keylock.Locker
	now        func() time.Time
}

func NewAccountService(users UserStore, retention time.Duration, purgeBatch int) *AccountService {
	if retention <= 0 {
		retention = defaultRetention
	}
	if purgeBatch <= 0 {
		purgeBatch = defaultPurgeBatch
	}
	return &AccountService{
		users:      users,
		retention:  retention,
		purgeBatch: purgeBatch,
		locks:      keylock.New(),
		now:        time.Now,
	}
}

// Get loads an account. A soft deleted account past its purge time is
// removed on the spot and reported as ErrInvalidEmail.
func (s *AccountService) Get(ctx context.Context, email string) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, appErr.ErrInvalid
	}
	unlock := s.locks.Lock(email)
	defer unlock()
	return s.load(ctx, email)
}

func (s *AccountService) SoftDelete(ctx context.Context, email string) (*model.User, error) {
	return s.transition(ctx, actionSoftDelete, email, func(u *model.User, now int64) error {
		switch u.Status {
		case model.UserStatusSoftDeleted:
			return &appErr.SoftDeletedError{AutoPurgeAt: u.AutoPurgeAt}
		case model.UserStatusDisabled:
			return appErr.ErrAccountDisabled
		}
		u.Status = model.UserStatusSoftDeleted
		u.DeletedAt = now
		u.AutoPurgeAt = now + int64(s.retention/time.Second)
		return nil
	})
}

func (s *AccountService) Restore(ctx context.Context, email string) (*model.User, error) {
	return s.transition(ctx, actionRestore, email, func(u *model.User, now int64) error {
		switch u.Status {
		case model.UserStatusActive:
			return appErr.ErrAlreadyActive
		case model.UserStatusDisabled:
			return appErr.ErrAccountDisabled
		}
		u.Status = model.UserStatusActive
		u.DeletedAt = 0
		u.AutoPurgeAt = 0
		return nil
	})
}

func (s *AccountService) Disable(ctx context.Context, email string) (*model.User, error) {
	return s.transition(ctx, actionDisable, email, func(u *model.User, now int64) error {
		switch u.Status {
		case model.UserStatusDisabled:
			return appErr.ErrAlreadyDisabled
		case model.UserStatusSoftDeleted:
			return &appErr.SoftDeletedError{AutoPurgeAt: u.AutoPurgeAt}
		}
		u.Status = model.UserStatusDisabled
		return nil
	})
}

func (s *AccountService) Enable(ctx context.Context, email string) (*model.User, error) {
	return s.transition(ctx, actionEnable, email, func(u *model.User, now int64) error {
		switch u.Status {
		case model.UserStatusActive:
			return appErr.ErrAlreadyActive
		case model.UserStatusSoftDeleted:
			return &appErr.SoftDeletedError{AutoPurgeAt: u.AutoPurgeAt}
		}
		u.Status = model.UserStatusActive
		return nil
	})
}

func (s *AccountService) HardDelete(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return appErr.ErrInvalid
	}
	unlock := s.locks.Lock(email)
	defer unlock()

	err := func() error {
		user, err := s.load(ctx, email)
		if err != nil {
			return err
		}
		if err := s.users.Delete(context.WithoutCancel(ctx), user.ID); err != nil {
			if errors.Is(err, appErr.ErrNotFound) {
				return appErr.ErrInvalidEmail
			}
			return appErr.Dependency(err)
		}
		return nil
	}()
	s.record(ctx, actionHardDelete, email, err)
	return err
}

// PurgeExpired removes every soft deleted account whose purge time has
// passed and returns how many were removed. Each delete re-checks the status
// in the store, so an account restored in the meantime is kept and running
// the sweep twice is harmless.
func (s *AccountService) PurgeExpired(ctx context.Context) (int, error) {
	logger := logutil.GetLogger(ctx)
	purged := 0
	for {
		now := s.now().Unix()
		batch, err := s.users.ListSoftDeletedBefore(ctx, now, s.purgeBatch)
		if err != nil {
			return purged, appErr.Dependency(err)
		}
		removed := 0
		for i := range batch {
			ok, err := s.purgeOne(ctx, &batch[i], now)
			if err != nil {
				return purged, err
			}
			if ok {
				removed++
				logger.Info("account purged", zap.String("user_id", batch[i].ID))
			}
		}
		purged += removed
		if len(batch) < s.purgeBatch || removed == 0 {
			return purged, nil
		}
	}
}

func (s *AccountService) purgeOne(ctx context.Context, user *model.User, now int64) (bool, error) {
	unlock := s.locks.Lock(user.Email)
	defer unlock()
	ok, err := s.users.DeleteSoftDeletedBefore(context.WithoutCancel(ctx), user.ID, now)
	if err != nil {
		return false, appErr.Dependency(err)
	}
	if ok {
		metrics.AccountsPurgedTotal.Inc()
	}
	return ok, nil
}

func (s *AccountService) transition(ctx context.Context, action, email string, apply func(u *model.User, now int64) error) (*model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, appErr.ErrInvalid
	}
	unlock := s.locks.Lock(email)
	defer unlock()

	user, err := func() (*model.User, error) {
		user, err := s.load(ctx, email)
		if err != nil {
			return nil, err
		}
		now := s.now().Unix()
		if err := apply(user, now); err != nil {
			return nil, err
		}
		user.Mtime = now
		if err := s.users.Save(context.WithoutCancel(ctx), user); err != nil {
			return nil, appErr.Dependency(err)
		}
		return user, nil
	}()
	s.record(ctx, action, email, err)
	return user, err
}

// load must be called with the email lock held.
func (s *AccountService) load(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrInvalidEmail
		}
		return nil, appErr.Dependency(err)
	}
	now := s.now().Unix()
	if user.PurgeDue(now) {
		if _, err := s.users.DeleteSoftDeletedBefore(context.WithoutCancel(ctx), user.ID, now); err != nil {
			return nil, appErr.Dependency(err)
		}
		metrics.AccountsPurgedTotal.Inc()
		logutil.GetLogger(ctx).Info("account purged on access", zap.String("user_id", user.ID))
		return nil, appErr.ErrInvalidEmail
	}
	return user, nil
}

func (s *AccountService) record(ctx context.Context, action, email string, err error) {
	metrics.AccountTransitionsTotal.WithLabelValues(action, metrics.Result(err)).Inc()
	if err != nil && !appErr.KindOf(err).Business() {
		logutil.GetLogger(ctx).Error("account transition failed",
			zap.String("action", action),
			zap.String("email", email),
			zap.Error(err),
		)
		return
	}
	if err == nil {
		logutil.GetLogger(ctx).Info("account transition", zap.String("action", action), zap.String("email", email))
	}
}
