package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/metrics"
	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/keylock"
	"github.com/xxxsen/accountd/internal/pkg/password"
)

const (
	defaultOtpLength      = 6
	defaultOtpTTL         = 10 * time.Minute
	defaultOtpMaxAttempts = 5
	otpCleanupGrace       = time.Hour
)

type OtpOptions struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
	// Cooldown is the minimum time between two codes for the same email and
	// purpose. Zero disables it.
	Cooldown time.Duration
}

// OtpIssue is the outcome of a generation. Delivered is false when the
// notifier failed; the code stays valid either way.
type OtpIssue struct {
	Code      string `json:"-"`
	ExpiresAt int64  `json:"expires_at"`
	Delivered bool   `json:"delivered"`
}

type OtpService struct {
	store    OtpStore
	notifier Notifier
	opts     OtpOptions
	locks    *keylock.Locker
	now      func() time.Time
	genCode  func(length int) (string, error)
}

func NewOtpService(store OtpStore, notifier Notifier, opts OtpOptions) *OtpService {
	if opts.Length <= 0 {
		opts.Length = defaultOtpLength
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultOtpTTL
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultOtpMaxAttempts
	}
	return &OtpService{
		store:    store,
		notifier: notifier,
		opts:     opts,
		locks:    keylock.New(),
		now:      time.Now,
		genCode:  generateCode,
	}
}

func (s *OtpService) Generate(ctx context.Context, email string, purpose model.OtpPurpose) (*OtpIssue, error) {
	email = normalizeEmail(email)
	if !validEmail(email) || !purpose.Valid() {
		return nil, appErr.ErrInvalid
	}
	unlock := s.locks.Lock(otpLockKey(email, purpose))
	defer unlock()

	now := s.now().Unix()
	if s.opts.Cooldown > 0 {
		prev, err := s.store.Get(ctx, email, purpose)
		switch {
		case err == nil:
			if prev.CreatedAt+int64(s.opts.Cooldown/time.Second) > now {
				return nil, appErr.ErrTooMany
			}
		case !errors.Is(err, appErr.ErrNotFound):
			return nil, appErr.Dependency(err)
		}
	}

	code, err := s.genCode(s.opts.Length)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}
	hash, err := password.Hash(code)
	if err != nil {
		return nil, err
	}
	rec := &model.OtpRecord{
		ID:          newID(),
		Email:       email,
		Purpose:     purpose,
		CodeHash:    hash,
		Status:      model.OtpStatusPending,
		MaxAttempts: s.opts.MaxAttempts,
		CreatedAt:   now,
		ExpiresAt:   now + int64(s.opts.TTL/time.Second),
	}
	if err := s.store.Put(context.WithoutCancel(ctx), rec); err != nil {
		return nil, appErr.Dependency(err)
	}

	issue := &OtpIssue{Code: code, ExpiresAt: rec.ExpiresAt, Delivered: true}
	if s.notifier != nil {
		if err := s.notifier.SendOtp(ctx, email, code, purpose); err != nil {
			issue.Delivered = false
			logutil.GetLogger(ctx).Warn("otp delivery failed",
				zap.String("email", email),
				zap.String("purpose", string(purpose)),
				zap.Error(err),
			)
		}
	}
	metrics.OtpGeneratedTotal.WithLabelValues(string(purpose), fmt.Sprintf("%t", issue.Delivered)).Inc()
	return issue, nil
}

// Verify checks code against the pending record for (email, purpose). A
// match consumes the record. A mismatch costs one attempt; once MaxAttempts
// mismatches are recorded the record answers ErrAttemptsExhausted to every
// later call until it is replaced.
func (s *OtpService) Verify(ctx context.Context, email string, purpose model.OtpPurpose, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || !purpose.Valid() {
		return appErr.ErrInvalid
	}
	unlock := s.locks.Lock(otpLockKey(email, purpose))
	defer unlock()

	err := s.verifyLocked(ctx, email, purpose, code)
	metrics.OtpVerifyTotal.WithLabelValues(string(purpose), metrics.Result(err)).Inc()
	return err
}

func (s *OtpService) verifyLocked(ctx context.Context, email string, purpose model.OtpPurpose, code string) error {
	rec, err := s.store.Get(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return appErr.ErrNoActiveOtp
		}
		return appErr.Dependency(err)
	}
	switch rec.Status {
	case model.OtpStatusExhausted:
		return appErr.ErrAttemptsExhausted
	case model.OtpStatusExpired:
		return appErr.ErrOtpExpired
	}

	wctx := context.WithoutCancel(ctx)
	if s.now().Unix() > rec.ExpiresAt {
		rec.Status = model.OtpStatusExpired
		if err := s.store.Save(wctx, rec); err != nil {
			return appErr.Dependency(err)
		}
		return appErr.ErrOtpExpired
	}
	if rec.AttemptCount >= rec.MaxAttempts {
		rec.Status = model.OtpStatusExhausted
		if err := s.store.Save(wctx, rec); err != nil {
			return appErr.Dependency(err)
		}
		return appErr.ErrAttemptsExhausted
	}
	if err := password.Compare(rec.CodeHash, code); err != nil {
		rec.AttemptCount++
		if rec.AttemptCount >= rec.MaxAttempts {
			rec.Status = model.OtpStatusExhausted
		}
		if err := s.store.Save(wctx, rec); err != nil {
			return appErr.Dependency(err)
		}
		return appErr.ErrCodeMismatch
	}
	if err := s.store.Delete(wctx, rec); err != nil {
		return appErr.Dependency(err)
	}
	return nil
}

// CleanupExpired drops records that expired more than an hour ago.
func (s *OtpService) CleanupExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-otpCleanupGrace).Unix()
	n, err := s.store.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, appErr.Dependency(err)
	}
	return n, nil
}

func otpLockKey(email string, purpose model.OtpPurpose) string {
	return string(purpose) + "|" + email
}

func generateCode(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
