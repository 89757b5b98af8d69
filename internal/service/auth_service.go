package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/accountd/internal/metrics"
	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
	"github.com/xxxsen/accountd/internal/pkg/jwt"
	"github.com/xxxsen/accountd/internal/pkg/password"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxUserNameLen = 64
)

// dummyPasswordHash is compared against when the email is unknown, so a
// failed login costs one bcrypt compare whether or not the account exists.
var dummyPasswordHash = sync.OnceValue(func() string {
	hash, err := password.Hash("accountd-unknown-user")
	if err != nil {
		return ""
	}
	return hash
})

type RegisterInput struct {
	UserName  string
	Email     string
	Password  string
	KeyHandle string
	Code      string
}

type LoginInput struct {
	Email     string
	Password  string
	KeyHandle string
}

type ResetPasswordInput struct {
	Email     string
	Code      string
	Password  string
	KeyHandle string
}

type AuthService struct {
	users      UserStore
	accounts   *AccountService
	keys       *KeyIssuer
	unsealer   *CredentialUnsealer
	otp        *OtpService
	jwtSecret  []byte
	jwtTTL     time.Duration
	requireOTP bool
	now        func() time.Time
}

func NewAuthService(users UserStore, accounts *AccountService, keys *KeyIssuer, otp *OtpService, secret []byte, ttl time.Duration, requireOTP bool) *AuthService {
	return &AuthService{
		users:      users,
		accounts:   accounts,
		keys:       keys,
		unsealer:   NewCredentialUnsealer(keys),
		otp:        otp,
		jwtSecret:  secret,
		jwtTTL:     ttl,
		requireOTP: requireOTP,
		now:        time.Now,
	}
}

func (s *AuthService) IssueTransportKey(ctx context.Context) (*model.TransportKey, error) {
	return s.keys.Issue(ctx)
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	email := normalizeEmail(in.Email)
	userName := strings.TrimSpace(in.UserName)
	if !validEmail(email) || userName == "" || utf8.RuneCountInString(userName) > maxUserNameLen || in.KeyHandle == "" || in.Password == "" {
		return nil, "", appErr.ErrInvalid
	}
	if s.requireOTP && strings.TrimSpace(in.Code) == "" {
		return nil, "", appErr.ErrInvalid
	}
	plain, err := s.unsealer.UnsealWithHandle(ctx, in.KeyHandle, in.Password)
	if err != nil {
		return nil, "", err
	}
	if err := checkPassword(plain); err != nil {
		return nil, "", err
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, "", err
	}
	if s.requireOTP {
		if err := s.otp.Verify(ctx, email, model.OtpPurposeRegistrationVerify, in.Code); err != nil {
			return nil, "", err
		}
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return nil, "", err
	}
	now := s.now().Unix()
	user := &model.User{
		ID:           newID(),
		UserName:     userName,
		Email:        email,
		PasswordHash: hash,
		Status:       model.UserStatusActive,
		Version:      1,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(context.WithoutCancel(ctx), user); err != nil {
		if errors.Is(err, appErr.ErrConflict) {
			return nil, "", appErr.ErrConflict
		}
		return nil, "", appErr.Dependency(err)
	}
	metrics.RegistrationsTotal.Inc()
	logutil.GetLogger(ctx).Info("user registered", zap.String("user_id", user.ID))
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*model.User, string, error) {
	user, token, err := s.login(ctx, in)
	metrics.LoginAttemptsTotal.WithLabelValues(metrics.Result(err)).Inc()
	return user, token, err
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (*model.User, string, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.KeyHandle == "" || in.Password == "" {
		return nil, "", appErr.ErrInvalid
	}
	plain, err := s.unsealer.UnsealWithHandle(ctx, in.KeyHandle, in.Password)
	if err != nil {
		return nil, "", err
	}
	user, err := s.accounts.Get(ctx, email)
	if err != nil {
		if errors.Is(err, appErr.ErrInvalidEmail) {
			_ = password.Compare(dummyPasswordHash(), plain)
			return nil, "", appErr.ErrUnauthorized
		}
		return nil, "", err
	}
	if err := password.Compare(user.PasswordHash, plain); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	switch user.Status {
	case model.UserStatusDisabled:
		return nil, "", appErr.ErrAccountDisabled
	case model.UserStatusSoftDeleted:
		return nil, "", appErr.ErrAccountDeleted
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// ResetPassword replaces the password of an active account after proving
// ownership of the email with a password-reset code.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	email := normalizeEmail(in.Email)
	if email == "" || strings.TrimSpace(in.Code) == "" || in.KeyHandle == "" || in.Password == "" {
		return appErr.ErrInvalid
	}
	plain, err := s.unsealer.UnsealWithHandle(ctx, in.KeyHandle, in.Password)
	if err != nil {
		return err
	}
	if err := checkPassword(plain); err != nil {
		return err
	}
	if err := s.otp.Verify(ctx, email, model.OtpPurposePasswordReset, in.Code); err != nil {
		return err
	}
	user, err := s.accounts.Get(ctx, email)
	if err != nil {
		return err
	}
	switch user.Status {
	case model.UserStatusDisabled:
		return appErr.ErrAccountDisabled
	case model.UserStatusSoftDeleted:
		return appErr.ErrAccountDeleted
	}
	hash, err := password.Hash(plain)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.Mtime = s.now().Unix()
	if err := s.users.Save(context.WithoutCancel(ctx), user); err != nil {
		return appErr.Dependency(err)
	}
	logutil.GetLogger(ctx).Info("password reset", zap.String("user_id", user.ID))
	return nil
}

// Me resolves the account behind a session token through the lifecycle, so a
// token outliving its account's purge time is rejected.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	switch user.Status {
	case model.UserStatusDisabled:
		return nil, appErr.ErrAccountDisabled
	case model.UserStatusSoftDeleted:
		return nil, appErr.ErrAccountDeleted
	}
	return user, nil
}

// DeleteSelf soft deletes the account behind a session token.
func (s *AuthService) DeleteSelf(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	user, err = s.accounts.SoftDelete(ctx, user.Email)
	if errors.Is(err, appErr.ErrInvalidEmail) {
		return nil, appErr.ErrUnauthorized
	}
	return user, err
}

func (s *AuthService) lookup(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) {
			return nil, appErr.ErrUnauthorized
		}
		return nil, appErr.Dependency(err)
	}
	user, err = s.accounts.Get(ctx, user.Email)
	if err != nil {
		if errors.Is(err, appErr.ErrInvalidEmail) {
			return nil, appErr.ErrUnauthorized
		}
		return nil, err
	}
	if user.ID != userID {
		return nil, appErr.ErrUnauthorized
	}
	return user, nil
}

// ensureEmailFree runs before any OTP is consumed, so a taken email does not
// burn the caller's code.
func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.accounts.Get(ctx, email)
	switch {
	case err == nil:
		return appErr.ErrConflict
	case errors.Is(err, appErr.ErrInvalidEmail):
		return nil
	default:
		return err
	}
}

func checkPassword(plain string) error {
	n := utf8.RuneCountInString(plain)
	if n < minPasswordLen || n > maxPasswordLen {
		return appErr.ErrInvalid
	}
	return nil
}
