package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrDependency   = errors.New("dependency unavailable")

	ErrVersionConflict = errors.New("version conflict")

	ErrInvalidEmail       = errors.New("invalid email")
	ErrAlreadySoftDeleted = errors.New("account already soft deleted")
	ErrAlreadyActive      = errors.New("account already active")
	ErrAlreadyDisabled    = errors.New("account already disabled")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrAccountDeleted     = errors.New("account deleted")

	ErrNoActiveOtp       = errors.New("no active otp")
	ErrOtpExpired        = errors.New("otp expired")
	ErrCodeMismatch      = errors.New("otp code mismatch")
	ErrAttemptsExhausted = errors.New("otp attempts exhausted")

	ErrKeyNotFound      = errors.New("transport key not found")
	ErrKeyExpired       = errors.New("transport key expired")
	ErrKeygenFailed     = errors.New("transport key generation failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Kind groups errors by how the caller layer has to react to them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindExpired
	KindAttemptsExhausted
	KindCrypto
	KindDependency
	KindUnauthorized
	KindTooMany
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExpired:
		return "expired"
	case KindAttemptsExhausted:
		return "attempts_exhausted"
	case KindCrypto:
		return "crypto"
	case KindDependency:
		return "dependency"
	case KindUnauthorized:
		return "unauthorized"
	case KindTooMany:
		return "too_many"
	default:
		return "unknown"
	}
}

// Business reports whether errors of this kind are expected outcomes that
// are returned to the caller as a failure result instead of a fault.
func (k Kind) Business() bool {
	switch k {
	case KindNotFound, KindConflict, KindExpired, KindAttemptsExhausted, KindCrypto, KindUnauthorized, KindTooMany:
		return true
	}
	return false
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrDependency):
		return KindDependency
	case errors.Is(err, ErrInvalid):
		return KindValidation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrNoActiveOtp), errors.Is(err, ErrKeyNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrVersionConflict), errors.Is(err, ErrAlreadySoftDeleted),
		errors.Is(err, ErrAlreadyActive), errors.Is(err, ErrAlreadyDisabled), errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrAccountDeleted), errors.Is(err, ErrCodeMismatch):
		return KindConflict
	case errors.Is(err, ErrOtpExpired), errors.Is(err, ErrKeyExpired):
		return KindExpired
	case errors.Is(err, ErrAttemptsExhausted):
		return KindAttemptsExhausted
	case errors.Is(err, ErrDecryptionFailed), errors.Is(err, ErrKeygenFailed):
		return KindCrypto
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden):
		return KindUnauthorized
	case errors.Is(err, ErrTooMany):
		return KindTooMany
	default:
		return KindUnknown
	}
}

// SoftDeletedError is returned when a soft delete targets an account that is
// already soft deleted. It matches ErrAlreadySoftDeleted.
type SoftDeletedError struct {
	AutoPurgeAt int64
}

func (e *SoftDeletedError) Error() string {
	return fmt.Sprintf("%s, auto purge at %d", ErrAlreadySoftDeleted.Error(), e.AutoPurgeAt)
}

func (e *SoftDeletedError) Is(target error) bool {
	return target == ErrAlreadySoftDeleted
}

type dependencyError struct {
	err error
}

func (e *dependencyError) Error() string {
	return ErrDependency.Error() + ": " + e.err.Error()
}

func (e *dependencyError) Unwrap() []error {
	return []error{ErrDependency, e.err}
}

// Dependency marks err as an infrastructure fault. Errors that already carry
// an application meaning are returned unchanged.
func Dependency(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return &dependencyError{err: err}
}
