package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrConflict
	ErrTooMany
	ErrInternal
	ErrInvalidEmail
	ErrAlreadySoftDeleted
	ErrAlreadyActive
	ErrAlreadyDisabled
	ErrAccountDisabled
	ErrAccountDeleted
	ErrNoActiveOtp
	ErrOtpExpired
	ErrCodeMismatch
	ErrAttemptsExhausted
	ErrKeyNotFound
	ErrKeyExpired
	ErrKeygenFailed
	ErrDecryptionFailed
	ErrVersionConflict
)
