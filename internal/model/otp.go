package model

type OtpPurpose string

const (
	OtpPurposeRegistrationVerify OtpPurpose = "registration-verify"
	OtpPurposeLoginUnlock        OtpPurpose = "login-unlock"
	OtpPurposePasswordReset      OtpPurpose = "password-reset"
)

func (p OtpPurpose) Valid() bool {
	switch p {
	case OtpPurposeRegistrationVerify, OtpPurposeLoginUnlock, OtpPurposePasswordReset:
		return true
	}
	return false
}

type OtpStatus string

const (
	OtpStatusPending   OtpStatus = "pending"
	OtpStatusExpired   OtpStatus = "expired"
	OtpStatusExhausted OtpStatus = "exhausted"
)

type OtpRecord struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Purpose      OtpPurpose `json:"purpose"`
	CodeHash     string     `json:"-"`
	Status       OtpStatus  `json:"status"`
	AttemptCount int        `json:"attempt_count"`
	MaxAttempts  int        `json:"max_attempts"`
	Version      int64      `json:"version"`
	CreatedAt    int64      `json:"created_at"`
	ExpiresAt    int64      `json:"expires_at"`
}
