package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xxxsen/accountd/internal/config"
	"github.com/xxxsen/accountd/internal/model"
	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

type mailNotifier struct {
	cfg    config.MailConfig
	dialer *gomail.Dialer
}

// NewNotifier returns an SMTP notifier when mail is configured, otherwise
// one that only records that a code was issued.
func NewNotifier(cfg config.MailConfig) Notifier {
	if !cfg.Enabled() {
		return logNotifier{}
	}
	return &mailNotifier{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (n *mailNotifier) SendOtp(ctx context.Context, email, code string, purpose model.OtpPurpose) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", email)
	m.SetHeader("Subject", otpSubject(purpose))
	m.SetBody("text/plain", fmt.Sprintf("Your verification code is %s. Do not share it with anyone.", code))
	if err := n.dialer.DialAndSend(m); err != nil {
		return appErr.Dependency(err)
	}
	return nil
}

type logNotifier struct{}

func (logNotifier) SendOtp(ctx context.Context, email, code string, purpose model.OtpPurpose) error {
	logutil.GetLogger(ctx).Info("otp issued without mail transport",
		zap.String("email", email),
		zap.String("purpose", string(purpose)),
	)
	return nil
}

func otpSubject(purpose model.OtpPurpose) string {
	switch purpose {
	case model.OtpPurposeRegistrationVerify:
		return "Confirm your email address"
	case model.OtpPurposePasswordReset:
		return "Reset your password"
	case model.OtpPurposeLoginUnlock:
		return "Unlock your sign-in"
	default:
		return "Your verification code"
	}
}
