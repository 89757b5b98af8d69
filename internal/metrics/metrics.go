package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	appErr "github.com/xxxsen/accountd/internal/pkg/errors"
)

var (
	TransportKeysIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountd_transport_keys_issued_total",
		Help: "Total number of transport keypairs issued.",
	})
	TransportKeyFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountd_transport_key_fetch_total",
		Help: "Private key fetches by result.",
	}, []string{"result"})

	OtpGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountd_otp_generated_total",
		Help: "One-time codes generated by purpose and delivery outcome.",
	}, []string{"purpose", "delivered"})
	OtpVerifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountd_otp_verify_total",
		Help: "One-time code verifications by purpose and result.",
	}, []string{"purpose", "result"})

	AccountTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountd_account_transitions_total",
		Help: "Account lifecycle operations by action and result.",
	}, []string{"action", "result"})
	AccountsPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountd_accounts_purged_total",
		Help: "Soft deleted accounts removed after their retention window.",
	})

	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accountd_login_attempts_total",
		Help: "Login attempts by result.",
	}, []string{"result"})
	RegistrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountd_registrations_total",
		Help: "Accounts created.",
	})
)

// Result turns an operation outcome into a label value.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	return appErr.KindOf(err).String()
}
