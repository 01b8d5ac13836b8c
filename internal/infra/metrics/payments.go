package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		attemptsTotal,
		attemptsExpiredTotal,
		manualDecisionsTotal,
		reconciliationMismatchTotal,
	)
}

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_payment_attempts_total",
			Help: "Gateway payment attempts by provider and terminal status.",
		},
		[]string{"provider", "status"},
	)

	attemptsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_payment_attempts_expired_total",
			Help: "Voucher attempts expired by the periodic sweep.",
		},
	)

	manualDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "manual_payment_decisions_total",
			Help: "Reviewer decisions on manual payment requests.",
		},
		[]string{"outcome"},
	)

	reconciliationMismatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reconciliation_mismatch_total",
			Help: "Webhooks reporting an amount or currency different from the recorded attempt. Treat as fraud/config signal.",
		},
		[]string{"provider"},
	)
)

func IncAttempt(provider, status string) {
	attemptsTotal.WithLabelValues(norm(provider), norm(status)).Inc()
}

func AddAttemptsExpired(n int) {
	attemptsExpiredTotal.Add(float64(n))
}

func IncManualDecision(outcome string) {
	manualDecisionsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncReconciliationMismatch(provider string) {
	reconciliationMismatchTotal.WithLabelValues(norm(provider)).Inc()
}
