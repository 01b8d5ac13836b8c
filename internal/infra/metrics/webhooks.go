package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhooksTotal,
		webhookDuration,
	)
}

var (
	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_total",
			Help: "Inbound provider webhooks by provider and outcome (ok/replay/unknown_order/bad_signature/mismatch/error).",
		},
		[]string{"provider", "outcome"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_handling_seconds",
			Help:    "Time spent handling one webhook delivery, including the commit.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

func IncWebhook(provider, outcome string) {
	webhooksTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func ObserveWebhookDuration(provider string, seconds float64) {
	webhookDuration.WithLabelValues(norm(provider)).Observe(seconds)
}
