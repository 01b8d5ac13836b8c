package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		entitlementsGrantedTotal,
		entitlementsSupersededTotal,
		entitlementsExpiredTotal,
		entitlementsRevokedTotal,
	)
}

var (
	entitlementsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlements_granted_total",
			Help: "Entitlements granted, labeled by payment source kind.",
		},
		[]string{"source"},
	)

	entitlementsSupersededTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "entitlements_superseded_total",
			Help: "Previously active entitlements deactivated by a newer grant.",
		},
	)

	entitlementsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "entitlements_expired_total",
			Help: "Entitlements deactivated by the expiry sweep.",
		},
	)

	entitlementsRevokedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "entitlements_revoked_total",
			Help: "Entitlements revoked explicitly (refunds/bans).",
		},
	)
)

func IncEntitlementGranted(source string) {
	entitlementsGrantedTotal.WithLabelValues(norm(source)).Inc()
}

func AddEntitlementsSuperseded(n int) {
	entitlementsSupersededTotal.Add(float64(n))
}

func AddEntitlementsExpired(n int) {
	entitlementsExpiredTotal.Add(float64(n))
}

func IncEntitlementRevoked() {
	entitlementsRevokedTotal.Inc()
}
