package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/infra/logging"
	"edu-entitlement-engine/internal/usecase"
)

// RateLimiter is the slice of the redis rate limiter the webhook endpoint
// needs; an interface here keeps handler tests free of a running redis.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// ProviderSecrets maps each provider to its shared webhook secret.
type ProviderSecrets map[model.Provider]string

// Server wires the engine's HTTP surface: provider webhooks, the student
// checkout and manual-payment APIs, the reviewer decision API and the access
// decision endpoint.
type Server struct {
	manualUC   usecase.ManualPaymentUseCase
	checkoutUC usecase.CheckoutUseCase
	reconcile  usecase.ReconcileUseCase
	accessUC   usecase.AccessUseCase
	historyUC  usecase.HistoryUseCase

	secrets ProviderSecrets
	jwtKey  []byte
	limiter RateLimiter
	log     *zerolog.Logger
}

func NewServer(
	manualUC usecase.ManualPaymentUseCase,
	checkoutUC usecase.CheckoutUseCase,
	reconcile usecase.ReconcileUseCase,
	accessUC usecase.AccessUseCase,
	historyUC usecase.HistoryUseCase,
	secrets ProviderSecrets,
	jwtKey []byte,
	limiter RateLimiter,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		manualUC:   manualUC,
		checkoutUC: checkoutUC,
		reconcile:  reconcile,
		accessUC:   accessUC,
		historyUC:  historyUC,
		secrets:    secrets,
		jwtKey:     jwtKey,
		limiter:    limiter,
		log:        &l,
	}
}

// Router builds the chi router for the whole HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.traceContext)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Post("/webhooks/{provider}", s.handleWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/manual-requests", s.handleManualSubmit)
		r.With(s.reviewerAuth).Get("/manual-requests/pending", s.handleManualPending)
		r.With(s.reviewerAuth).Post("/manual-requests/{id}/decision", s.handleManualDecision)

		r.Post("/checkout", s.handleCheckout)
		r.Post("/checkout/{id}/cancel", s.handleCheckoutCancel)

		r.Get("/access", s.handleAccess)
		r.Get("/students/{id}/history", s.handleStudentHistory)
	})

	return r
}

// traceContext carries the chi request id as the trace id for downstream
// structured logs.
func (s *Server) traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tid := middleware.GetReqID(r.Context()); tid != "" {
			r = r.WithContext(logging.WithTraceID(r.Context(), tid))
		}
		next.ServeHTTP(w, r)
	})
}
