package web

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/infra/logging"
	"edu-entitlement-engine/internal/infra/metrics"
	"edu-entitlement-engine/internal/infra/payment"
	"edu-entitlement-engine/internal/usecase"
)

const (
	signatureHeader    = "X-Webhook-Signature"
	webhookRateLimit   = 120
	webhookRateWindow  = time.Minute
	maxWebhookBodySize = 64 << 10
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleWebhook is the inbound reconciliation endpoint. It responds 2xx only
// after the transition (or idempotent no-op) is durably committed, 4xx on
// authenticity failures, and 5xx on infrastructure errors so the provider
// retries.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	providerName := chi.URLParam(r, "provider")
	provider := model.Provider(providerName)
	secret, ok := s.secrets[provider]
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
		return
	}
	defer func() {
		metrics.ObserveWebhookDuration(providerName, time.Since(start).Seconds())
	}()
	log := logging.With(r.Context(), s.log)

	if s.limiter != nil {
		ip, _, _ := net.SplitHostPort(r.RemoteAddr)
		allowed, err := s.limiter.Allow(r.Context(), "rate_limit:webhook:"+providerName+":"+ip, webhookRateLimit, webhookRateWindow)
		if err != nil {
			// A broken limiter must not drop provider callbacks.
			log.Warn().Err(err).Msg("webhook rate limiter unavailable")
		} else if !allowed {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if !payment.VerifyWebhookSignature(secret, body, r.Header.Get(signatureHeader)) {
		metrics.IncWebhook(providerName, "bad_signature")
		log.Warn().Str("provider", providerName).Msg("webhook signature verification failed")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	report, err := payment.DecodeWebhook(provider, body)
	if err != nil {
		metrics.IncWebhook(providerName, "error")
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	ctx := logging.WithMerchantOrderID(r.Context(), report.MerchantOrderID)
	outcome, err := s.reconcile.HandleReport(ctx, provider, report)
	if err != nil {
		metrics.IncWebhook(providerName, "error")
		log.Error().Err(err).Str("provider", providerName).Str("merchant_order_id", report.MerchantOrderID).Msg("webhook handling failed")
		// Never acknowledge before commit; the provider will retry.
		http.Error(w, "temporary failure", http.StatusInternalServerError)
		return
	}

	metrics.IncWebhook(providerName, string(outcome))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "outcome": string(outcome)})
}

type manualSubmitRequest struct {
	StudentID      string `json:"student_id"`
	ContentGroupID string `json:"content_group_id"`
	Tier           string `json:"tier"`
	Amount         int64  `json:"amount"`
	ProofRef       string `json:"proof_ref"`
}

func (s *Server) handleManualSubmit(w http.ResponseWriter, r *http.Request) {
	var req manualSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := logging.WithStudentID(r.Context(), req.StudentID)
	m, err := s.manualUC.Submit(ctx, req.StudentID, req.ContentGroupID, model.Tier(req.Tier), req.Amount, req.ProofRef)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type manualDecisionRequest struct {
	Outcome string  `json:"outcome"` // approve | reject
	Note    *string `json:"note,omitempty"`
}

func (s *Server) handleManualDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req manualDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	m, err := s.manualUC.Decide(r.Context(), id, usecase.DecisionOutcome(req.Outcome), req.Note)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleManualPending(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	pending, err := s.manualUC.PendingQueue(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pending)
}

type checkoutRequest struct {
	StudentID      string `json:"student_id"`
	ContentGroupID string `json:"content_group_id"`
	Tier           string `json:"tier"`
	Provider       string `json:"provider"`
	ProviderMethod string `json:"provider_method"`
}

type checkoutResponse struct {
	Attempt       *model.GatewayPaymentAttempt `json:"attempt"`
	RedirectURL   string                       `json:"redirect_url,omitempty"`
	ReferenceCode string                       `json:"reference_code,omitempty"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	ctx := logging.WithStudentID(r.Context(), req.StudentID)
	attempt, launch, err := s.checkoutUC.CreateAttempt(ctx, req.StudentID, req.ContentGroupID, model.Tier(req.Tier), model.Provider(req.Provider), req.ProviderMethod)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		Attempt:       attempt,
		RedirectURL:   launch.RedirectURL,
		ReferenceCode: launch.ReferenceCode,
	})
}

func (s *Server) handleCheckoutCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.checkoutUC.Cancel(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleAccess(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	contentID := r.URL.Query().Get("content_id")
	if studentID == "" || contentID == "" {
		http.Error(w, "student_id and content_id are required", http.StatusBadRequest)
		return
	}
	allowed, err := s.accessUC.CanAccess(r.Context(), studentID, contentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"can_access": allowed})
}

func (s *Server) handleStudentHistory(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")
	h, err := s.historyUC.StudentHistory(r.Context(), studentID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrDuplicateEntitlement):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrAmountMismatch),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
