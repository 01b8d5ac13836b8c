// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
	"edu-entitlement-engine/internal/domain/ports/repository"
	"edu-entitlement-engine/internal/infra/logging"
	"edu-entitlement-engine/internal/infra/metrics"
)

// ReconcileOutcome classifies how a webhook delivery was absorbed. Everything
// except an infrastructure error is acknowledged to the provider; replays and
// unknown orders are expected no-ops, not failures.
type ReconcileOutcome string

const (
	OutcomeApplied      ReconcileOutcome = "ok"            // transition committed
	OutcomeReplay       ReconcileOutcome = "replay"        // attempt already terminal
	OutcomeUnknownOrder ReconcileOutcome = "unknown_order" // merchant order id we never created
	OutcomeMismatch     ReconcileOutcome = "mismatch"      // amount/currency differs, attempt forced to failed
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase aligns attempt state with the provider's asynchronously
// reported truth. Reports are already signature-verified and normalized at
// the HTTP boundary; this state machine is provider-agnostic.
type ReconcileUseCase interface {
	HandleReport(ctx context.Context, provider model.Provider, report model.WebhookReport) (ReconcileOutcome, error)
}

type reconcileUC struct {
	attempts repository.GatewayPaymentAttemptRepository
	catalog  repository.CatalogRepository
	audit    repository.WebhookAuditRepository
	entUC    EntitlementUseCase
	notifier adapter.Notifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewReconcileUseCase(
	attempts repository.GatewayPaymentAttemptRepository,
	catalog repository.CatalogRepository,
	audit repository.WebhookAuditRepository,
	entUC EntitlementUseCase,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *reconcileUC {
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		attempts: attempts,
		catalog:  catalog,
		audit:    audit,
		entUC:    entUC,
		notifier: notifier,
		tm:       tm,
		log:      &l,
	}
}

func (u *reconcileUC) HandleReport(ctx context.Context, provider model.Provider, report model.WebhookReport) (ReconcileOutcome, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.HandleReport")()
	if report.MerchantOrderID == "" {
		return "", domain.ErrInvalidArgument
	}
	log := u.log.With().Str("provider", string(provider)).Str("merchant_order_id", report.MerchantOrderID).Logger()

	a, err := u.attempts.FindByMerchantOrderID(ctx, repository.NoTX, report.MerchantOrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return u.handleUnknownOrder(ctx, &log, report)
		}
		return "", err
	}

	if a.Status.IsTerminal() {
		return u.handleReplay(ctx, &log, a, report)
	}

	// Reported money must equal what we recorded at attempt creation. A
	// mismatch is a fraud/config signal: force failed, alert, never accept.
	if report.Status == model.WebhookStatusPaid && (report.Amount != a.Amount || report.Currency != a.Currency) {
		return u.handleMismatch(ctx, &log, a, report)
	}

	switch report.Status {
	case model.WebhookStatusPaid:
		return u.handlePaid(ctx, &log, a, report)
	case model.WebhookStatusFailed:
		return u.handleFailed(ctx, &log, a)
	default:
		return "", domain.ErrInvalidArgument
	}
}

func (u *reconcileUC) handleUnknownOrder(ctx context.Context, log *zerolog.Logger, report model.WebhookReport) (ReconcileOutcome, error) {
	// We acknowledge so the provider stops retrying correlating data we never
	// created, but the first occurrence is flagged for manual audit.
	first, err := u.audit.MarkUnknownOrder(ctx, report.MerchantOrderID)
	if err != nil {
		// Dedupe being down only risks a duplicate alert, never a lost ack.
		log.Warn().Err(err).Msg("unknown-order dedupe unavailable")
		first = true
	}
	if first {
		log.Warn().Msg("webhook for unknown merchant order id, flagged for audit")
	} else {
		log.Debug().Msg("repeated webhook for unknown merchant order id")
	}
	return OutcomeUnknownOrder, nil
}

func (u *reconcileUC) handleReplay(ctx context.Context, log *zerolog.Logger, a *model.GatewayPaymentAttempt, report model.WebhookReport) (ReconcileOutcome, error) {
	// Terminal states never transition again, even if the payload differs.
	// The only mutation allowed is backfilling a missing provider reference.
	if a.ProviderReference == nil && report.ProviderReference != "" {
		if err := u.attempts.SetProviderReference(ctx, repository.NoTX, a.ID, report.ProviderReference); err != nil {
			return "", err
		}
	}
	log.Debug().Str("status", string(a.Status)).Msg("webhook replay on terminal attempt, discarded")
	return OutcomeReplay, nil
}

func (u *reconcileUC) handleMismatch(ctx context.Context, log *zerolog.Logger, a *model.GatewayPaymentAttempt, report model.WebhookReport) (ReconcileOutcome, error) {
	ok, err := u.attempts.UpdateStatusIfPending(ctx, repository.NoTX, a.ID, model.AttemptFailed, nilIfEmpty(report.ProviderReference), nil)
	if err != nil {
		return "", err
	}
	if !ok {
		// A concurrent delivery won; fall back to the replay path.
		fresh, err := u.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if err != nil {
			return "", err
		}
		return u.handleReplay(ctx, log, fresh, report)
	}
	metrics.IncReconciliationMismatch(string(a.Provider))
	metrics.IncAttempt(string(a.Provider), string(model.AttemptFailed))
	log.Error().
		Int64("recorded_amount", a.Amount).
		Int64("reported_amount", report.Amount).
		Str("recorded_currency", a.Currency).
		Str("reported_currency", report.Currency).
		Msg("reconciliation mismatch, attempt forced to failed")
	return OutcomeMismatch, nil
}

func (u *reconcileUC) handlePaid(ctx context.Context, log *zerolog.Logger, a *model.GatewayPaymentAttempt, report model.WebhookReport) (ReconcileOutcome, error) {
	price, err := u.catalog.FindTierPrice(ctx, repository.NoTX, a.ContentGroupID, a.Tier)
	if err != nil {
		return "", err
	}

	now := time.Now()
	var raced bool
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.attempts.UpdateStatusIfPending(ctx, tx, a.ID, model.AttemptPaid, nilIfEmpty(report.ProviderReference), &now)
		if err != nil {
			return err
		}
		if !ok {
			raced = true
			return nil
		}
		// Status flip and grant commit or roll back together; a crash in
		// between is replayed safely because Grant is idempotent on the
		// (gateway, attemptID) source.
		_, err = u.entUC.Grant(ctx, tx, a.StudentID, a.ContentGroupID, a.Tier, price.DurationDays, model.SourceGateway, a.ID)
		return err
	})
	if err != nil {
		return "", err
	}

	if raced {
		fresh, err := u.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if err != nil {
			return "", err
		}
		return u.handleReplay(ctx, log, fresh, report)
	}

	metrics.IncAttempt(string(a.Provider), string(model.AttemptPaid))
	log.Info().Str("attempt_id", a.ID).Msg("payment confirmed, entitlement granted")
	u.notifier.Notify(ctx, adapter.NotificationEvent{
		StudentID: a.StudentID,
		Kind:      adapter.NotifyPaymentConfirmed,
		Message:   fmt.Sprintf("Your payment was confirmed. Access to the %s tier is now active.", a.Tier),
	})
	return OutcomeApplied, nil
}

func (u *reconcileUC) handleFailed(ctx context.Context, log *zerolog.Logger, a *model.GatewayPaymentAttempt) (ReconcileOutcome, error) {
	ok, err := u.attempts.UpdateStatusIfPending(ctx, repository.NoTX, a.ID, model.AttemptFailed, nil, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		fresh, err := u.attempts.FindByID(ctx, repository.NoTX, a.ID)
		if err != nil {
			return "", err
		}
		return u.handleReplay(ctx, log, fresh, model.WebhookReport{MerchantOrderID: a.MerchantOrderID})
	}
	metrics.IncAttempt(string(a.Provider), string(model.AttemptFailed))
	log.Info().Str("attempt_id", a.ID).Msg("provider reported failure")
	return OutcomeApplied, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
