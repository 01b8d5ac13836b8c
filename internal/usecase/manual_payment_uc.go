// File: internal/usecase/manual_payment_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
	"edu-entitlement-engine/internal/domain/ports/repository"
	"edu-entitlement-engine/internal/infra/logging"
	"edu-entitlement-engine/internal/infra/metrics"
)

// DecisionOutcome is what a reviewer can do with a pending request.
type DecisionOutcome string

const (
	OutcomeApprove DecisionOutcome = "approve"
	OutcomeReject  DecisionOutcome = "reject"
)

// Compile-time check
var _ ManualPaymentUseCase = (*manualPaymentUC)(nil)

type ManualPaymentUseCase interface {
	// Submit records a student's proof of payment as a pending request.
	// The amount must equal the tier's configured price, and the student must
	// not already hold an active entitlement for the content group.
	Submit(ctx context.Context, studentID, contentGroupID string, tier model.Tier, amount int64, proofRef string) (*model.ManualPaymentRequest, error)
	// Decide applies a reviewer decision exactly once. Approving flips the
	// request and grants the entitlement inside one transaction; a request
	// that is no longer pending yields domain.ErrInvalidState.
	Decide(ctx context.Context, requestID string, outcome DecisionOutcome, reviewerNote *string) (*model.ManualPaymentRequest, error)
	// PendingQueue returns the oldest undecided requests for the reviewer.
	PendingQueue(ctx context.Context, limit int) ([]*model.ManualPaymentRequest, error)
}

type manualPaymentUC struct {
	requests repository.ManualPaymentRequestRepository
	catalog  repository.CatalogRepository
	entUC    EntitlementUseCase
	notifier adapter.Notifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewManualPaymentUseCase(
	requests repository.ManualPaymentRequestRepository,
	catalog repository.CatalogRepository,
	entUC EntitlementUseCase,
	notifier adapter.Notifier,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *manualPaymentUC {
	l := logger.With().Str("component", "ManualPaymentUC").Logger()
	return &manualPaymentUC{
		requests: requests,
		catalog:  catalog,
		entUC:    entUC,
		notifier: notifier,
		tm:       tm,
		log:      &l,
	}
}

func (u *manualPaymentUC) Submit(ctx context.Context, studentID, contentGroupID string, tier model.Tier, amount int64, proofRef string) (*model.ManualPaymentRequest, error) {
	price, err := u.catalog.FindTierPrice(ctx, repository.NoTX, contentGroupID, tier)
	if err != nil {
		return nil, err
	}
	if amount != price.Amount {
		return nil, domain.ErrAmountMismatch
	}

	// No duplicate purchase while an entitlement is still active.
	entitled, err := u.entUC.IsEntitled(ctx, studentID, contentGroupID, time.Now())
	if err != nil {
		return nil, err
	}
	if entitled {
		return nil, domain.ErrDuplicateEntitlement
	}

	req, err := model.NewManualPaymentRequest(uuid.NewString(), studentID, contentGroupID, tier, amount, price.Currency, proofRef)
	if err != nil {
		return nil, err
	}
	if err := u.requests.Save(ctx, repository.NoTX, req); err != nil {
		return nil, err
	}
	u.log.Info().Str("request_id", req.ID).Str("student_id", studentID).Str("tier", string(tier)).Msg("manual payment request submitted")
	return req, nil
}

func (u *manualPaymentUC) Decide(ctx context.Context, requestID string, outcome DecisionOutcome, reviewerNote *string) (*model.ManualPaymentRequest, error) {
	defer logging.TraceDuration(u.log, "ManualPaymentUC.Decide")()
	if outcome != OutcomeApprove && outcome != OutcomeReject {
		return nil, domain.ErrInvalidArgument
	}

	req, err := u.requests.FindByID(ctx, repository.NoTX, requestID)
	if err != nil {
		return nil, err
	}

	status := model.ManualRequestRejected
	if outcome == OutcomeApprove {
		status = model.ManualRequestApproved
	}
	now := time.Now()

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.requests.Decide(ctx, tx, requestID, status, reviewerNote, now)
		if err != nil {
			return err
		}
		if !ok {
			// Already decided; the pending guard lost.
			return domain.ErrInvalidState
		}
		if outcome == OutcomeApprove {
			price, err := u.catalog.FindTierPrice(ctx, tx, req.ContentGroupID, req.Tier)
			if err != nil {
				return err
			}
			if _, err := u.entUC.Grant(ctx, tx, req.StudentID, req.ContentGroupID, req.Tier, price.DurationDays, model.SourceManual, req.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	req.Status = status
	req.ReviewerNote = reviewerNote
	req.DecidedAt = &now

	metrics.IncManualDecision(string(outcome))
	u.log.Info().Str("request_id", requestID).Str("outcome", string(outcome)).Msg("manual payment request decided")

	// Notification is a side effect only, emitted after the commit.
	if outcome == OutcomeApprove {
		u.notifier.Notify(ctx, adapter.NotificationEvent{
			StudentID: req.StudentID,
			Kind:      adapter.NotifyPaymentApproved,
			Message:   fmt.Sprintf("Your payment for the %s tier was approved.", req.Tier),
		})
	} else {
		msg := "Your payment proof was rejected."
		if reviewerNote != nil && *reviewerNote != "" {
			msg = fmt.Sprintf("Your payment proof was rejected: %s", *reviewerNote)
		}
		u.notifier.Notify(ctx, adapter.NotificationEvent{
			StudentID: req.StudentID,
			Kind:      adapter.NotifyPaymentRejected,
			Message:   msg,
		})
	}
	return req, nil
}

func (u *manualPaymentUC) PendingQueue(ctx context.Context, limit int) ([]*model.ManualPaymentRequest, error) {
	if limit <= 0 {
		limit = 50
	}
	return u.requests.ListPending(ctx, repository.NoTX, limit)
}
