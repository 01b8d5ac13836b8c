// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/repository"
	"edu-entitlement-engine/internal/infra/metrics"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase owns the entitlement ledger. Grant is the only way an
// entitlement comes into existence; every payment channel funnels into it.
type EntitlementUseCase interface {
	// Grant creates an entitlement for the payment source, superseding any
	// currently active entitlement for the same student and content group.
	// Idempotent on (sourceKind, sourceID): a replayed call returns the
	// entitlement created by the first one. Runs on the caller's tx handle so
	// the caller can pair it atomically with its own state flip.
	Grant(ctx context.Context, tx repository.Tx, studentID, contentGroupID string, tier model.Tier, durationDays int, sourceKind model.SourceKind, sourceID string) (*model.Entitlement, error)
	// IsEntitled reports whether an active, unexpired entitlement covers the
	// student for the content group at the given instant.
	IsEntitled(ctx context.Context, studentID, contentGroupID string, now time.Time) (bool, error)
	// Revoke deactivates a single entitlement (refunds/bans, external trigger).
	Revoke(ctx context.Context, entitlementID string) error
}

type entitlementUC struct {
	entitlements repository.EntitlementRepository
	log          *zerolog.Logger
}

func NewEntitlementUseCase(entitlements repository.EntitlementRepository, logger *zerolog.Logger) *entitlementUC {
	l := logger.With().Str("component", "EntitlementUC").Logger()
	return &entitlementUC{entitlements: entitlements, log: &l}
}

func (u *entitlementUC) Grant(ctx context.Context, tx repository.Tx, studentID, contentGroupID string, tier model.Tier, durationDays int, sourceKind model.SourceKind, sourceID string) (*model.Entitlement, error) {
	// Fast idempotency path: this source already produced an entitlement.
	if existing, err := u.entitlements.FindBySource(ctx, tx, sourceKind, sourceID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	e, err := model.NewEntitlement(uuid.NewString(), studentID, contentGroupID, tier, durationDays, sourceKind, sourceID)
	if err != nil {
		return nil, err
	}

	// Supersede, never stack: the new grant deactivates whatever was active
	// for the pair so at most one active row survives.
	superseded, err := u.entitlements.DeactivateActive(ctx, tx, studentID, contentGroupID)
	if err != nil {
		return nil, err
	}

	if err := u.entitlements.Save(ctx, tx, e); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Lost a race with a concurrent grant for the same source; the
			// unique index makes the conflict equivalent to success.
			return u.entitlements.FindBySource(ctx, tx, sourceKind, sourceID)
		}
		return nil, err
	}

	metrics.IncEntitlementGranted(string(sourceKind))
	if superseded > 0 {
		metrics.AddEntitlementsSuperseded(superseded)
	}
	u.log.Info().
		Str("entitlement_id", e.ID).
		Str("student_id", studentID).
		Str("content_group_id", contentGroupID).
		Str("tier", string(tier)).
		Str("source_kind", string(sourceKind)).
		Str("source_id", sourceID).
		Int("superseded", superseded).
		Msg("entitlement granted")
	return e, nil
}

func (u *entitlementUC) IsEntitled(ctx context.Context, studentID, contentGroupID string, now time.Time) (bool, error) {
	_, err := u.entitlements.FindActive(ctx, repository.NoTX, studentID, contentGroupID, now)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (u *entitlementUC) Revoke(ctx context.Context, entitlementID string) error {
	if err := u.entitlements.Deactivate(ctx, repository.NoTX, entitlementID); err != nil {
		return err
	}
	metrics.IncEntitlementRevoked()
	u.log.Info().Str("entitlement_id", entitlementID).Msg("entitlement revoked")
	return nil
}
