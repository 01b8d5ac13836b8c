package repository

import (
	"context"
	"time"

	"edu-entitlement-engine/internal/domain/model"
)

// EntitlementRepository is the port for the entitlement ledger.
type EntitlementRepository interface {
	// Save inserts the entitlement. A (source_kind, source_id) conflict is NOT
	// an error surface here; it returns domain.ErrAlreadyExists so the caller
	// can treat the conflict as idempotent success.
	Save(ctx context.Context, tx Tx, e *model.Entitlement) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Entitlement, error)
	// FindBySource returns the entitlement produced by the given payment
	// source, or domain.ErrNotFound.
	FindBySource(ctx context.Context, tx Tx, sourceKind model.SourceKind, sourceID string) (*model.Entitlement, error)
	// FindActive returns the currently active, unexpired entitlement for the
	// student and content group at the given instant, or domain.ErrNotFound.
	FindActive(ctx context.Context, tx Tx, studentID, contentGroupID string, now time.Time) (*model.Entitlement, error)
	// DeactivateActive flips active=false on every active entitlement of the
	// student for the content group and returns how many rows were superseded.
	DeactivateActive(ctx context.Context, tx Tx, studentID, contentGroupID string) (int, error)
	// Deactivate flips active=false on a single entitlement (revocation).
	Deactivate(ctx context.Context, tx Tx, id string) error
	// DeactivateExpired flips active=false on every active entitlement whose
	// end_at has passed; used by the periodic sweep, returns affected rows.
	DeactivateExpired(ctx context.Context, tx Tx, now time.Time) ([]*model.Entitlement, error)
	ListByStudent(ctx context.Context, tx Tx, studentID string) ([]*model.Entitlement, error)
}
