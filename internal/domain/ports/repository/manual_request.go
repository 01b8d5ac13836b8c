package repository

import (
	"context"
	"time"

	"edu-entitlement-engine/internal/domain/model"
)

// ManualPaymentRequestRepository is the port for reviewer-decided payments.
type ManualPaymentRequestRepository interface {
	Save(ctx context.Context, tx Tx, r *model.ManualPaymentRequest) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.ManualPaymentRequest, error)
	// Decide atomically flips a pending request to the given terminal status.
	// Returns false when the request was not pending anymore (the optimistic
	// guard lost), leaving the row untouched.
	Decide(ctx context.Context, tx Tx, id string, status model.ManualRequestStatus, reviewerNote *string, decidedAt time.Time) (bool, error)
	ListPending(ctx context.Context, tx Tx, limit int) ([]*model.ManualPaymentRequest, error)
	ListByStudent(ctx context.Context, tx Tx, studentID string) ([]*model.ManualPaymentRequest, error)
}
