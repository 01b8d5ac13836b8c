package repository

import (
	"context"
	"time"

	"edu-entitlement-engine/internal/domain/model"
)

// GatewayPaymentAttemptRepository is the port for provider checkout attempts.
type GatewayPaymentAttemptRepository interface {
	Save(ctx context.Context, tx Tx, a *model.GatewayPaymentAttempt) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.GatewayPaymentAttempt, error)
	// FindByMerchantOrderID is the only correlation path for webhooks.
	FindByMerchantOrderID(ctx context.Context, tx Tx, merchantOrderID string) (*model.GatewayPaymentAttempt, error)
	// UpdateStatusIfPending atomically transitions the attempt to the given
	// terminal status only when it is still pending. Returns false when the
	// row was already terminal (a concurrent caller won), leaving it untouched.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.AttemptStatus, providerReference *string, webhookReceivedAt *time.Time) (bool, error)
	// SetProviderReference backfills the provider transaction id on a terminal
	// attempt when it arrived only on a late duplicate delivery.
	SetProviderReference(ctx context.Context, tx Tx, id string, providerReference string) error
	// ExpirePending transitions every pending attempt whose validity deadline
	// has passed to expired, using the same pending guard, and returns them.
	ExpirePending(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.GatewayPaymentAttempt, error)
	ListByStudent(ctx context.Context, tx Tx, studentID string) ([]*model.GatewayPaymentAttempt, error)
}
