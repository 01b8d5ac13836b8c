package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/repository"
)

var _ repository.GatewayPaymentAttemptRepository = (*gatewayAttemptRepo)(nil)

type gatewayAttemptRepo struct {
	pool *pgxpool.Pool
}

func NewGatewayAttemptRepo(pool *pgxpool.Pool) *gatewayAttemptRepo {
	return &gatewayAttemptRepo{pool: pool}
}

const attemptCols = `id, student_id, content_group_id, tier, amount, currency, provider, provider_method, merchant_order_id, provider_reference, status, expires_at, webhook_received_at, created_at, updated_at`

func (r *gatewayAttemptRepo) Save(ctx context.Context, tx repository.Tx, a *model.GatewayPaymentAttempt) error {
	const q = `
INSERT INTO gateway_payment_attempts (
  id, student_id, content_group_id, tier, amount, currency, provider, provider_method, merchant_order_id, provider_reference, status, expires_at, webhook_received_at, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.StudentID, a.ContentGroupID, a.Tier, a.Amount, a.Currency, a.Provider, a.ProviderMethod, a.MerchantOrderID, a.ProviderReference, a.Status, a.ExpiresAt, a.WebhookReceivedAt, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		case isUniqueViolation(err):
			return domain.ErrAlreadyExists
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *gatewayAttemptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.GatewayPaymentAttempt, error) {
	const q = `SELECT ` + attemptCols + ` FROM gateway_payment_attempts WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *gatewayAttemptRepo) FindByMerchantOrderID(ctx context.Context, tx repository.Tx, merchantOrderID string) (*model.GatewayPaymentAttempt, error) {
	const q = `SELECT ` + attemptCols + ` FROM gateway_payment_attempts WHERE merchant_order_id=$1 LIMIT 1;`
	return r.queryOne(ctx, tx, q, merchantOrderID)
}

// UpdateStatusIfPending atomically transitions the attempt only when it is
// still pending, so concurrent webhook deliveries and the expiry sweep cannot
// both win. The loser observes false and must re-read the terminal state.
func (r *gatewayAttemptRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.AttemptStatus, providerReference *string, webhookReceivedAt *time.Time) (bool, error) {
	const q = `
UPDATE gateway_payment_attempts
   SET status = $2,
       provider_reference = COALESCE($3, provider_reference),
       webhook_received_at = COALESCE($4, webhook_received_at),
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, status, providerReference, webhookReceivedAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return false, err
		default:
			return false, domain.ErrOperationFailed
		}
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *gatewayAttemptRepo) SetProviderReference(ctx context.Context, tx repository.Tx, id string, providerReference string) error {
	const q = `UPDATE gateway_payment_attempts SET provider_reference=$2, updated_at=NOW() WHERE id=$1 AND provider_reference IS NULL;`
	_, err := execSQL(ctx, r.pool, tx, q, id, providerReference)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

// ExpirePending reuses the pending guard: an attempt that a webhook is
// finalizing concurrently is skipped by the WHERE clause, never overwritten.
func (r *gatewayAttemptRepo) ExpirePending(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.GatewayPaymentAttempt, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `
UPDATE gateway_payment_attempts
   SET status='expired', updated_at=NOW()
 WHERE id IN (
       SELECT id FROM gateway_payment_attempts
        WHERE status='pending' AND expires_at IS NOT NULL AND expires_at < $1
        ORDER BY expires_at ASC
        LIMIT $2
        FOR UPDATE SKIP LOCKED
 )
   AND status='pending'
RETURNING ` + attemptCols + `;`

	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (r *gatewayAttemptRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.GatewayPaymentAttempt, error) {
	const q = `SELECT ` + attemptCols + ` FROM gateway_payment_attempts WHERE student_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, studentID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return scanAttempts(rows)
}

func (r *gatewayAttemptRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.GatewayPaymentAttempt, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	a := &model.GatewayPaymentAttempt{}
	if err := row.Scan(&a.ID, &a.StudentID, &a.ContentGroupID, &a.Tier, &a.Amount, &a.Currency, &a.Provider, &a.ProviderMethod, &a.MerchantOrderID, &a.ProviderReference, &a.Status, &a.ExpiresAt, &a.WebhookReceivedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return a, nil
}

func scanAttempts(rows pgx.Rows) ([]*model.GatewayPaymentAttempt, error) {
	var out []*model.GatewayPaymentAttempt
	for rows.Next() {
		a := &model.GatewayPaymentAttempt{}
		if err := rows.Scan(&a.ID, &a.StudentID, &a.ContentGroupID, &a.Tier, &a.Amount, &a.Currency, &a.Provider, &a.ProviderMethod, &a.MerchantOrderID, &a.ProviderReference, &a.Status, &a.ExpiresAt, &a.WebhookReceivedAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	return out, nil
}
