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

var _ repository.ManualPaymentRequestRepository = (*manualRequestRepo)(nil)

type manualRequestRepo struct {
	pool *pgxpool.Pool
}

func NewManualRequestRepo(pool *pgxpool.Pool) *manualRequestRepo {
	return &manualRequestRepo{pool: pool}
}

const manualRequestCols = `id, student_id, content_group_id, tier, amount, currency, proof_ref, status, reviewer_note, created_at, decided_at`

func (r *manualRequestRepo) Save(ctx context.Context, tx repository.Tx, m *model.ManualPaymentRequest) error {
	const q = `
INSERT INTO manual_payment_requests (
  id, student_id, content_group_id, tier, amount, currency, proof_ref, status, reviewer_note, created_at, decided_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := execSQL(ctx, r.pool, tx, q, m.ID, m.StudentID, m.ContentGroupID, m.Tier, m.Amount, m.Currency, m.ProofRef, m.Status, m.ReviewerNote, m.CreatedAt, m.DecidedAt)
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

func (r *manualRequestRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.ManualPaymentRequest, error) {
	const q = `SELECT ` + manualRequestCols + ` FROM manual_payment_requests WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

// Decide flips a pending request to a terminal status. The WHERE status='pending'
// guard makes re-deciding observable as zero affected rows.
func (r *manualRequestRepo) Decide(ctx context.Context, tx repository.Tx, id string, status model.ManualRequestStatus, reviewerNote *string, decidedAt time.Time) (bool, error) {
	const q = `
UPDATE manual_payment_requests
   SET status=$2, reviewer_note=$3, decided_at=$4
 WHERE id=$1 AND status='pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, status, reviewerNote, decidedAt)
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

func (r *manualRequestRepo) ListPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.ManualPaymentRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + manualRequestCols + ` FROM manual_payment_requests WHERE status='pending' ORDER BY created_at ASC LIMIT $1;`
	return r.queryMany(ctx, tx, q, limit)
}

func (r *manualRequestRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.ManualPaymentRequest, error) {
	const q = `SELECT ` + manualRequestCols + ` FROM manual_payment_requests WHERE student_id=$1 ORDER BY created_at DESC;`
	return r.queryMany(ctx, tx, q, studentID)
}

func (r *manualRequestRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.ManualPaymentRequest, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	m := &model.ManualPaymentRequest{}
	if err := row.Scan(&m.ID, &m.StudentID, &m.ContentGroupID, &m.Tier, &m.Amount, &m.Currency, &m.ProofRef, &m.Status, &m.ReviewerNote, &m.CreatedAt, &m.DecidedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return m, nil
}

func (r *manualRequestRepo) queryMany(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.ManualPaymentRequest, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.ManualPaymentRequest
	for rows.Next() {
		m := &model.ManualPaymentRequest{}
		if err := rows.Scan(&m.ID, &m.StudentID, &m.ContentGroupID, &m.Tier, &m.Amount, &m.Currency, &m.ProofRef, &m.Status, &m.ReviewerNote, &m.CreatedAt, &m.DecidedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, m)
	}
	return out, nil
}
