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

// Ensure entitlementRepo implements repository.EntitlementRepository
var _ repository.EntitlementRepository = (*entitlementRepo)(nil)

type entitlementRepo struct {
	pool *pgxpool.Pool
}

func NewEntitlementRepo(pool *pgxpool.Pool) *entitlementRepo {
	return &entitlementRepo{pool: pool}
}

const entitlementCols = `id, student_id, content_group_id, tier, start_at, end_at, active, source_kind, source_id, created_at`

func (r *entitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	const q = `
INSERT INTO entitlements (
  id, student_id, content_group_id, tier, start_at, end_at, active, source_kind, source_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.StudentID, e.ContentGroupID, e.Tier, e.StartAt, e.EndAt, e.Active, e.SourceKind, e.SourceID, e.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		case isUniqueViolation(err):
			// (source_kind, source_id) already produced an entitlement.
			return domain.ErrAlreadyExists
		default:
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *entitlementRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Entitlement, error) {
	const q = `SELECT ` + entitlementCols + ` FROM entitlements WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *entitlementRepo) FindBySource(ctx context.Context, tx repository.Tx, sourceKind model.SourceKind, sourceID string) (*model.Entitlement, error) {
	const q = `SELECT ` + entitlementCols + ` FROM entitlements WHERE source_kind=$1 AND source_id=$2 LIMIT 1;`
	return r.queryOne(ctx, tx, q, sourceKind, sourceID)
}

func (r *entitlementRepo) FindActive(ctx context.Context, tx repository.Tx, studentID, contentGroupID string, now time.Time) (*model.Entitlement, error) {
	const q = `
SELECT ` + entitlementCols + `
  FROM entitlements
 WHERE student_id=$1 AND content_group_id=$2 AND active AND start_at <= $3 AND end_at > $3
 ORDER BY created_at DESC
 LIMIT 1;`
	return r.queryOne(ctx, tx, q, studentID, contentGroupID, now)
}

func (r *entitlementRepo) DeactivateActive(ctx context.Context, tx repository.Tx, studentID, contentGroupID string) (int, error) {
	const q = `UPDATE entitlements SET active=false WHERE student_id=$1 AND content_group_id=$2 AND active;`
	cmd, err := execSQL(ctx, r.pool, tx, q, studentID, contentGroupID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return 0, err
		default:
			return 0, domain.ErrOperationFailed
		}
	}
	return int(cmd.RowsAffected()), nil
}

func (r *entitlementRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE entitlements SET active=false WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return err
		default:
			return domain.ErrOperationFailed
		}
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *entitlementRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Entitlement, error) {
	const q = `
UPDATE entitlements SET active=false
 WHERE active AND end_at <= $1
RETURNING ` + entitlementCols + `;`
	rows, err := queryRows(ctx, r.pool, tx, q, now)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()
	return scanEntitlements(rows)
}

func (r *entitlementRepo) ListByStudent(ctx context.Context, tx repository.Tx, studentID string) ([]*model.Entitlement, error) {
	const q = `SELECT ` + entitlementCols + ` FROM entitlements WHERE student_id=$1 ORDER BY created_at DESC;`
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
	return scanEntitlements(rows)
}

func (r *entitlementRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Entitlement, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	e := &model.Entitlement{}
	if err := row.Scan(&e.ID, &e.StudentID, &e.ContentGroupID, &e.Tier, &e.StartAt, &e.EndAt, &e.Active, &e.SourceKind, &e.SourceID, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

func scanEntitlements(rows pgx.Rows) ([]*model.Entitlement, error) {
	var out []*model.Entitlement
	for rows.Next() {
		e := &model.Entitlement{}
		if err := rows.Scan(&e.ID, &e.StudentID, &e.ContentGroupID, &e.Tier, &e.StartAt, &e.EndAt, &e.Active, &e.SourceKind, &e.SourceID, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}
