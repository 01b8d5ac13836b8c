package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/repository"
)

var _ repository.CatalogRepository = (*catalogRepo)(nil)

type catalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

func (r *catalogRepo) SaveContentGroup(ctx context.Context, tx repository.Tx, g *model.ContentGroup) error {
	const q = `
INSERT INTO content_groups (id, name, created_at) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name=$2;`
	_, err := execSQL(ctx, r.pool, tx, q, g.ID, g.Name, g.CreatedAt)
	return mapExecErr(err)
}

func (r *catalogRepo) FindContentGroup(ctx context.Context, tx repository.Tx, id string) (*model.ContentGroup, error) {
	const q = `SELECT id, name, created_at FROM content_groups WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	g := &model.ContentGroup{}
	if err := row.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return g, nil
}

func (r *catalogRepo) SaveContent(ctx context.Context, tx repository.Tx, c *model.Content) error {
	const q = `
INSERT INTO contents (id, content_group_id, title, is_free, created_at) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET content_group_id=$2, title=$3, is_free=$4;`
	_, err := execSQL(ctx, r.pool, tx, q, c.ID, c.ContentGroupID, c.Title, c.IsFree, c.CreatedAt)
	return mapExecErr(err)
}

func (r *catalogRepo) FindContent(ctx context.Context, tx repository.Tx, id string) (*model.Content, error) {
	const q = `SELECT id, content_group_id, title, is_free, created_at FROM contents WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	c := &model.Content{}
	if err := row.Scan(&c.ID, &c.ContentGroupID, &c.Title, &c.IsFree, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}

func (r *catalogRepo) SaveTierPrice(ctx context.Context, tx repository.Tx, p *model.TierPrice) error {
	const q = `
INSERT INTO tier_prices (content_group_id, tier, amount, currency, duration_days) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (content_group_id, tier) DO UPDATE SET amount=$3, currency=$4, duration_days=$5;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ContentGroupID, p.Tier, p.Amount, p.Currency, p.DurationDays)
	return mapExecErr(err)
}

func (r *catalogRepo) FindTierPrice(ctx context.Context, tx repository.Tx, contentGroupID string, tier model.Tier) (*model.TierPrice, error) {
	const q = `SELECT content_group_id, tier, amount, currency, duration_days FROM tier_prices WHERE content_group_id=$1 AND tier=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, contentGroupID, tier)
	if err != nil {
		return nil, err
	}
	p := &model.TierPrice{}
	if err := row.Scan(&p.ContentGroupID, &p.Tier, &p.Amount, &p.Currency, &p.DurationDays); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *catalogRepo) ListTierPrices(ctx context.Context, tx repository.Tx, contentGroupID string) ([]*model.TierPrice, error) {
	const q = `SELECT content_group_id, tier, amount, currency, duration_days FROM tier_prices WHERE content_group_id=$1 ORDER BY amount ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, contentGroupID)
	if err != nil {
		return nil, mapExecErr(err)
	}
	defer rows.Close()

	var out []*model.TierPrice
	for rows.Next() {
		p := &model.TierPrice{}
		if err := rows.Scan(&p.ContentGroupID, &p.Tier, &p.Amount, &p.Currency, &p.DurationDays); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func mapExecErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidExecContext):
		return err
	case isUniqueViolation(err):
		return domain.ErrAlreadyExists
	default:
		return domain.ErrOperationFailed
	}
}
