package repository

import (
	"context"

	"edu-entitlement-engine/internal/domain/model"
)

// CatalogRepository is the port for the content collaborator's data: content
// groups, contents with their free flag, and the configured tier prices.
// The engine trusts this catalog, never client input, for amount validation.
type CatalogRepository interface {
	SaveContentGroup(ctx context.Context, tx Tx, g *model.ContentGroup) error
	FindContentGroup(ctx context.Context, tx Tx, id string) (*model.ContentGroup, error)
	SaveContent(ctx context.Context, tx Tx, c *model.Content) error
	FindContent(ctx context.Context, tx Tx, id string) (*model.Content, error)
	SaveTierPrice(ctx context.Context, tx Tx, p *model.TierPrice) error
	// FindTierPrice returns the configured price entry for the tier of a
	// content group, or domain.ErrNotFound when the tier is not purchasable.
	FindTierPrice(ctx context.Context, tx Tx, contentGroupID string, tier model.Tier) (*model.TierPrice, error)
	ListTierPrices(ctx context.Context, tx Tx, contentGroupID string) ([]*model.TierPrice, error)
}
