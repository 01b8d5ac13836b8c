// File: internal/domain/model/catalog.go
package model

import (
	"time"

	"edu-entitlement-engine/internal/domain"
)

// ContentGroup is the unit of sale: entitlements and prices attach to a
// group, never to individual contents.
type ContentGroup struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Content is a single piece of study material. Free contents bypass the
// entitlement check entirely.
type Content struct {
	ID             string    `json:"id"`
	ContentGroupID string    `json:"content_group_id"`
	Title          string    `json:"title"`
	IsFree         bool      `json:"is_free"`
	CreatedAt      time.Time `json:"created_at"`
}

// TierPrice is one row of the price catalog: what a tier on a group costs
// and how long the resulting entitlement lasts.
type TierPrice struct {
	ContentGroupID string `json:"content_group_id"`
	Tier           Tier   `json:"tier"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	DurationDays   int    `json:"duration_days"`
}

func NewTierPrice(contentGroupID string, tier Tier, amount int64, currency string, durationDays int) (*TierPrice, error) {
	if contentGroupID == "" || !tier.Valid() || amount < 0 || currency == "" || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &TierPrice{
		ContentGroupID: contentGroupID,
		Tier:           tier,
		Amount:         amount,
		Currency:       currency,
		DurationDays:   durationDays,
	}, nil
}
