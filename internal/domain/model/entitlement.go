// File: internal/domain/model/entitlement.go
package model

import (
	"time"

	"edu-entitlement-engine/internal/domain"
)

// Tier is the access level a payment buys on a content group.
type Tier string

const (
	TierTrial    Tier = "trial"
	TierStandard Tier = "standard"
	TierExtended Tier = "extended"
	TierGranted  Tier = "granted"
)

func (t Tier) Valid() bool {
	switch t {
	case TierTrial, TierStandard, TierExtended, TierGranted:
		return true
	}
	return false
}

// SourceKind names the payment path that produced an entitlement.
type SourceKind string

const (
	SourceManual  SourceKind = "manual"
	SourceGateway SourceKind = "gateway"
)

// Entitlement is a time-boxed right of one student to one content group.
// The (SourceKind, SourceID) pair is unique: a given payment can produce at
// most one entitlement, no matter how often its confirmation is replayed.
type Entitlement struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"student_id"`
	ContentGroupID string     `json:"content_group_id"`
	Tier           Tier       `json:"tier"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          time.Time  `json:"end_at"`
	Active         bool       `json:"active"`
	SourceKind     SourceKind `json:"source_kind"`
	SourceID       string     `json:"source_id"`
	CreatedAt      time.Time  `json:"created_at"`
}

func NewEntitlement(id, studentID, contentGroupID string, tier Tier, durationDays int, sourceKind SourceKind, sourceID string) (*Entitlement, error) {
	if id == "" || studentID == "" || contentGroupID == "" || sourceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !tier.Valid() || durationDays <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &Entitlement{
		ID:             id,
		StudentID:      studentID,
		ContentGroupID: contentGroupID,
		Tier:           tier,
		StartAt:        now,
		EndAt:          now.AddDate(0, 0, durationDays),
		Active:         true,
		SourceKind:     sourceKind,
		SourceID:       sourceID,
		CreatedAt:      now,
	}, nil
}

// Covers reports whether the entitlement grants access at the given instant.
func (e *Entitlement) Covers(now time.Time) bool {
	return e.Active && !e.StartAt.After(now) && e.EndAt.After(now)
}
