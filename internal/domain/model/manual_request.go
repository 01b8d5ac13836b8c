// File: internal/domain/model/manual_request.go
package model

import (
	"time"

	"edu-entitlement-engine/internal/domain"
)

type ManualRequestStatus string

const (
	ManualRequestPending  ManualRequestStatus = "pending"
	ManualRequestApproved ManualRequestStatus = "approved"
	ManualRequestRejected ManualRequestStatus = "rejected"
)

// ManualPaymentRequest is an out-of-band payment claim awaiting reviewer
// decision. Amount is in the currency's minor unit.
type ManualPaymentRequest struct {
	ID             string              `json:"id"`
	StudentID      string              `json:"student_id"`
	ContentGroupID string              `json:"content_group_id"`
	Tier           Tier                `json:"tier"`
	Amount         int64               `json:"amount"`
	Currency       string              `json:"currency"`
	ProofRef       string              `json:"proof_ref"`
	Status         ManualRequestStatus `json:"status"`
	ReviewerNote   *string             `json:"reviewer_note,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	DecidedAt      *time.Time          `json:"decided_at,omitempty"`
}

func NewManualPaymentRequest(id, studentID, contentGroupID string, tier Tier, amount int64, currency, proofRef string) (*ManualPaymentRequest, error) {
	if id == "" || studentID == "" || contentGroupID == "" || proofRef == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !tier.Valid() || amount <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &ManualPaymentRequest{
		ID:             id,
		StudentID:      studentID,
		ContentGroupID: contentGroupID,
		Tier:           tier,
		Amount:         amount,
		Currency:       currency,
		ProofRef:       proofRef,
		Status:         ManualRequestPending,
		CreatedAt:      time.Now().UTC(),
	}, nil
}
