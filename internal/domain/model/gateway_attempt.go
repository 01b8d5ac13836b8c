// File: internal/domain/model/gateway_attempt.go
package model

import (
	"time"

	"edu-entitlement-engine/internal/domain"
)

// Provider identifies an external payment gateway.
type Provider string

const (
	ProviderCardGateway    Provider = "cardGateway"
	ProviderVoucherGateway Provider = "voucherGateway"
)

type AttemptStatus string

const (
	AttemptPending   AttemptStatus = "pending"
	AttemptPaid      AttemptStatus = "paid"
	AttemptFailed    AttemptStatus = "failed"
	AttemptExpired   AttemptStatus = "expired"
	AttemptCancelled AttemptStatus = "cancelled"
)

// IsTerminal reports whether the attempt can still change state. Every status
// except pending is final.
func (s AttemptStatus) IsTerminal() bool { return s != AttemptPending }

// GatewayPaymentAttempt tracks one checkout launched against an external
// gateway, keyed for reconciliation by MerchantOrderID.
type GatewayPaymentAttempt struct {
	ID                string        `json:"id"`
	StudentID         string        `json:"student_id"`
	ContentGroupID    string        `json:"content_group_id"`
	Tier              Tier          `json:"tier"`
	Amount            int64         `json:"amount"`
	Currency          string        `json:"currency"`
	Provider          Provider      `json:"provider"`
	ProviderMethod    string        `json:"provider_method"`
	MerchantOrderID   string        `json:"merchant_order_id"`
	ProviderReference *string       `json:"provider_reference,omitempty"`
	Status            AttemptStatus `json:"status"`
	ExpiresAt         *time.Time    `json:"expires_at,omitempty"`
	WebhookReceivedAt *time.Time    `json:"webhook_received_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

func NewGatewayPaymentAttempt(id, studentID, contentGroupID string, tier Tier, amount int64, currency string, provider Provider, providerMethod, merchantOrderID string, expiresAt *time.Time) (*GatewayPaymentAttempt, error) {
	if id == "" || studentID == "" || contentGroupID == "" || merchantOrderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !tier.Valid() || amount <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &GatewayPaymentAttempt{
		ID:              id,
		StudentID:       studentID,
		ContentGroupID:  contentGroupID,
		Tier:            tier,
		Amount:          amount,
		Currency:        currency,
		Provider:        provider,
		ProviderMethod:  providerMethod,
		MerchantOrderID: merchantOrderID,
		Status:          AttemptPending,
		ExpiresAt:       expiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// WebhookStatus is the provider's verdict carried by a webhook, normalized
// from each provider's wire vocabulary.
type WebhookStatus string

const (
	WebhookStatusPaid   WebhookStatus = "paid"
	WebhookStatusFailed WebhookStatus = "failed"
)

// WebhookReport is a provider callback after signature verification and
// payload normalization.
type WebhookReport struct {
	MerchantOrderID   string
	Status            WebhookStatus
	Amount            int64
	Currency          string
	ProviderReference string
}
