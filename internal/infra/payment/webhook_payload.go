package payment

import (
	"encoding/json"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
)

// Each provider posts its own payload shape. Both are decoded here, at the
// boundary, and reduced to the provider-agnostic model.WebhookReport before
// anything reaches the reconciler state machine.

// cardWebhookPayload is the card/wallet provider's callback body.
type cardWebhookPayload struct {
	OrderID       string `json:"order_id"`
	Result        string `json:"result"` // SUCCESS | DECLINED
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
}

// voucherWebhookPayload is the cash/voucher provider's callback body.
type voucherWebhookPayload struct {
	OrderRef    string `json:"order_ref"`
	State       string `json:"state"` // PAID | VOID
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	ReceiptNo   string `json:"receipt_no"`
}

// DecodeWebhook normalizes a provider's raw webhook body.
func DecodeWebhook(provider model.Provider, body []byte) (model.WebhookReport, error) {
	switch provider {
	case model.ProviderCardGateway:
		var p cardWebhookPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return model.WebhookReport{}, domain.ErrValidation
		}
		if p.OrderID == "" {
			return model.WebhookReport{}, domain.ErrValidation
		}
		status := model.WebhookStatusFailed
		if p.Result == "SUCCESS" {
			status = model.WebhookStatusPaid
		}
		return model.WebhookReport{
			MerchantOrderID:   p.OrderID,
			Status:            status,
			Amount:            p.Amount,
			Currency:          p.Currency,
			ProviderReference: p.TransactionID,
		}, nil

	case model.ProviderVoucherGateway:
		var p voucherWebhookPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return model.WebhookReport{}, domain.ErrValidation
		}
		if p.OrderRef == "" {
			return model.WebhookReport{}, domain.ErrValidation
		}
		status := model.WebhookStatusFailed
		if p.State == "PAID" {
			status = model.WebhookStatusPaid
		}
		return model.WebhookReport{
			MerchantOrderID:   p.OrderRef,
			Status:            status,
			Amount:            p.AmountMinor,
			Currency:          p.Currency,
			ProviderReference: p.ReceiptNo,
		}, nil

	default:
		return model.WebhookReport{}, domain.ErrInvalidArgument
	}
}
