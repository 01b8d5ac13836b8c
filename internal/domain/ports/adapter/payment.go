package adapter

import (
	"context"
	"time"

	"edu-entitlement-engine/internal/domain/model"
)

// CheckoutLaunch is the provider-specific data a student needs to complete a
// checkout attempt: a redirect URL for card/wallet flows, or a reference code
// to present at a store for voucher flows. ExpiresAt carries the provider's
// quoted validity window for the reference code; nil for card flows.
type CheckoutLaunch struct {
	RedirectURL   string
	ReferenceCode string
	ExpiresAt     *time.Time
}

// PaymentGateway is the outbound port to one payment provider. The engine
// never calls the provider to decide access; the gateway only prepares
// checkout attempts and is otherwise heard from via webhooks.
type PaymentGateway interface {
	Name() model.Provider
	// CreateCheckout registers the attempt with the provider and returns the
	// launch data. merchantOrderID is the idempotency key the provider echoes
	// back in every webhook.
	CreateCheckout(ctx context.Context, merchantOrderID string, amount int64, currency, providerMethod string) (*CheckoutLaunch, error)
}
