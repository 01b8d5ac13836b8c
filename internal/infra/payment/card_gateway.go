package payment

import (
	"context"
	"fmt"
	"net/url"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*CardGateway)(nil)

// CardGateway prepares card/wallet checkouts: the student is redirected to
// the provider's hosted page and the result arrives later as a signed
// webhook. The engine never polls the provider.
type CardGateway struct {
	redirectBase string
}

func NewCardGateway(redirectBase string) (*CardGateway, error) {
	if redirectBase == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := url.Parse(redirectBase); err != nil {
		return nil, fmt.Errorf("card gateway redirect base: %w", err)
	}
	return &CardGateway{redirectBase: redirectBase}, nil
}

func (g *CardGateway) Name() model.Provider { return model.ProviderCardGateway }

func (g *CardGateway) CreateCheckout(ctx context.Context, merchantOrderID string, amount int64, currency, providerMethod string) (*adapter.CheckoutLaunch, error) {
	if merchantOrderID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	switch providerMethod {
	case "card", "wallet":
	default:
		return nil, domain.ErrInvalidArgument
	}

	q := url.Values{}
	q.Set("order", merchantOrderID)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("currency", currency)
	q.Set("method", providerMethod)
	return &adapter.CheckoutLaunch{
		RedirectURL: fmt.Sprintf("%s/checkout?%s", g.redirectBase, q.Encode()),
	}, nil
}
