package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*VoucherGateway)(nil)

// VoucherGateway prepares pay-at-store checkouts: the student receives a
// reference code valid for a fixed window and pays cash at a partner store.
// The provider confirms by webhook at an arbitrary later time; codes that
// see no webhook within the window are expired by the periodic sweep.
type VoucherGateway struct {
	window time.Duration
}

func NewVoucherGateway(window time.Duration) (*VoucherGateway, error) {
	if window <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &VoucherGateway{window: window}, nil
}

func (g *VoucherGateway) Name() model.Provider { return model.ProviderVoucherGateway }

func (g *VoucherGateway) CreateCheckout(ctx context.Context, merchantOrderID string, amount int64, currency, providerMethod string) (*adapter.CheckoutLaunch, error) {
	if merchantOrderID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if providerMethod != "payAtStore" {
		return nil, domain.ErrInvalidArgument
	}

	deadline := time.Now().Add(g.window)
	return &adapter.CheckoutLaunch{
		ReferenceCode: referenceCode(merchantOrderID),
		ExpiresAt:     &deadline,
	}, nil
}

// referenceCode derives the human-readable store code from the merchant
// order id. The tail of a ULID is its randomness, so the short code stays
// unique enough for a cashier while the webhook still carries the full id.
func referenceCode(merchantOrderID string) string {
	tail := merchantOrderID
	if len(tail) > 10 {
		tail = tail[len(tail)-10:]
	}
	return fmt.Sprintf("PAY-%s", strings.ToUpper(tail))
}
