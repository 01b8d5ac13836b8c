// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain"
	"edu-entitlement-engine/internal/domain/model"
	"edu-entitlement-engine/internal/domain/ports/adapter"
	"edu-entitlement-engine/internal/domain/ports/repository"
	"edu-entitlement-engine/internal/infra/logging"
	"edu-entitlement-engine/internal/infra/metrics"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

type CheckoutUseCase interface {
	// CreateAttempt prepares one checkout attempt: resolves the price from the
	// catalog, generates a fresh merchant order id, persists the attempt as
	// pending and returns the provider launch data. It never touches
	// entitlements; only the webhook reconciler finalizes attempts.
	CreateAttempt(ctx context.Context, studentID, contentGroupID string, tier model.Tier, provider model.Provider, providerMethod string) (*model.GatewayPaymentAttempt, *adapter.CheckoutLaunch, error)
	// Cancel is the best-effort student abort before redirect completion.
	Cancel(ctx context.Context, attemptID string) error
}

type checkoutUC struct {
	attempts repository.GatewayPaymentAttemptRepository
	catalog  repository.CatalogRepository
	entUC    EntitlementUseCase
	gateways map[model.Provider]adapter.PaymentGateway
	log      *zerolog.Logger
}

func NewCheckoutUseCase(
	attempts repository.GatewayPaymentAttemptRepository,
	catalog repository.CatalogRepository,
	entUC EntitlementUseCase,
	gateways []adapter.PaymentGateway,
	logger *zerolog.Logger,
) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	byName := make(map[model.Provider]adapter.PaymentGateway, len(gateways))
	for _, g := range gateways {
		byName[g.Name()] = g
	}
	return &checkoutUC{attempts: attempts, catalog: catalog, entUC: entUC, gateways: byName, log: &l}
}

func (u *checkoutUC) CreateAttempt(ctx context.Context, studentID, contentGroupID string, tier model.Tier, provider model.Provider, providerMethod string) (*model.GatewayPaymentAttempt, *adapter.CheckoutLaunch, error) {
	defer logging.TraceDuration(u.log, "CheckoutUC.CreateAttempt")()
	gw, ok := u.gateways[provider]
	if !ok {
		return nil, nil, domain.ErrInvalidArgument
	}

	price, err := u.catalog.FindTierPrice(ctx, repository.NoTX, contentGroupID, tier)
	if err != nil {
		return nil, nil, err
	}

	entitled, err := u.entUC.IsEntitled(ctx, studentID, contentGroupID, time.Now())
	if err != nil {
		return nil, nil, err
	}
	if entitled {
		return nil, nil, domain.ErrDuplicateEntitlement
	}

	merchantOrderID := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()

	launch, err := gw.CreateCheckout(ctx, merchantOrderID, price.Amount, price.Currency, providerMethod)
	if err != nil {
		return nil, nil, err
	}

	a, err := model.NewGatewayPaymentAttempt(uuid.NewString(), studentID, contentGroupID, tier, price.Amount, price.Currency, provider, providerMethod, merchantOrderID, launch.ExpiresAt)
	if err != nil {
		return nil, nil, err
	}
	if err := u.attempts.Save(ctx, repository.NoTX, a); err != nil {
		return nil, nil, err
	}

	u.log.Info().
		Str("attempt_id", a.ID).
		Str("merchant_order_id", merchantOrderID).
		Str("provider", string(provider)).
		Str("method", providerMethod).
		Int64("amount", price.Amount).
		Msg("checkout attempt created")
	return a, launch, nil
}

func (u *checkoutUC) Cancel(ctx context.Context, attemptID string) error {
	ok, err := u.attempts.UpdateStatusIfPending(ctx, repository.NoTX, attemptID, model.AttemptCancelled, nil, nil)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidState
	}
	a, err := u.attempts.FindByID(ctx, repository.NoTX, attemptID)
	if err == nil {
		metrics.IncAttempt(string(a.Provider), string(model.AttemptCancelled))
	}
	u.log.Info().Str("attempt_id", attemptID).Msg("checkout attempt cancelled")
	return nil
}
