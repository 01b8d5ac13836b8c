package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain/ports/adapter"
	"edu-entitlement-engine/internal/domain/ports/repository"
	"edu-entitlement-engine/internal/infra/metrics"
)

// ExpirySweeper is the periodic background task covering the two time-based
// transitions no webhook will ever deliver: voucher attempts whose validity
// window elapsed, and entitlements past their end. Both paths reuse the
// optimistic pending/active guards, so the sweep never races unsafely with a
// late webhook; whichever commits first wins.
type ExpirySweeper struct {
	interval     time.Duration
	batchSize    int
	attempts     repository.GatewayPaymentAttemptRepository
	entitlements repository.EntitlementRepository
	notifier     adapter.Notifier
	log          *zerolog.Logger
}

func NewExpirySweeper(
	interval time.Duration,
	batchSize int,
	attempts repository.GatewayPaymentAttemptRepository,
	entitlements repository.EntitlementRepository,
	notifier adapter.Notifier,
	logger *zerolog.Logger,
) *ExpirySweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	l := logger.With().Str("component", "ExpirySweeper").Logger()
	return &ExpirySweeper{
		interval:     interval,
		batchSize:    batchSize,
		attempts:     attempts,
		entitlements: entitlements,
		notifier:     notifier,
		log:          &l,
	}
}

func (w *ExpirySweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting expiry sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping expiry sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpirySweeper) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	now := time.Now()

	expired, err := w.attempts.ExpirePending(runCtx, repository.NoTX, now, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("attempt expiry sweep failed")
	} else if len(expired) > 0 {
		metrics.AddAttemptsExpired(len(expired))
		for _, a := range expired {
			metrics.IncAttempt(string(a.Provider), "expired")
		}
		w.log.Info().Int("count", len(expired)).Msg("pending attempts expired")
	}

	lapsed, err := w.entitlements.DeactivateExpired(runCtx, repository.NoTX, now)
	if err != nil {
		w.log.Error().Err(err).Msg("entitlement expiry sweep failed")
		return
	}
	if len(lapsed) > 0 {
		metrics.AddEntitlementsExpired(len(lapsed))
		w.log.Info().Int("count", len(lapsed)).Msg("entitlements deactivated")
		for _, e := range lapsed {
			w.notifier.Notify(runCtx, adapter.NotificationEvent{
				StudentID: e.StudentID,
				Kind:      adapter.NotifyEntitlementExpired,
				Message:   fmt.Sprintf("Your %s access has expired.", e.Tier),
			})
		}
	}
}
