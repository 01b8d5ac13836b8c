package redis

import (
	"context"
	"fmt"
	"time"

	"edu-entitlement-engine/internal/domain/ports/repository"
)

var _ repository.WebhookAuditRepository = (*webhookAuditRepo)(nil)

// webhookAuditRepo deduplicates unknown-order audit alerts with SETNX: the
// first delivery for a merchant order id we never created wins the alert,
// replays within the TTL are silent.
type webhookAuditRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewWebhookAuditRepo(client RedisClient, ttl time.Duration) *webhookAuditRepo {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &webhookAuditRepo{client: client, ttl: ttl}
}

func (r *webhookAuditRepo) MarkUnknownOrder(ctx context.Context, merchantOrderID string) (bool, error) {
	return r.client.SetNX(ctx, unknownOrderKey(merchantOrderID), 1, r.ttl)
}

func unknownOrderKey(merchantOrderID string) string {
	return fmt.Sprintf("webhook_audit:unknown_order:%s", merchantOrderID)
}
