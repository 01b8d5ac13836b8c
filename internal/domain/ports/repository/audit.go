package repository

import "context"

// WebhookAuditRepository deduplicates audit alerts for webhooks referencing
// merchant order ids we never created. Replayed unknown-order webhooks are
// expected idempotency no-ops and must only alert on the first occurrence.
type WebhookAuditRepository interface {
	// MarkUnknownOrder records the merchant order id and reports whether this
	// is the first time it has been seen.
	MarkUnknownOrder(ctx context.Context, merchantOrderID string) (first bool, err error)
}
