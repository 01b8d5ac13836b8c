package adapter

import "context"

// NotificationKind classifies notification events emitted by the engine.
type NotificationKind string

const (
	NotifyPaymentApproved    NotificationKind = "payment_approved"
	NotifyPaymentRejected    NotificationKind = "payment_rejected"
	NotifyPaymentConfirmed   NotificationKind = "payment_confirmed"
	NotifyEntitlementExpired NotificationKind = "entitlement_expired"
)

// NotificationEvent is the contract with the notification collaborator.
// Delivery and storage are out of scope; the engine only emits the event.
type NotificationEvent struct {
	StudentID string
	Kind      NotificationKind
	Message   string
}

// Notifier is the outbound port for notification events. Implementations must
// be side-effect only: a notification failure never rolls back a grant.
type Notifier interface {
	Notify(ctx context.Context, ev NotificationEvent)
}
