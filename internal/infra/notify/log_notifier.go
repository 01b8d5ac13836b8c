package notify

import (
	"context"

	"github.com/rs/zerolog"

	"edu-entitlement-engine/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier emits notification events to the structured log. Delivery is
// the notification collaborator's job; this engine only owns the event.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Notify(ctx context.Context, ev adapter.NotificationEvent) {
	n.log.Info().
		Str("student_id", ev.StudentID).
		Str("kind", string(ev.Kind)).
		Str("message", ev.Message).
		Msg("notification event")
}
