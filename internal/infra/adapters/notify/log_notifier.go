package notify

import (
	"context"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier writes user notifications to the service log. The HTTP layer
// returns the same message in its response body.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) Notify(ctx context.Context, userID string, msg model.Notification) error {
	ev := n.log.Info()
	if msg.Severity == model.SeverityError {
		ev = n.log.Warn()
	}
	ev.Str("user_id", userID).
		Str("severity", string(msg.Severity)).
		Str("title", msg.Title).
		Msg(msg.Description)
	return nil
}
