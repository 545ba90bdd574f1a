package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
	"health-premium-service/internal/infra/logging"
	"health-premium-service/internal/infra/worker"
)

var _ adapter.Notifier = (*QueuedNotifier)(nil)

// Submitter is the slice of worker.Pool the notifier needs.
type Submitter interface {
	Submit(task worker.Task) error
}

// QueuedNotifier hands delivery to a worker pool so a slow channel never
// holds up a payment response.
type QueuedNotifier struct {
	next    adapter.Notifier
	pool    Submitter
	timeout time.Duration
	log     *zerolog.Logger
}

func NewQueuedNotifier(next adapter.Notifier, pool Submitter, logger *zerolog.Logger) *QueuedNotifier {
	l := logging.Component(logger, "QueuedNotifier")
	return &QueuedNotifier{next: next, pool: pool, timeout: 5 * time.Second, log: l}
}

// Notify returns the pool's error when the task could not be queued. The
// request context is not carried into the task because it ends with the
// response.
func (n *QueuedNotifier) Notify(_ context.Context, userID string, msg model.Notification) error {
	err := n.pool.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		return n.next.Notify(ctx, userID, msg)
	})
	if err != nil {
		n.log.Warn().Err(err).Str("user_id", userID).Str("title", msg.Title).Msg("notification dropped")
	}
	return err
}
