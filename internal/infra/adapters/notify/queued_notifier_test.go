//go:build !integration

package notify

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/infra/worker"
)

type recordingNotifier struct {
	got chan model.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, userID string, n model.Notification) error {
	r.got <- n
	return nil
}

func TestQueuedNotifier_Notify(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("should deliver through the pool", func(t *testing.T) {
		pool := worker.NewPool(1, &logger)
		pool.Start(context.Background())
		defer pool.Stop()

		rec := &recordingNotifier{got: make(chan model.Notification, 1)}
		n := NewQueuedNotifier(rec, pool, &logger)

		require.NoError(t, n.Notify(context.Background(), "u1", model.Notification{Title: "Payment successful"}))
		select {
		case got := <-rec.got:
			assert.Equal(t, "Payment successful", got.Title)
		case <-time.After(2 * time.Second):
			t.Fatal("notification was not delivered")
		}
	})

	t.Run("should report a dropped notification", func(t *testing.T) {
		pool := worker.NewPool(1, &logger)
		pool.Stop()

		n := NewQueuedNotifier(&recordingNotifier{got: make(chan model.Notification, 1)}, pool, &logger)
		assert.ErrorIs(t, n.Notify(context.Background(), "u1", model.Notification{}), worker.ErrStopped)
	})
}
