package adapter

import (
	"context"

	"health-premium-service/internal/domain/model"
)

// Notifier delivers user-facing messages. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID string, n model.Notification) error
}
