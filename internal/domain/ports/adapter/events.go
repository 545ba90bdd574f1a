package adapter

import (
	"context"

	"health-premium-service/internal/domain/model"
)

type EventPublisher interface {
	PublishSubscriptionChanged(ctx context.Context, evt model.SubscriptionChanged) error
}
