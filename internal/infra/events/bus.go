// Package events is the in-process pub/sub for subscription changes.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
	"health-premium-service/internal/infra/logging"
)

var _ adapter.EventPublisher = (*Bus)(nil)

type Handler func(ctx context.Context, evt model.SubscriptionChanged)

// Bus delivers every published event to all subscribers synchronously, in
// subscription order. A panicking handler is logged and skipped.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]Handler
	order    []int
	log      *zerolog.Logger
}

func NewBus(logger *zerolog.Logger) *Bus {
	l := logging.Component(logger, "EventBus")
	return &Bus{handlers: make(map[int]Handler), log: l}
}

// Subscribe registers h and returns a func that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (b *Bus) PublishSubscriptionChanged(ctx context.Context, evt model.SubscriptionChanged) error {
	b.mu.RLock()
	hs := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		hs = append(hs, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range hs {
		b.deliver(ctx, h, evt)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, h Handler, evt model.SubscriptionChanged) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Str("user_id", evt.UserID).Msg("event handler panicked")
		}
	}()
	h(ctx, evt)
}
