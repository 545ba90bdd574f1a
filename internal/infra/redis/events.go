package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"health-premium-service/internal/domain/model"
	"health-premium-service/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*EventPublisher)(nil)

// EventPublisher fans subscription events out to every instance over pub/sub.
type EventPublisher struct {
	cli     *Client
	channel string
}

func NewEventPublisher(cli *Client, channel string) *EventPublisher {
	return &EventPublisher{cli: cli, channel: channel}
}

func (p *EventPublisher) PublishSubscriptionChanged(ctx context.Context, evt model.SubscriptionChanged) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.cli.Publish(ctx, p.channel, b)
}

// Relay reads events from channel and hands each one to deliver until ctx is
// done. Malformed payloads are logged and skipped.
func Relay(ctx context.Context, cli *Client, channel string, deliver func(context.Context, model.SubscriptionChanged), logger *zerolog.Logger) error {
	log := logger.With().Str("component", "EventRelay").Str("channel", channel).Logger()

	sub := cli.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	log.Info().Msg("event relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt model.SubscriptionChanged
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				log.Warn().Err(err).Msg("skipping malformed event")
				continue
			}
			deliver(ctx, evt)
		}
	}
}
