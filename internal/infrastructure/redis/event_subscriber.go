package redis

import (
	"context"
	"encoding/json"

	"omniauction/internal/domain"
	"omniauction/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// EventSubscriber consumes auction events from the pub/sub channel and hands
// them to a handler. A payload that fails to decode or a handler error is
// logged and skipped; the subscription keeps running until ctx is cancelled.
type EventSubscriber struct {
	client *redis.Client
	log    logger.Logger
}

func NewEventSubscriber(client *redis.Client, log logger.Logger) *EventSubscriber {
	return &EventSubscriber{
		client: client,
		log:    log,
	}
}

func (s *EventSubscriber) SubscribeToAuctionEvents(ctx context.Context, handler domain.EventHandler) error {
	pubsub := s.client.Subscribe(ctx, EventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	s.log.Info("Subscribed to auction events", "channel", EventChannel)

	for {
		select {
		case msg := <-ch:
			var event domain.AuctionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.log.Error("Failed to parse event", "payload", msg.Payload, "error", err)
				continue
			}

			if err := handler(event); err != nil {
				s.log.Error("Failed to handle event", "type", event.Type,
					"product_id", event.ProductID, "error", err)
			}

		case <-ctx.Done():
			s.log.Info("Event subscriber stopped")
			return ctx.Err()
		}
	}
}
