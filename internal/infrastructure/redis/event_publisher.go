package redis

import (
	"context"
	"encoding/json"

	"omniauction/internal/domain"

	"github.com/go-redis/redis/v8"
)

// EventChannel is the pub/sub channel carrying auction events between
// instances.
const EventChannel = "auction_events"

// EventPublisher mirrors committed auction events onto redis pub/sub so
// observers connected to other instances see them. Events are JSON-encoded;
// delivery is transient pub/sub, nothing is persisted.
type EventPublisher struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

func (p *EventPublisher) PublishAuctionEvent(ctx context.Context, event domain.AuctionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, EventChannel, payload).Err()
}

// Emit makes the publisher usable directly as a notification sink.
func (p *EventPublisher) Emit(ctx context.Context, event domain.AuctionEvent) error {
	return p.PublishAuctionEvent(ctx, event)
}
