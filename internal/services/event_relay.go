package services

import (
	"context"

	"omniauction/internal/domain"
	"omniauction/pkg/logger"
)

// EventRelay feeds events from the cross-instance subscription to the local
// websocket connections. When the relay is active the engine publishes to
// redis only, and every instance (this one included) rebroadcasts from the
// channel, so all observers see the same stream regardless of which instance
// accepted the bid.
type EventRelay struct {
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewEventRelay(connManager domain.ConnectionManager, log logger.Logger) *EventRelay {
	return &EventRelay{
		connManager: connManager,
		log:         log,
	}
}

// Start blocks until ctx is cancelled.
func (r *EventRelay) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	r.log.Info("Starting event relay")
	return subscriber.SubscribeToAuctionEvents(ctx, r.handleEvent)
}

func (r *EventRelay) handleEvent(event domain.AuctionEvent) error {
	return r.connManager.Broadcast(event)
}
