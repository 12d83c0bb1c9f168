package domain

import (
	"context"
	"time"
)

// Clock abstracts wall-clock time so auction expiry can be simulated in
// tests. The engine never calls time.Now directly.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NotificationSink receives every event the engine emits. Delivery is
// best-effort: an Emit error must never roll back or delay the state change
// that produced the event.
type NotificationSink interface {
	Emit(ctx context.Context, event AuctionEvent) error
}

// EventHandler processes one relayed auction event.
type EventHandler func(event AuctionEvent) error

// EventPublisher forwards events to an out-of-process channel.
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event AuctionEvent) error
}

// EventSubscriber consumes events published by other instances.
type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

// SubscriberConn is one live observer connection.
type SubscriberConn interface {
	Send(message []byte) error
	Close() error
	ID() string
}

// ConnectionManager owns the set of live subscriber connections and fans
// messages out to them. A connection that fails a send is pruned.
type ConnectionManager interface {
	RegisterConnection(conn SubscriberConn)
	UnregisterConnection(id string)
	ConnectionCount() int
	Broadcast(message interface{}) error
}
