package websocket

import (
	"context"

	"omniauction/internal/domain"
)

// Notifier adapts the connection manager to the engine's notification sink.
type Notifier struct {
	connManager domain.ConnectionManager
}

func NewNotifier(connManager domain.ConnectionManager) *Notifier {
	return &Notifier{connManager: connManager}
}

func (n *Notifier) Emit(ctx context.Context, event domain.AuctionEvent) error {
	return n.connManager.Broadcast(event)
}
