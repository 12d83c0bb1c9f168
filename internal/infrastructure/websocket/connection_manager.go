package websocket

import (
	"encoding/json"
	"sync"

	"omniauction/internal/domain"
	"omniauction/pkg/logger"
)

// ConnectionManager keeps the set of live observer connections. Every event
// goes to every connection; there are no per-product rooms. Connections that
// fail a send are pruned during the broadcast rather than tracked with
// heartbeats.
type ConnectionManager struct {
	connections map[string]domain.SubscriberConn
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]domain.SubscriberConn),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(conn domain.SubscriberConn) {
	cm.mutex.Lock()
	cm.connections[conn.ID()] = conn
	cm.mutex.Unlock()

	cm.log.Info("Connection registered", "conn_id", conn.ID())
}

func (cm *ConnectionManager) UnregisterConnection(id string) {
	cm.mutex.Lock()
	_, exists := cm.connections[id]
	delete(cm.connections, id)
	cm.mutex.Unlock()

	if exists {
		cm.log.Info("Connection unregistered", "conn_id", id)
	}
}

func (cm *ConnectionManager) ConnectionCount() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// Broadcast sends the message to every connection. A failed send closes and
// removes that connection without affecting the others or the caller; the
// only error returned is a marshalling failure.
func (cm *ConnectionManager) Broadcast(message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	cm.mutex.RLock()
	connections := make([]domain.SubscriberConn, 0, len(cm.connections))
	for _, conn := range cm.connections {
		connections = append(connections, conn)
	}
	cm.mutex.RUnlock()

	var failed []string
	for _, conn := range connections {
		if err := conn.Send(messageBytes); err != nil {
			cm.log.Warn("Failed to send message, pruning connection",
				"conn_id", conn.ID(), "error", err)
			conn.Close()
			failed = append(failed, conn.ID())
		}
	}

	if len(failed) > 0 {
		cm.mutex.Lock()
		for _, id := range failed {
			delete(cm.connections, id)
		}
		cm.mutex.Unlock()
	}

	return nil
}
