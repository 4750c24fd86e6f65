// internal/handler/websocket_types.go
package handler

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a WebSocket client
type Client struct {
	ID          string          `json:"id"`
	Connection  *websocket.Conn `json:"-"`
	Send        chan []byte     `json:"-"`
	UserAgent   string          `json:"user_agent"`
	RemoteAddr  string          `json:"remote_addr"`
	ConnectedAt time.Time       `json:"connected_at"`
}

// WebSocketMessage represents a WebSocket message
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ClientRegistry tracks connected event clients. Send channels are only
// written and closed under the registry lock.
type ClientRegistry struct {
	clients map[string]*Client
	mutex   sync.RWMutex
}

// NewClientRegistry creates an empty registry
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		clients: make(map[string]*Client),
	}
}

// Register registers a new client
func (r *ClientRegistry) Register(client *Client) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.clients[client.ID] = client
}

// Unregister removes a client and closes its send channel, once
func (r *ClientRegistry) Unregister(client *Client) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.clients[client.ID]; ok {
		delete(r.clients, client.ID)
		close(client.Send)
	}
}

// Send queues a message for one client; false if it is gone or full
func (r *ClientRegistry) Send(client *Client, message []byte) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if _, ok := r.clients[client.ID]; !ok {
		return false
	}
	select {
	case client.Send <- message:
		return true
	default:
		return false
	}
}

// Broadcast queues a message for every client and returns how many
// clients were skipped because their buffer was full
func (r *ClientRegistry) Broadcast(message []byte) int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	dropped := 0
	for _, client := range r.clients {
		select {
		case client.Send <- message:
		default:
			dropped++
		}
	}
	return dropped
}

// CloseAll unregisters every client
func (r *ClientRegistry) CloseAll() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, client := range r.clients {
		delete(r.clients, id)
		close(client.Send)
	}
}

// GetStats returns connection statistics
func (r *ClientRegistry) GetStats() *ConnectionStats {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := &ConnectionStats{
		TotalConnections: len(r.clients),
		Clients:          make([]*Client, 0, len(r.clients)),
	}
	for _, client := range r.clients {
		stats.Clients = append(stats.Clients, client)
	}
	return stats
}

// ConnectionStats represents connection statistics
type ConnectionStats struct {
	TotalConnections int       `json:"total_connections"`
	Clients          []*Client `json:"clients"`
}
