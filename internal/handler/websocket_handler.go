// internal/handler/websocket_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/events"
	"gateway-service/internal/utils"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
	wsWriteWait  = 10 * time.Second
)

// EventSource is the subscription side of the event bus
type EventSource interface {
	Subscribe(eventType string) <-chan events.Event
	Unsubscribe(eventType string, subscription <-chan events.Event)
}

// WebSocketHandler streams gateway events to dashboards
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	clients  *ClientRegistry
	events   EventSource
	gateway  StatusProvider
	logger   *utils.ServiceLogger
}

// NewWebSocketHandler creates a new WebSocket handler. Call Run to start
// forwarding events.
func NewWebSocketHandler(source EventSource, gateway StatusProvider, security *config.SecurityConfig, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(security.AllowedOrigins),
		},
		clients: NewClientRegistry(),
		events:  source,
		gateway: gateway,
		logger:  utils.NewServiceLogger(logger, "websocket-handler"),
	}
}

// originChecker accepts any origin when no list is configured
func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if len(allowed) == 0 || origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

// Run forwards bus events to every client until ctx is done or the bus
// stops. Clients are disconnected when it returns.
func (h *WebSocketHandler) Run(ctx context.Context) {
	subscription := h.events.Subscribe(events.AllEvents)
	defer h.clients.CloseAll()
	defer h.events.Unsubscribe(events.AllEvents, subscription)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-subscription:
			if !ok {
				return
			}
			h.broadcast(&WebSocketMessage{
				Type:      "gateway_event",
				Data:      event,
				Timestamp: event.Timestamp,
			})
		}
	}
}

// HandleEventConnection handles event stream WebSocket connections
// @Summary Gateway event stream
// @Description WebSocket stream of gateway.connected, gateway.connect_failed and gateway.disconnected events
// @Tags Events
// @Router /ws/events [get]
func (h *WebSocketHandler) HandleEventConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          uuid.New().String(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		UserAgent:   c.Request.UserAgent(),
		RemoteAddr:  c.Request.RemoteAddr,
		ConnectedAt: time.Now(),
	}

	h.clients.Register(client)
	h.logger.Info("Event WebSocket client connected",
		zap.String("client_id", client.ID),
		zap.String("remote_addr", client.RemoteAddr),
	)

	h.sendStatus(client, c.GetString("request_id"))

	go h.handleClientRead(client)
	go h.handleClientWrite(client)
}

// handleClientRead handles reading messages from WebSocket client
func (h *WebSocketHandler) handleClientRead(client *Client) {
	defer func() {
		h.clients.Unregister(client)
		client.Connection.Close()
		h.logger.Info("Event WebSocket client disconnected",
			zap.String("client_id", client.ID),
			zap.Duration("duration", time.Since(client.ConnectedAt)),
		)
	}()

	client.Connection.SetReadLimit(4096)
	client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
	client.Connection.SetPongHandler(func(string) error {
		client.Connection.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, messageBytes, err := client.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket read error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
			}
			return
		}

		var message WebSocketMessage
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			h.sendError(client, "message JSON invalide")
			continue
		}

		h.handleClientMessage(client, &message)
	}
}

// handleClientWrite handles writing messages to WebSocket client
func (h *WebSocketHandler) handleClientWrite(client *Client) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		client.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				client.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := client.Connection.WriteMessage(websocket.TextMessage, message); err != nil {
				h.logger.Error("WebSocket write error",
					zap.Error(err),
					zap.String("client_id", client.ID),
				)
				return
			}

		case <-ticker.C:
			client.Connection.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleClientMessage handles incoming client messages
func (h *WebSocketHandler) handleClientMessage(client *Client, message *WebSocketMessage) {
	switch message.Type {
	case "ping":
		h.sendMessage(client, &WebSocketMessage{
			Type:      "pong",
			Timestamp: time.Now(),
			RequestID: message.RequestID,
		})
	case "status":
		h.sendStatus(client, message.RequestID)
	default:
		h.logger.Warn("Unknown message type",
			zap.String("type", message.Type),
			zap.String("client_id", client.ID),
		)
		h.sendError(client, "type de message inconnu: "+message.Type)
	}
}

func (h *WebSocketHandler) sendStatus(client *Client, requestID string) {
	h.sendMessage(client, &WebSocketMessage{
		Type:      "gateway_status",
		Data:      h.gateway.GetStatus(),
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// sendMessage sends a message to a client
func (h *WebSocketHandler) sendMessage(client *Client, message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal WebSocket message", zap.Error(err))
		return
	}

	if !h.clients.Send(client, messageBytes) {
		h.logger.Warn("Client send channel full or closed, dropping message",
			zap.String("client_id", client.ID),
		)
	}
}

// sendError sends an error message to a client
func (h *WebSocketHandler) sendError(client *Client, errorMsg string) {
	h.sendMessage(client, &WebSocketMessage{
		Type: "error",
		Data: map[string]interface{}{
			"error": errorMsg,
		},
		Timestamp: time.Now(),
	})
}

// broadcast sends a message to every connected client
func (h *WebSocketHandler) broadcast(message *WebSocketMessage) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message", zap.Error(err))
		return
	}

	if dropped := h.clients.Broadcast(messageBytes); dropped > 0 {
		h.logger.Warn("Client send channel full during broadcast", zap.Int("dropped", dropped))
	}
}

// GetConnectionStats returns connection statistics
// @Summary WebSocket connection statistics
// @Tags Events
// @Produce json
// @Success 200 {object} utils.APIResponse{data=ConnectionStats}
// @Router /ws/stats [get]
func (h *WebSocketHandler) GetConnectionStats(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "WebSocket connection statistics", h.clients.GetStats())
}
