package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/events"
)

func serve(router http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func readMessage(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var message WebSocketMessage
	if err := conn.ReadJSON(&message); err != nil {
		t.Fatalf("read: %v", err)
	}
	return message
}

func TestWebSocketStreamsEvents(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	go bus.Start()
	defer bus.Stop()

	h := NewWebSocketHandler(bus, &fakeGateway{}, &config.SecurityConfig{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	router := gin.New()
	router.GET("/ws/events", h.HandleEventConnection)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { conn.Close() }()

	if first := readMessage(t, conn); first.Type != "gateway_status" {
		t.Fatalf("expected initial gateway_status, got %s", first.Type)
	}

	if err := conn.WriteJSON(WebSocketMessage{Type: "ping", RequestID: "r1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if pong := readMessage(t, conn); pong.Type != "pong" || pong.RequestID != "r1" {
		t.Errorf("expected pong r1, got %+v", pong)
	}

	// Run subscribes asynchronously; publish until the event comes through
	deadline := time.Now().Add(2 * time.Second)
	for {
		bus.Publish(events.Event{Type: events.GatewayConnected, Source: "test"})

		conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		var message WebSocketMessage
		if err := conn.ReadJSON(&message); err == nil {
			if message.Type != "gateway_event" {
				t.Fatalf("expected gateway_event, got %s", message.Type)
			}
			raw, _ := json.Marshal(message.Data)
			if !strings.Contains(string(raw), events.GatewayConnected) {
				t.Errorf("event payload missing type: %s", raw)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no event received")
		}
		// a timed out read leaves the connection unusable
		conn.Close()
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("redial: %v", err)
		}
		readMessage(t, conn)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://dashboard.local"})

	req := httptest.NewRequest(http.MethodGet, "/ws/events", nil)
	if !check(req) {
		t.Error("requests without Origin are accepted")
	}

	req.Header.Set("Origin", "https://dashboard.local")
	if !check(req) {
		t.Error("listed origin must be accepted")
	}

	req.Header.Set("Origin", "https://evil.example")
	if check(req) {
		t.Error("unlisted origin must be rejected")
	}

	req.Header.Set("Origin", "https://anything.example")
	if !originChecker(nil)(req) {
		t.Error("no list means any origin")
	}
}

func TestClientRegistryUnregisterIsIdempotent(t *testing.T) {
	registry := NewClientRegistry()
	client := &Client{ID: "c1", Send: make(chan []byte, 1)}

	registry.Register(client)
	if !registry.Send(client, []byte("x")) {
		t.Fatal("expected send to succeed")
	}
	if dropped := registry.Broadcast([]byte("y")); dropped != 1 {
		t.Errorf("full buffer should be reported as dropped, got %d", dropped)
	}

	registry.Unregister(client)
	registry.Unregister(client)
	registry.CloseAll()

	if registry.Send(client, []byte("z")) {
		t.Error("send to unregistered client must fail")
	}
	if registry.GetStats().TotalConnections != 0 {
		t.Error("expected no clients")
	}
}
