// internal/events/bus.go
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Gateway lifecycle event types
const (
	GatewayConnected     = "gateway.connected"
	GatewayConnectFailed = "gateway.connect_failed"
	GatewayDisconnected  = "gateway.disconnected"

	// AllEvents subscribes to every event type
	AllEvents = "*"
)

// Event represents a system event
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// Publisher is what producers depend on
type Publisher interface {
	Publish(event Event)
}

// Bus distributes events to subscribers. Publish never blocks: events are
// dropped when the queue or a subscriber is full.
type Bus struct {
	subscribers map[string][]chan Event
	events      chan Event
	mutex       sync.RWMutex
	logger      *zap.Logger
	stopOnce    sync.Once
	done        chan struct{}
}

// NewBus creates a new event bus
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Event),
		events:      make(chan Event, 1000),
		logger:      logger.With(zap.String("component", "event-bus")),
		done:        make(chan struct{}),
	}
}

// Start distributes events until Stop is called
func (b *Bus) Start() {
	for {
		select {
		case event := <-b.events:
			b.distribute(event)
		case <-b.done:
			return
		}
	}
}

// Stop ends Start and closes every subscriber channel
func (b *Bus) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)

		b.mutex.Lock()
		defer b.mutex.Unlock()
		for eventType, subscribers := range b.subscribers {
			for _, subscriber := range subscribers {
				close(subscriber)
			}
			delete(b.subscribers, eventType)
		}
	})
}

// Publish publishes an event
func (b *Bus) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.events <- event:
	default:
		b.logger.Warn("Event bus full, dropping event",
			zap.String("event_type", event.Type),
		)
	}
}

// Subscribe subscribes to events of a specific type, or AllEvents
func (b *Bus) Subscribe(eventType string) <-chan Event {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subscriber := make(chan Event, 100)
	b.subscribers[eventType] = append(b.subscribers[eventType], subscriber)
	return subscriber
}

// Unsubscribe removes and closes a subscription
func (b *Bus) Unsubscribe(eventType string, subscription <-chan Event) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subscribers := b.subscribers[eventType]
	for i, subscriber := range subscribers {
		if subscriber == subscription {
			b.subscribers[eventType] = append(subscribers[:i:i], subscribers[i+1:]...)
			close(subscriber)
			return
		}
	}
}

func (b *Bus) distribute(event Event) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	for _, eventType := range []string{event.Type, AllEvents} {
		for _, subscriber := range b.subscribers[eventType] {
			select {
			case subscriber <- event:
			default:
				// Subscriber is slow, skip
			}
		}
	}
}
