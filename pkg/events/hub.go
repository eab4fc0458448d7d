// Package events provides the asynchronous notification hook consumed by the
// control plane: new-order accepted, trade results, circuit-breaker trips.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Type identifies the kind of event.
type Type string

const (
	TypeOrderAccepted  Type = "order_accepted"
	TypeTradeResult    Type = "trade_result"
	TypeBreakerTripped Type = "breaker_tripped"
	TypeBreakerReset   Type = "breaker_reset"
)

// Event is one notification published by the engine.
type Event struct {
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Hub fans out events to subscribers. Publishing never blocks: when a
// subscriber's buffer is full the oldest event is dropped in its favor.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	logger *zap.Logger
}

// NewHub creates a new event hub. bufferSize is the per-subscriber channel
// capacity.
func NewHub(bufferSize int, logger *zap.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}

	return &Hub{
		subs:   make(map[int]chan Event),
		buffer: bufferSize,
		logger: logger,
	}
}

// Publish sends an event to all subscribers.
func (h *Hub) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// Buffer full: drop the oldest event to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- evt:
			default:
			}
			EventsDroppedTotal.Inc()
			h.logger.Debug("event-dropped",
				zap.Int("subscriber", id),
				zap.String("type", string(evt.Type)))
		}
	}

	EventsPublishedTotal.WithLabelValues(string(evt.Type)).Inc()
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan Event, h.buffer)
	h.subs[id] = ch

	unsubscribe := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}

	return ch, unsubscribe
}

// SubscriberCount returns the number of active subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unsubscribes everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
