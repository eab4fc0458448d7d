package httpserver

import (
	"net/http"
	"time"

	"github.com/crossvenue/smartroute/pkg/events"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

//nolint:gochecknoglobals // websocket upgrader is stateless and shared
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// EventStream pushes engine events to websocket subscribers.
type EventStream struct {
	hub    *events.Hub
	logger *zap.Logger
}

// NewEventStream creates a new websocket event stream handler.
func NewEventStream(hub *events.Hub, logger *zap.Logger) *EventStream {
	return &EventStream{hub: hub, logger: logger}
}

// Handle upgrades GET /ws/events to a websocket connection and streams
// every published engine event to it until the client disconnects.
func (s *EventStream) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws-upgrade-failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	s.logger.Info("ws-client-connected", zap.String("remote", r.RemoteAddr))

	// Reader goroutine: drains client frames and detects disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			s.logger.Info("ws-client-disconnected", zap.String("remote", r.RemoteAddr))
			return

		case evt, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				s.logger.Error("ws-event-encode-failed", zap.Error(err))
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warn("ws-write-failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
