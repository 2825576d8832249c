// Package ws implements the notification channel over websockets.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/milordsutrix/tool-tubecutter/domain/notification"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/logging"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/metrics"
)

// registerMessage is the only message clients send: it binds the connection
// to a job so later pushes for that job reach this client
type registerMessage struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
}

// pushMessage is the envelope for server-to-client events
type pushMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client wraps a websocket connection with a write lock, since gorilla
// connections allow at most one concurrent writer
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// Hub maps job ids to live connections. One connection per job: the last
// register wins. A connection's close removes only its own binding.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the client page may be served from a different origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logging.WithComponent("ws"),
	}
}

// ServeHTTP upgrades the request and services register messages until the
// connection closes
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn}
	registered := ""
	defer func() {
		conn.Close()
		if registered != "" {
			h.deregister(registered, c)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg registerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.logger.Warn().Err(err).Msg("invalid websocket message")
			continue
		}
		if msg.Type != "register" || msg.JobID == "" {
			continue
		}

		if registered != "" && registered != msg.JobID {
			h.deregister(registered, c)
		}
		h.register(msg.JobID, c)
		registered = msg.JobID
		h.logger.Debug().Str("jobId", msg.JobID).Msg("client registered")
	}
}

// Send implements notification.Pusher. It never blocks the caller on a slow
// client beyond the single frame write, never panics and never returns an
// error: an undeliverable event is logged and dropped.
func (h *Hub) Send(jobID, event string, payload any) bool {
	h.mu.RLock()
	c := h.clients[jobID]
	h.mu.RUnlock()

	if c == nil {
		h.logger.Warn().Str("jobId", jobID).Str("event", event).
			Msg("no client registered, event dropped")
		metrics.PushesDelivered.WithLabelValues("dropped").Inc()
		return false
	}

	if err := c.writeJSON(pushMessage{Type: event, Payload: payload}); err != nil {
		h.logger.Warn().Str("jobId", jobID).Str("event", event).Err(err).
			Msg("push failed, event dropped")
		metrics.PushesDelivered.WithLabelValues("dropped").Inc()
		return false
	}

	metrics.PushesDelivered.WithLabelValues("delivered").Inc()
	return true
}

func (h *Hub) register(jobID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[jobID] = c
}

// deregister removes the binding only if it still belongs to this client,
// so a newer registration for the same job survives an older connection's
// close
func (h *Hub) deregister(jobID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[jobID] == c {
		delete(h.clients, jobID)
	}
}

// Ensure Hub implements notification.Pusher
var _ notification.Pusher = (*Hub)(nil)
