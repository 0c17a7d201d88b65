package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reelcut/reelcut-agent/internal/render"
)

const (
	writeTimeout = 10 * time.Second

	// StatusSubscribed is the ack sent to a new subscriber before any
	// render events. Once received, no later event can be missed.
	StatusSubscribed = "subscribed"
)

// EventHub fans render events out to WebSocket subscribers, keyed by
// project ID. It is wired into the render manager as a listener. All
// socket writes happen under the hub lock, which keeps them serialized
// with subscriber registration.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]bool
}

func NewEventHub(logger *slog.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The agent binds to loopback only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "events"),
		subs:   make(map[string]map[*websocket.Conn]bool),
	}
}

// HandleEvent implements render.Listener.
func (h *EventHub) HandleEvent(ev render.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.subs[ev.ProjectID] {
		c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.WriteJSON(ev); err != nil {
			h.logger.Debug("dropping dead subscriber", "project_id", ev.ProjectID, "error", err)
			delete(h.subs[ev.ProjectID], c)
			c.Close()
		}
	}
}

// ServeWS upgrades the request and subscribes it to a project's events.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request, projectID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[*websocket.Conn]bool)
	}
	h.subs[projectID][conn] = true
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	ackErr := conn.WriteJSON(render.Event{ProjectID: projectID, Status: StatusSubscribed})
	h.mu.Unlock()

	if ackErr != nil {
		h.remove(projectID, conn)
		conn.Close()
		return
	}
	h.logger.Debug("event subscriber connected", "project_id", projectID)

	// Consume frames so close handshakes and pings are processed. The
	// client never sends application data.
	go func() {
		defer func() {
			h.remove(projectID, conn)
			conn.Close()
			h.logger.Debug("event subscriber disconnected", "project_id", projectID)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *EventHub) remove(projectID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[projectID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.subs, projectID)
		}
	}
}

// Close terminates every open subscription.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for projectID, set := range h.subs {
		for c := range set {
			c.Close()
		}
		delete(h.subs, projectID)
	}
}
