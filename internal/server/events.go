package server

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/stemsync/stemsync/internal/engine"
	"github.com/stemsync/stemsync/internal/logger"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventHub pushes playback change events to websocket subscribers. The
// engine notifies the hub only when playback visibly changes, so a feed
// message always reflects true engine state.
type EventHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	logger.Info("event subscriber connected", logger.Int("total", n))

	// Read pump: we never expect inbound messages, but reading is how a
	// peer close is detected.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the event to every subscriber. A failed write drops
// that subscriber rather than stalling the rest.
func (h *EventHub) Broadcast(ev engine.Event) {
	h.mu.Lock()
	var dead []*websocket.Conn
	for conn := range h.conns {
		if err := conn.WriteJSON(ev); err != nil {
			dead = append(dead, conn)
		}
	}
	for _, conn := range dead {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

// SubscriberCount returns the number of connected event subscribers.
func (h *EventHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
	n := len(h.conns)
	h.mu.Unlock()
	logger.Info("event subscriber disconnected", logger.Int("remaining", n))
}
