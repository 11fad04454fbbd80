// Package spectate streams read-only session views to WebSocket
// watchers. The Hub is installed as the session's publisher; spectators
// connect to the Server and receive every view from then on, starting
// with the latest one.
package spectate

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/nathoo/wayfarer/engine/session"
	"github.com/nathoo/wayfarer/logging"
)

// Message is the envelope written to spectators.
type Message struct {
	Type string       `json:"type"`
	Seq  uint64       `json:"seq"`
	View session.View `json:"view"`
}

// Hub fans views out to subscribers. A subscriber that falls behind
// loses messages rather than stalling the game.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan []byte
	latest      []byte
	seq         uint64
	buffer      int
}

// NewHub returns a hub whose subscribers buffer up to buffer messages.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subscribers: make(map[string]chan []byte),
		buffer:      buffer,
	}
}

// Publish implements session.Publisher.
func (h *Hub) Publish(v session.View) {
	h.mu.Lock()
	h.seq++
	data, err := json.Marshal(Message{Type: "view", Seq: h.seq, View: v})
	if err != nil {
		h.mu.Unlock()
		logging.For("spectate").WithError(err).Warn("failed to encode view")
		return
	}
	h.latest = data
	h.mu.Unlock()
	h.Broadcast(data)
}

// Broadcast sends data to every subscriber without blocking.
func (h *Hub) Broadcast(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subscribers {
		select {
		case ch <- data:
		default:
			logging.For("spectate").WithField("subscriber", id).Debug("subscriber channel full, dropping view")
		}
	}
}

// Register creates a subscriber channel, primed with the latest view if
// there is one.
func (h *Hub) Register() (string, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan []byte, h.buffer)
	if h.latest != nil {
		ch <- h.latest
	}
	h.subscribers[id] = ch
	return id, ch
}

// Unregister closes and removes a subscriber. Unknown IDs are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Latest returns the most recent encoded message, or nil.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// SubscriberCount returns the number of connected spectators.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
