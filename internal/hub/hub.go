// Package hub fans decoded text out to live subscribers.
package hub

import (
	"log/slog"
	"sync"
	"time"
)

// clientBuffer is the minimum channel capacity per subscriber.
const clientBuffer = 256

// Message is one chunk of decoded text.
type Message struct {
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Text   string    `json:"text"`
}

// Client is a single subscriber. Messages is closed on Unsubscribe.
type Client struct {
	ID       string
	Messages <-chan Message

	messages chan Message
}

// Hub broadcasts messages to subscribers and keeps a bounded history that is
// replayed to each new subscriber.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	history []Message
	next    int
	full    bool
}

// New returns a Hub remembering the last historySize messages.
func New(historySize int) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		history: make([]Message, max(historySize, 0)),
	}
}

// Subscribe registers a client under id, replacing any client with the same
// id. The history is queued on the client before any new broadcast.
func (h *Hub) Subscribe(id string) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[id]; ok {
		close(old.messages)
	}

	ch := make(chan Message, max(clientBuffer, len(h.history)))
	for _, m := range h.historyLocked() {
		ch <- m
	}
	client := &Client{ID: id, Messages: ch, messages: ch}
	h.clients[id] = client
	slog.Info("Hub client subscribed", "clientID", id, "replayed", len(ch))
	return client
}

// Unsubscribe removes the client registered under id and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(client.messages)
		slog.Info("Hub client unsubscribed", "clientID", id)
	}
}

// Broadcast records m in the history and offers it to every client. Clients
// whose buffer is full miss the message.
func (h *Hub) Broadcast(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.history) > 0 {
		h.history[h.next] = m
		h.next = (h.next + 1) % len(h.history)
		if h.next == 0 {
			h.full = true
		}
	}

	for _, client := range h.clients {
		select {
		case client.messages <- m:
		default:
			slog.Warn("Hub client channel full, dropping message", "clientID", client.ID)
		}
	}
}

// History returns the remembered messages, oldest first.
func (h *Hub) History() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.historyLocked()
}

func (h *Hub) historyLocked() []Message {
	if !h.full {
		return append([]Message(nil), h.history[:h.next]...)
	}
	out := make([]Message, 0, len(h.history))
	out = append(out, h.history[h.next:]...)
	return append(out, h.history[:h.next]...)
}

// Len returns the number of subscribed clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		delete(h.clients, id)
		close(client.messages)
	}
}
