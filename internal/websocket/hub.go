package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/homeledger/internal/docstore"
)

// Message tells a group's clients that a document changed. Clients re-read
// what they display; the message carries no document data.
type Message struct {
	Type       string `json:"type"`
	Group      string `json:"group"`
	Collection string `json:"collection"`
	Action     string `json:"action"`
	ID         string `json:"id,omitempty"`
}

// NewMessage creates a Message with the Type field derived from collection and action.
func NewMessage(group, collection, action, id string) Message {
	return Message{
		Type:       collection + "_" + action,
		Group:      group,
		Collection: collection,
		Action:     action,
		ID:         id,
	}
}

// Hub tracks connected clients by group and fans messages out to the
// clients of the message's group.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger.With("component", "websocket"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.clients[c.group]
	if group == nil {
		group = make(map[*Client]struct{})
		h.clients[c.group] = group
	}
	group[c] = struct{}{}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.clients[c.group]
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.clients, c.group)
	}
	close(c.send)
}

// Broadcast sends msg to every client of msg.Group.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[msg.Group] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client buffer full, dropping message", "group_id", msg.Group, "type", msg.Type)
		}
	}
}

// Listener broadcasts every group-scoped change of a committed batch.
func (h *Hub) Listener() docstore.ChangeListener {
	return func(changes []docstore.Change) {
		for _, c := range changes {
			group, kind, ok := docstore.SplitPath(c.Collection)
			if !ok {
				continue
			}
			h.Broadcast(NewMessage(group, kind, c.Kind.String(), c.ID))
		}
	}
}

// ClientCount returns the number of connected clients across all groups.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, group := range h.clients {
		n += len(group)
	}
	return n
}
