package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Event is one realtime change notification pushed to subscribers.
type Event struct {
	Type string `json:"type"` // "message:new" | "message:read"
	Data any    `json:"data"`
}

// Client is one live websocket subscription for a user. A user may hold
// several (multiple tabs); each gets its own buffered send channel.
type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// Hub tracks live subscriptions per user and fans events out to them.
// Delivery is at-least-once while connected; there is no replay of events
// missed during a disconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: map[uuid.UUID]map[*Client]struct{}{},
	}
}

func (h *Hub) AddClient(userID uuid.UUID, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.keepAliveLoop()

	return c
}

// RemoveClient releases a subscription. Idempotent, including on nil.
func (h *Hub) RemoveClient(c *Client) {
	if c == nil {
		return
	}
	c.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}

	_ = c.Conn.Close()
}

// BroadcastToUsers delivers an event to every live client of the given users.
// A full send buffer drops the event for that client rather than blocking.
func (h *Hub) BroadcastToUsers(userIDs []uuid.UUID, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, uid := range userIDs {
		for c := range h.clients[uid] {
			select {
			case c.Send <- ev:
			default:
			}
		}
	}
}

func (c *Client) writeLoop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteJSON(ev); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.cancel()
				return
			}
		}
	}
}
