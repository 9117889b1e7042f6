package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client wraps a WebSocket connection.
type Client struct {
	conn *websocket.Conn
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// Hub manages active WebSocket subscriptions per mailbox. A mailbox can
// have multiple subscribers (several agents watching the same inbox).
// Delivery is fire-and-forget: no subscriber is not an error.
type Hub struct {
	mu            sync.RWMutex
	clients       map[string]map[*Client]struct{} // mailboxID -> set of clients
	maxPerMailbox int
}

// NewHub creates a new Hub with a per-mailbox connection limit.
func NewHub(maxPerMailbox int) *Hub {
	if maxPerMailbox <= 0 {
		maxPerMailbox = 10
	}
	return &Hub{
		clients:       make(map[string]map[*Client]struct{}),
		maxPerMailbox: maxPerMailbox,
	}
}

// Register adds a WebSocket connection for the given mailbox. If the
// per-mailbox limit is exceeded, the new connection is closed and nil is returned.
func (h *Hub) Register(mailboxID string, conn *websocket.Conn) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[mailboxID]
	if !ok {
		subscribers = make(map[*Client]struct{})
		h.clients[mailboxID] = subscribers
	}

	if len(subscribers) >= h.maxPerMailbox {
		log.Printf("websocket: mailbox %s exceeded max connections (%d), closing new connection", mailboxID, h.maxPerMailbox)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "too many connections for this mailbox"),
			time.Time{},
		)
		_ = conn.Close()
		return nil
	}

	client := &Client{conn: conn}
	subscribers[client] = struct{}{}
	return client
}

// Unregister removes a client for the given mailbox and closes the connection.
func (h *Hub) Unregister(mailboxID string, client *Client) {
	if client == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[mailboxID]
	if !ok {
		_ = client.conn.Close()
		return
	}

	delete(subscribers, client)

	if len(subscribers) == 0 {
		delete(h.clients, mailboxID)
	}

	_ = client.conn.Close()
}

// EmitToMailbox broadcasts a typed event to every subscriber of the mailbox.
// The payload is merged under the event type as {"type": event, "data": payload}.
func (h *Hub) EmitToMailbox(mailboxID, event string, payload any) {
	msg := struct {
		Type string `json:"type"`
		Data any    `json:"data,omitempty"`
	}{
		Type: event,
		Data: payload,
	}

	encoded, err := json.Marshal(msg)
	if err != nil {
		log.Printf("websocket: failed to marshal %s event for mailbox %s: %v", event, mailboxID, err)
		return
	}

	h.send(mailboxID, encoded)
}

// send broadcasts raw bytes to all active clients for the mailbox.
func (h *Hub) send(mailboxID string, msg []byte) {
	h.mu.RLock()
	subscribers := h.clients[mailboxID]
	h.mu.RUnlock()

	if len(subscribers) == 0 {
		return
	}

	for client := range subscribers {
		if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("websocket: failed to write message for mailbox %s: %v", mailboxID, err)
			// Best-effort cleanup: unregister this client.
			go h.Unregister(mailboxID, client)
		}
	}
}

// ActiveConnections returns the number of active subscribers for a mailbox.
func (h *Hub) ActiveConnections(mailboxID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[mailboxID])
}
