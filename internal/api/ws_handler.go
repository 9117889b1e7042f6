package api

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/relaydesk/relaydesk/internal/db"
	"github.com/relaydesk/relaydesk/internal/models"
	ws "github.com/relaydesk/relaydesk/internal/websocket"
)

// MailboxGetter looks up one mailbox. db.Store implements it.
type MailboxGetter interface {
	GetMailbox(ctx context.Context, mailboxID string) (*models.Mailbox, error)
}

// WebSocketHandler handles GET /api/v1/ws?mailbox_id=… for real-time
// notifications.
type WebSocketHandler struct {
	store MailboxGetter
	hub   *ws.Hub
}

func NewWebSocketHandler(store MailboxGetter, hub *ws.Hub) *WebSocketHandler {
	return &WebSocketHandler{store: store, hub: hub}
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// This server is expected to sit behind a reverse proxy in a
		// trusted environment.
		return true
	},
}

func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	mailboxID := r.URL.Query().Get("mailbox_id")
	if mailboxID == "" {
		http.Error(w, "mailbox_id is required", http.StatusBadRequest)
		return
	}

	if _, err := h.store.GetMailbox(r.Context(), mailboxID); err != nil {
		if errors.Is(err, db.ErrMailboxNotFound) {
			http.Error(w, "Mailbox not found", http.StatusNotFound)
			return
		}
		log.Printf("WebSocketHandler: Failed to load mailbox %s: %v", mailboxID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocketHandler: failed to upgrade connection for mailbox %s: %v", mailboxID, err)
		return
	}

	client := h.hub.Register(mailboxID, conn)
	if client == nil {
		// Over the per-mailbox cap; Register already closed the connection.
		return
	}

	// Subscribers only listen. The read loop exists to detect disconnects.
	go func() {
		defer h.hub.Unregister(mailboxID, client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
