package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/relaydesk/relaydesk/internal/models"
)

// MailSender is the outbound send path. smtp.Sender implements it.
type MailSender interface {
	Send(ctx context.Context, mailboxID string, to, cc, bcc []string, subject, htmlBody, userID string) (*models.Email, error)
}

// SendHandler handles POST /api/v1/mailboxes/{id}/send.
type SendHandler struct {
	sender MailSender
}

func NewSendHandler(sender MailSender) *SendHandler {
	return &SendHandler{sender: sender}
}

type sendRequest struct {
	To       []string `json:"to"`
	CC       []string `json:"cc"`
	BCC      []string `json:"bcc"`
	Subject  string   `json:"subject"`
	BodyHTML string   `json:"body_html"`
	UserID   string   `json:"user_id"`
}

func (h *SendHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mailboxID := mailboxIDFromPath(r.URL.Path, "/send")
	if mailboxID == "" {
		http.Error(w, "mailbox id is required", http.StatusBadRequest)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.To) == 0 {
		http.Error(w, "at least one recipient is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Subject) == "" {
		http.Error(w, "subject is required", http.StatusBadRequest)
		return
	}

	email, err := h.sender.Send(r.Context(), mailboxID, req.To, req.CC, req.BCC, req.Subject, req.BodyHTML, req.UserID)
	if err != nil {
		log.Printf("SendHandler: Failed to send from mailbox %s: %v", mailboxID, err)
		http.Error(w, "Failed to send message", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(email); err != nil {
		log.Printf("SendHandler: Failed to encode response: %v", err)
	}
}
