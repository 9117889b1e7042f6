package api

import (
	"encoding/json"
	"log"
	"net/http"
)

// SyncTrigger requests a fetch cycle for one mailbox. The sync supervisor
// implements it.
type SyncTrigger interface {
	RequestSync(mailboxID string, force bool) error
}

// SyncHandler handles POST /api/v1/mailboxes/{id}/sync.
type SyncHandler struct {
	supervisor SyncTrigger
}

func NewSyncHandler(supervisor SyncTrigger) *SyncHandler {
	return &SyncHandler{supervisor: supervisor}
}

func (h *SyncHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mailboxID := mailboxIDFromPath(r.URL.Path, "/sync")
	if mailboxID == "" {
		http.Error(w, "mailbox id is required", http.StatusBadRequest)
		return
	}

	// Manual triggers bypass the throttle; an in-flight cycle still wins.
	if err := h.supervisor.RequestSync(mailboxID, true); err != nil {
		log.Printf("SyncHandler: Failed to request sync for mailbox %s: %v", mailboxID, err)
		http.Error(w, "Mailbox not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "sync requested"}); err != nil {
		log.Printf("SyncHandler: Failed to encode response: %v", err)
	}
}
