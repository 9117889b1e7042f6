package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeSyncTrigger struct {
	mailboxID string
	force     bool
	err       error
}

func (f *fakeSyncTrigger) RequestSync(mailboxID string, force bool) error {
	f.mailboxID = mailboxID
	f.force = force
	return f.err
}

func TestSyncHandler(t *testing.T) {
	t.Run("requests a forced sync", func(t *testing.T) {
		trigger := &fakeSyncTrigger{}
		handler := NewSyncHandler(trigger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/mailboxes/mbx-1/sync", nil)
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "mbx-1", trigger.mailboxID)
		assert.True(t, trigger.force)
	})

	t.Run("rejects non-POST", func(t *testing.T) {
		handler := NewSyncHandler(&fakeSyncTrigger{})

		req := httptest.NewRequest(http.MethodGet, "/api/v1/mailboxes/mbx-1/sync", nil)
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("rejects missing mailbox id", func(t *testing.T) {
		handler := NewSyncHandler(&fakeSyncTrigger{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/mailboxes//sync", nil)
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown mailbox returns 404", func(t *testing.T) {
		trigger := &fakeSyncTrigger{err: fmt.Errorf("mailbox mbx-9 is not supervised")}
		handler := NewSyncHandler(trigger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/mailboxes/mbx-9/sync", nil)
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
