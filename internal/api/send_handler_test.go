package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/relaydesk/internal/models"
)

type fakeSender struct {
	mailboxID string
	to        []string
	subject   string
	err       error
}

func (f *fakeSender) Send(ctx context.Context, mailboxID string, to, cc, bcc []string, subject, htmlBody, userID string) (*models.Email, error) {
	f.mailboxID = mailboxID
	f.to = to
	f.subject = subject
	if f.err != nil {
		return nil, f.err
	}
	return &models.Email{
		ID:        "email-1",
		MailboxID: mailboxID,
		Subject:   subject,
		Direction: models.DirectionOutbound,
	}, nil
}

func TestSendHandler(t *testing.T) {
	t.Run("sends and returns the created email", func(t *testing.T) {
		sender := &fakeSender{}
		handler := NewSendHandler(sender)

		body := `{"to":["jane@acme.com"],"subject":"Order #55","body_html":"<p>hi</p>"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/mailboxes/mbx-1/send", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "mbx-1", sender.mailboxID)
		assert.Equal(t, []string{"jane@acme.com"}, sender.to)

		var email models.Email
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &email))
		assert.Equal(t, "email-1", email.ID)
		assert.Equal(t, models.DirectionOutbound, email.Direction)
	})

	t.Run("rejects empty recipients", func(t *testing.T) {
		handler := NewSendHandler(&fakeSender{})

		body := `{"to":[],"subject":"x","body_html":"y"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/mailboxes/mbx-1/send", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		handler := NewSendHandler(&fakeSender{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/mailboxes/mbx-1/send", strings.NewReader("{"))
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delivery failure returns 502", func(t *testing.T) {
		sender := &fakeSender{err: fmt.Errorf("smtp delivery failed")}
		handler := NewSendHandler(sender)

		body := `{"to":["jane@acme.com"],"subject":"x","body_html":"y"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/mailboxes/mbx-1/send", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.Handle(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestMailboxIDFromPath(t *testing.T) {
	assert.Equal(t, "mbx-1", mailboxIDFromPath("/api/v1/mailboxes/mbx-1/sync", "/sync"))
	assert.Equal(t, "", mailboxIDFromPath("/api/v1/mailboxes//sync", "/sync"))
	assert.Equal(t, "", mailboxIDFromPath("/api/v1/mailboxes/a/b/sync", "/sync"))
	assert.Equal(t, "", mailboxIDFromPath("/api/v1/other/mbx-1/sync", "/sync"))
}
