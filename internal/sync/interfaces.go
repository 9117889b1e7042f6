package sync

import (
	"context"
	"time"

	"github.com/relaydesk/relaydesk/internal/imap"
	"github.com/relaydesk/relaydesk/internal/models"
)

// Store is the repository surface the sync engine uses. db.Store is the
// production implementation; tests substitute in-memory fakes.
type Store interface {
	ListMailboxes(ctx context.Context) ([]*models.Mailbox, error)
	GetMailbox(ctx context.Context, mailboxID string) (*models.Mailbox, error)
	GetEmailBySequence(ctx context.Context, mailboxID string, sequenceNum int64) (*models.Email, error)
	GetEmailByMessageID(ctx context.Context, messageID string) (*models.Email, error)
	CreateEmail(ctx context.Context, email *models.Email) error
	CreateAttachments(ctx context.Context, emailID string, attachments []*models.EmailAttachment) error
	UpdateThreadLastMessage(ctx context.Context, threadID, messageID string, at time.Time) error
	AppendThreadReference(ctx context.Context, threadID, messageID string) error
}

// Resolver maps a counterpart address to its customer and current thread.
type Resolver interface {
	Resolve(ctx context.Context, businessID, mailboxID, counterpartEmail, nameHint, subjectHint, source string) (*models.Customer, *models.EmailThread, error)
}

// AttachmentSaver persists parsed file parts and returns their metadata records.
type AttachmentSaver interface {
	SaveAll(emailID string, parts []imap.FilePart) []*models.EmailAttachment
}

// Notifier publishes mailbox-scoped lifecycle events to realtime subscribers.
// Delivery is fire-and-forget.
type Notifier interface {
	EmitToMailbox(mailboxID, event string, payload any)
}

// Lifecycle event names emitted by the engine.
const (
	EventEmailReceived = "email:received"
)
