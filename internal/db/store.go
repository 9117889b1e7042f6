package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydesk/relaydesk/internal/models"
)

// Store bundles the repository operations behind a value the sync engine,
// resolver, and send path can hold. Consumers declare narrow interfaces
// over the subset of methods they use, so they can be tested with in-memory
// fakes; Store is the production implementation over pgx.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool exposes the underlying connection pool for callers that need raw queries.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) ListMailboxes(ctx context.Context) ([]*models.Mailbox, error) {
	return ListMailboxes(ctx, s.pool)
}

func (s *Store) GetMailbox(ctx context.Context, mailboxID string) (*models.Mailbox, error) {
	return GetMailbox(ctx, s.pool, mailboxID)
}

func (s *Store) UpsertCustomer(ctx context.Context, businessID, email, nameHint, source string) (*models.Customer, error) {
	return UpsertCustomer(ctx, s.pool, businessID, email, nameHint, source)
}

func (s *Store) FindOrCreateThread(ctx context.Context, businessID, mailboxID, customerID, subjectHint string) (*models.EmailThread, error) {
	return FindOrCreateThread(ctx, s.pool, businessID, mailboxID, customerID, subjectHint)
}

func (s *Store) GetThread(ctx context.Context, threadID string) (*models.EmailThread, error) {
	return GetThread(ctx, s.pool, threadID)
}

func (s *Store) UpdateThreadLastMessage(ctx context.Context, threadID, messageID string, at time.Time) error {
	return UpdateThreadLastMessage(ctx, s.pool, threadID, messageID, at)
}

func (s *Store) AppendThreadReference(ctx context.Context, threadID, messageID string) error {
	return AppendThreadReference(ctx, s.pool, threadID, messageID)
}

func (s *Store) CreateEmail(ctx context.Context, email *models.Email) error {
	return CreateEmail(ctx, s.pool, email)
}

func (s *Store) GetEmailBySequence(ctx context.Context, mailboxID string, sequenceNum int64) (*models.Email, error) {
	return GetEmailBySequence(ctx, s.pool, mailboxID, sequenceNum)
}

func (s *Store) GetEmailByMessageID(ctx context.Context, messageID string) (*models.Email, error) {
	return GetEmailByMessageID(ctx, s.pool, messageID)
}

func (s *Store) MarkEmailRead(ctx context.Context, emailID string) error {
	return MarkEmailRead(ctx, s.pool, emailID)
}

func (s *Store) CreateAttachments(ctx context.Context, emailID string, attachments []*models.EmailAttachment) error {
	return CreateAttachments(ctx, s.pool, emailID, attachments)
}
