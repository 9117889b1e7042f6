package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydesk/relaydesk/internal/models"
)

// ErrThreadNotFound is returned when a requested thread cannot be found.
var ErrThreadNotFound = errors.New("thread not found")

const threadColumns = `
	id,
	business_id,
	mailbox_id,
	customer_id,
	subject,
	status,
	is_starred,
	is_archived,
	is_deleted,
	last_message_at,
	last_message_id,
	references_chain,
	created_at`

// FindOrCreateThread returns the single current thread for (mailbox, customer),
// creating it with the given subject hint if none exists. The insert races
// against concurrent callers (inbound pipeline vs. send path) on the
// (mailbox_id, customer_id) unique index; the no-op DO UPDATE makes the
// statement return the surviving row either way, so both callers get the
// same thread regardless of prior archive state.
func FindOrCreateThread(ctx context.Context, pool *pgxpool.Pool, businessID, mailboxID, customerID, subjectHint string) (*models.EmailThread, error) {
	row := pool.QueryRow(ctx, `
		INSERT INTO email_threads (business_id, mailbox_id, customer_id, subject, status, last_message_at)
		VALUES ($1, $2, $3, $4, 'NEW', now())
		ON CONFLICT (mailbox_id, customer_id) WHERE customer_id IS NOT NULL DO UPDATE SET
			mailbox_id = EXCLUDED.mailbox_id
		RETURNING `+threadColumns+`
	`, businessID, mailboxID, customerID, subjectHint)

	thread, err := scanThread(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create thread: %w", err)
	}

	return thread, nil
}

// GetThread returns a thread by its ID.
func GetThread(ctx context.Context, pool *pgxpool.Pool, threadID string) (*models.EmailThread, error) {
	row := pool.QueryRow(ctx, `SELECT `+threadColumns+` FROM email_threads WHERE id = $1`, threadID)

	thread, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}

	return thread, nil
}

// UpdateThreadLastMessage records the latest message on a thread.
func UpdateThreadLastMessage(ctx context.Context, pool *pgxpool.Pool, threadID, messageID string, at time.Time) error {
	_, err := pool.Exec(ctx, `
		UPDATE email_threads
		SET last_message_at = $2, last_message_id = $3
		WHERE id = $1
	`, threadID, at, messageID)

	if err != nil {
		return fmt.Errorf("failed to update thread last message: %w", err)
	}

	return nil
}

// AppendThreadReference appends a message ID to the thread's accumulated
// References chain (space-joined), used to populate outbound References headers.
func AppendThreadReference(ctx context.Context, pool *pgxpool.Pool, threadID, messageID string) error {
	_, err := pool.Exec(ctx, `
		UPDATE email_threads
		SET references_chain = trim(references_chain || ' ' || $2)
		WHERE id = $1
	`, threadID, messageID)

	if err != nil {
		return fmt.Errorf("failed to append thread reference: %w", err)
	}

	return nil
}

func scanThread(row pgx.Row) (*models.EmailThread, error) {
	var thread models.EmailThread
	err := row.Scan(
		&thread.ID,
		&thread.BusinessID,
		&thread.MailboxID,
		&thread.CustomerID,
		&thread.Subject,
		&thread.Status,
		&thread.IsStarred,
		&thread.IsArchived,
		&thread.IsDeleted,
		&thread.LastMessageAt,
		&thread.LastMessageID,
		&thread.ReferencesChain,
		&thread.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &thread, nil
}
