package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydesk/relaydesk/internal/models"
)

// ErrEmailNotFound is returned when a requested email cannot be found.
var ErrEmailNotFound = errors.New("email not found")

const emailColumns = `
	id,
	thread_id,
	mailbox_id,
	user_id,
	message_id,
	sequence_num,
	in_reply_to,
	references_header,
	from_address,
	to_addresses,
	cc_addresses,
	bcc_addresses,
	subject,
	body_html,
	body_text,
	folder,
	direction,
	is_read,
	sent_at,
	received_at`

// CreateEmail inserts an email row and populates its ID. Rows are immutable
// after creation except for the read flag, so this is a plain insert; the
// (mailbox_id, sequence_num) unique index backstops the pipeline's dedup check.
func CreateEmail(ctx context.Context, pool *pgxpool.Pool, email *models.Email) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO emails (
			thread_id,
			mailbox_id,
			user_id,
			message_id,
			sequence_num,
			in_reply_to,
			references_header,
			from_address,
			to_addresses,
			cc_addresses,
			bcc_addresses,
			subject,
			body_html,
			body_text,
			folder,
			direction,
			is_read,
			sent_at,
			received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING id
	`,
		email.ThreadID,
		email.MailboxID,
		email.UserID,
		email.MessageID,
		email.SequenceNum,
		email.InReplyTo,
		email.ReferencesHeader,
		email.FromAddress,
		email.ToAddresses,
		email.CCAddresses,
		email.BCCAddresses,
		email.Subject,
		email.BodyHTML,
		email.BodyText,
		email.Folder,
		email.Direction,
		email.IsRead,
		email.SentAt,
		email.ReceivedAt,
	).Scan(&email.ID)

	if err != nil {
		return fmt.Errorf("failed to create email: %w", err)
	}

	return nil
}

// GetEmailBySequence returns an inbound email by its per-mailbox sequence
// number, the primary dedup key.
func GetEmailBySequence(ctx context.Context, pool *pgxpool.Pool, mailboxID string, sequenceNum int64) (*models.Email, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+emailColumns+`
		FROM emails
		WHERE mailbox_id = $1 AND sequence_num = $2
	`, mailboxID, sequenceNum)

	return scanEmail(row)
}

// GetEmailByMessageID returns an email by its provider message ID, the
// secondary dedup key used when no sequence number is available.
func GetEmailByMessageID(ctx context.Context, pool *pgxpool.Pool, messageID string) (*models.Email, error) {
	row := pool.QueryRow(ctx, `
		SELECT `+emailColumns+`
		FROM emails
		WHERE message_id = $1
		LIMIT 1
	`, messageID)

	return scanEmail(row)
}

// GetEmailsForThread returns all emails in a thread, oldest first.
func GetEmailsForThread(ctx context.Context, pool *pgxpool.Pool, threadID string) ([]*models.Email, error) {
	rows, err := pool.Query(ctx, `
		SELECT `+emailColumns+`
		FROM emails
		WHERE thread_id = $1
		ORDER BY COALESCE(sent_at, received_at) NULLS LAST
	`, threadID)

	if err != nil {
		return nil, fmt.Errorf("failed to get emails: %w", err)
	}
	defer rows.Close()

	var emails []*models.Email
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emails: %w", err)
	}

	return emails, nil
}

// MarkEmailRead sets the read flag, the only mutation allowed on an email.
func MarkEmailRead(ctx context.Context, pool *pgxpool.Pool, emailID string) error {
	_, err := pool.Exec(ctx, `UPDATE emails SET is_read = TRUE WHERE id = $1`, emailID)
	if err != nil {
		return fmt.Errorf("failed to mark email read: %w", err)
	}
	return nil
}

func scanEmail(row pgx.Row) (*models.Email, error) {
	var email models.Email
	err := row.Scan(
		&email.ID,
		&email.ThreadID,
		&email.MailboxID,
		&email.UserID,
		&email.MessageID,
		&email.SequenceNum,
		&email.InReplyTo,
		&email.ReferencesHeader,
		&email.FromAddress,
		&email.ToAddresses,
		&email.CCAddresses,
		&email.BCCAddresses,
		&email.Subject,
		&email.BodyHTML,
		&email.BodyText,
		&email.Folder,
		&email.Direction,
		&email.IsRead,
		&email.SentAt,
		&email.ReceivedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmailNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan email: %w", err)
	}

	return &email, nil
}
