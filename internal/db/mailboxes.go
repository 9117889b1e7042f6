package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydesk/relaydesk/internal/models"
)

// ErrMailboxNotFound is returned when a requested mailbox cannot be found.
var ErrMailboxNotFound = errors.New("mailbox not found")

const mailboxColumns = `
	id,
	business_id,
	email_address,
	imap_host,
	imap_port,
	imap_username,
	encrypted_imap_password,
	smtp_host,
	smtp_port,
	smtp_username,
	encrypted_smtp_password,
	use_ssl,
	created_at`

// ListMailboxes returns every configured mailbox. The sync supervisor uses
// this at process start to build the session population.
func ListMailboxes(ctx context.Context, pool *pgxpool.Pool) ([]*models.Mailbox, error) {
	rows, err := pool.Query(ctx, `SELECT `+mailboxColumns+` FROM mailboxes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	defer rows.Close()

	var mailboxes []*models.Mailbox
	for rows.Next() {
		mailbox, err := scanMailbox(rows)
		if err != nil {
			return nil, err
		}
		mailboxes = append(mailboxes, mailbox)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mailboxes: %w", err)
	}

	return mailboxes, nil
}

// GetMailbox returns a mailbox by its ID.
func GetMailbox(ctx context.Context, pool *pgxpool.Pool, mailboxID string) (*models.Mailbox, error) {
	row := pool.QueryRow(ctx, `SELECT `+mailboxColumns+` FROM mailboxes WHERE id = $1`, mailboxID)

	mailbox, err := scanMailbox(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}

	return mailbox, nil
}

// CreateMailbox inserts a mailbox and populates its ID.
func CreateMailbox(ctx context.Context, pool *pgxpool.Pool, mailbox *models.Mailbox) error {
	err := pool.QueryRow(ctx, `
		INSERT INTO mailboxes (
			business_id,
			email_address,
			imap_host,
			imap_port,
			imap_username,
			encrypted_imap_password,
			smtp_host,
			smtp_port,
			smtp_username,
			encrypted_smtp_password,
			use_ssl
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`,
		mailbox.BusinessID,
		mailbox.EmailAddress,
		mailbox.IMAPHost,
		mailbox.IMAPPort,
		mailbox.IMAPUsername,
		mailbox.EncryptedIMAPPassword,
		mailbox.SMTPHost,
		mailbox.SMTPPort,
		mailbox.SMTPUsername,
		mailbox.EncryptedSMTPPassword,
		mailbox.UseSSL,
	).Scan(&mailbox.ID, &mailbox.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create mailbox: %w", err)
	}

	return nil
}

func scanMailbox(row pgx.Row) (*models.Mailbox, error) {
	var mailbox models.Mailbox
	err := row.Scan(
		&mailbox.ID,
		&mailbox.BusinessID,
		&mailbox.EmailAddress,
		&mailbox.IMAPHost,
		&mailbox.IMAPPort,
		&mailbox.IMAPUsername,
		&mailbox.EncryptedIMAPPassword,
		&mailbox.SMTPHost,
		&mailbox.SMTPPort,
		&mailbox.SMTPUsername,
		&mailbox.EncryptedSMTPPassword,
		&mailbox.UseSSL,
		&mailbox.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan mailbox: %w", err)
	}
	return &mailbox, nil
}
