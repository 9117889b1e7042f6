package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydesk/relaydesk/internal/models"
)

// CreateAttachments batch-inserts attachment records for an email.
func CreateAttachments(ctx context.Context, pool *pgxpool.Pool, emailID string, attachments []*models.EmailAttachment) error {
	if len(attachments) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, att := range attachments {
		batch.Queue(`
			INSERT INTO email_attachments (email_id, file_name, file_path, mime_type, size_bytes)
			VALUES ($1, $2, $3, $4, $5)
		`, emailID, att.FileName, att.FilePath, att.MimeType, att.SizeBytes)
	}

	results := pool.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range attachments {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to create attachment: %w", err)
		}
	}

	return nil
}

// GetAttachmentsForEmail returns all attachments for an email.
func GetAttachmentsForEmail(ctx context.Context, pool *pgxpool.Pool, emailID string) ([]*models.EmailAttachment, error) {
	rows, err := pool.Query(ctx, `
		SELECT id, email_id, file_name, file_path, mime_type, size_bytes
		FROM email_attachments
		WHERE email_id = $1
	`, emailID)

	if err != nil {
		return nil, fmt.Errorf("failed to get attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*models.EmailAttachment
	for rows.Next() {
		var att models.EmailAttachment
		if err := rows.Scan(
			&att.ID,
			&att.EmailID,
			&att.FileName,
			&att.FilePath,
			&att.MimeType,
			&att.SizeBytes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &att)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachments: %w", err)
	}

	return attachments, nil
}
