package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	goimap "github.com/emersion/go-imap"

	"github.com/relaydesk/relaydesk/internal/db"
	"github.com/relaydesk/relaydesk/internal/filter"
	"github.com/relaydesk/relaydesk/internal/imap"
	"github.com/relaydesk/relaydesk/internal/models"
)

// Pipeline ingests fetched messages: dedup, parse, admissibility filter,
// customer/thread resolution, persistence, and notification.
type Pipeline struct {
	store       Store
	resolver    Resolver
	attachments AttachmentSaver
	filter      filter.Predicate
	notifier    Notifier
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(store Store, resolver Resolver, attachments AttachmentSaver, predicate filter.Predicate, notifier Notifier) *Pipeline {
	return &Pipeline{
		store:       store,
		resolver:    resolver,
		attachments: attachments,
		filter:      predicate,
		notifier:    notifier,
	}
}

// IngestBatch runs the pipeline over one fetch cycle's messages in order.
// A failure on one message is logged and does not abort the batch.
func (p *Pipeline) IngestBatch(ctx context.Context, mailbox *models.Mailbox, messages []*goimap.Message) {
	for _, raw := range messages {
		if err := p.Ingest(ctx, mailbox, raw); err != nil {
			log.Printf("sync: mailbox %s: failed to ingest message seq=%d: %v", mailbox.ID, raw.SeqNum, err)
		}
	}
}

// Ingest processes one fetched message. Duplicates and policy rejections
// return nil; neither is an error.
func (p *Pipeline) Ingest(ctx context.Context, mailbox *models.Mailbox, raw *goimap.Message) error {
	if raw == nil {
		return fmt.Errorf("message is nil")
	}

	// Primary dedup key: (mailbox, sequence number), checked before parsing.
	sequenceNum := int64(raw.SeqNum)
	if sequenceNum > 0 {
		if _, err := p.store.GetEmailBySequence(ctx, mailbox.ID, sequenceNum); err == nil {
			return nil
		} else if !errors.Is(err, db.ErrEmailNotFound) {
			return fmt.Errorf("dedup lookup failed: %w", err)
		}
	}

	msg, err := imap.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	// Secondary dedup key when no sequence number is available.
	if sequenceNum == 0 && msg.MessageID != "" {
		if _, err := p.store.GetEmailByMessageID(ctx, msg.MessageID); err == nil {
			return nil
		} else if !errors.Is(err, db.ErrEmailNotFound) {
			return fmt.Errorf("dedup lookup failed: %w", err)
		}
	}

	if !p.filter.Admissible(msg.FromAddress) {
		// Business-relevance drop, not an error.
		return nil
	}

	email, err := p.persist(ctx, mailbox, sequenceNum, msg)
	if err != nil {
		return err
	}

	p.notifier.EmitToMailbox(mailbox.ID, EventEmailReceived, map[string]string{
		"email_id":  email.ID,
		"thread_id": email.ThreadID,
	})

	return nil
}

func (p *Pipeline) persist(ctx context.Context, mailbox *models.Mailbox, sequenceNum int64, msg *imap.ParsedMessage) (*models.Email, error) {
	_, thread, err := p.resolver.Resolve(ctx, mailbox.BusinessID, mailbox.ID, msg.FromAddress, msg.FromName, msg.Subject, models.SourceInboundEmail)
	if err != nil {
		return nil, err
	}

	receivedAt := msg.ReceivedAt
	email := &models.Email{
		ThreadID:         thread.ID,
		MailboxID:        mailbox.ID,
		MessageID:        msg.MessageID,
		InReplyTo:        msg.InReplyTo,
		ReferencesHeader: msg.References,
		FromAddress:      msg.FromAddress,
		ToAddresses:      msg.ToAddresses,
		CCAddresses:      msg.CCAddresses,
		Subject:          msg.Subject,
		BodyHTML:         msg.BodyHTML,
		BodyText:         msg.BodyText,
		Folder:           models.FolderInbox,
		Direction:        models.DirectionInbound,
		ReceivedAt:       &receivedAt,
	}
	if sequenceNum > 0 {
		email.SequenceNum = &sequenceNum
	}

	if err := p.store.CreateEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("failed to persist email: %w", err)
	}

	if len(msg.Attachments) > 0 {
		records := p.attachments.SaveAll(email.ID, msg.Attachments)
		if len(records) > 0 {
			if err := p.store.CreateAttachments(ctx, email.ID, records); err != nil {
				// The email row stands; attachment metadata loss is logged only.
				log.Printf("sync: mailbox %s: failed to record attachments for email %s: %v", mailbox.ID, email.ID, err)
			}
		}
	}

	if err := p.store.UpdateThreadLastMessage(ctx, thread.ID, msg.MessageID, receivedAt); err != nil {
		return nil, fmt.Errorf("failed to update thread: %w", err)
	}
	if msg.MessageID != "" {
		if err := p.store.AppendThreadReference(ctx, thread.ID, msg.MessageID); err != nil {
			return nil, fmt.Errorf("failed to extend thread references: %w", err)
		}
	}

	return email, nil
}
