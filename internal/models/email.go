package models

import (
	"fmt"
	"time"
)

// Thread statuses.
const (
	ThreadStatusNew    = "NEW"
	ThreadStatusOpened = "OPENED"
)

// Email folders and directions.
const (
	FolderInbox = "INBOX"
	FolderSent  = "SENT"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// EmailThread groups all mail between a mailbox and one resolved customer.
// For a given (mailbox, customer) pair at most one thread is current for
// threading purposes; the resolver reuses the existing thread before
// creating a new one.
type EmailThread struct {
	ID              string     `json:"id"`
	BusinessID      string     `json:"business_id"`
	MailboxID       string     `json:"mailbox_id"`
	CustomerID      *string    `json:"customer_id"`
	Subject         string     `json:"subject"`
	Status          string     `json:"status"`
	IsStarred       bool       `json:"is_starred"`
	IsArchived      bool       `json:"is_archived"`
	IsDeleted       bool       `json:"is_deleted"`
	LastMessageAt   *time.Time `json:"last_message_at"`
	LastMessageID   string     `json:"last_message_id"`
	ReferencesChain string     `json:"references_chain"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Email is one message in a thread. Rows are immutable once created except
// for the read flag. For inbound mail (mailbox_id, sequence_num) is the
// primary dedup key; message_id is the secondary key.
type Email struct {
	ID               string     `json:"id"`
	ThreadID         string     `json:"thread_id"`
	MailboxID        string     `json:"mailbox_id"`
	UserID           *string    `json:"user_id"`
	MessageID        string     `json:"message_id"`
	SequenceNum      *int64     `json:"sequence_num"`
	InReplyTo        string     `json:"in_reply_to"`
	ReferencesHeader string     `json:"references_header"`
	FromAddress      string     `json:"from_address"`
	ToAddresses      []string   `json:"to_addresses"`
	CCAddresses      []string   `json:"cc_addresses"`
	BCCAddresses     []string   `json:"bcc_addresses"`
	Subject          string     `json:"subject"`
	BodyHTML         string     `json:"body_html"`
	BodyText         string     `json:"body_text"`
	Folder           string     `json:"folder"`
	Direction        string     `json:"direction"`
	IsRead           bool       `json:"is_read"`
	SentAt           *time.Time `json:"sent_at"`
	ReceivedAt       *time.Time `json:"received_at"`
}

// EmailAttachment is a file persisted from a message. It is exclusively
// owned by its email and is removed with it.
type EmailAttachment struct {
	ID        string `json:"id"`
	EmailID   string `json:"email_id"`
	FileName  string `json:"file_name"`
	FilePath  string `json:"file_path"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

func addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
