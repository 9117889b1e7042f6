package models

import "time"

// Mailbox is a configured mail account owned by a business. Each mailbox
// has one live IMAP session managed by the sync supervisor.
type Mailbox struct {
	ID                    string    `json:"id"`
	BusinessID            string    `json:"business_id"`
	EmailAddress          string    `json:"email_address"`
	IMAPHost              string    `json:"imap_host"`
	IMAPPort              int       `json:"imap_port"`
	IMAPUsername          string    `json:"imap_username"`
	EncryptedIMAPPassword []byte    `json:"-"`
	SMTPHost              string    `json:"smtp_host"`
	SMTPPort              int       `json:"smtp_port"`
	SMTPUsername          string    `json:"smtp_username"`
	EncryptedSMTPPassword []byte    `json:"-"`
	UseSSL                bool      `json:"use_ssl"`
	CreatedAt             time.Time `json:"created_at"`
}

// HasInboundCredentials reports whether the mailbox is configured well enough
// to open an IMAP session. Mailboxes without inbound credentials are skipped
// at startup rather than retried.
func (m *Mailbox) HasInboundCredentials() bool {
	return m.IMAPHost != "" && m.IMAPPort != 0 && m.IMAPUsername != "" && len(m.EncryptedIMAPPassword) > 0
}

// HasOutboundCredentials reports whether the mailbox can deliver mail
// through its SMTP server.
func (m *Mailbox) HasOutboundCredentials() bool {
	return m.SMTPHost != "" && m.SMTPPort != 0 && m.SMTPUsername != "" && len(m.EncryptedSMTPPassword) > 0
}

// IMAPAddr returns the host:port address of the inbound server.
func (m *Mailbox) IMAPAddr() string {
	return addr(m.IMAPHost, m.IMAPPort)
}

// SMTPAddr returns the host:port address of the outbound server.
func (m *Mailbox) SMTPAddr() string {
	return addr(m.SMTPHost, m.SMTPPort)
}

// Customer is a correspondent resolved from mail traffic. Customers are
// unique per (business, email) and are never deleted by the sync engine.
type Customer struct {
	ID            string     `json:"id"`
	BusinessID    string     `json:"business_id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Source        string     `json:"source"`
	LastContactAt *time.Time `json:"last_contact_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Customer acquisition sources.
const (
	SourceInboundEmail  = "INBOUND_EMAIL"
	SourceOutboundEmail = "OUTBOUND_EMAIL"
)
