package smtp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/jhillyerd/enmime"

	"github.com/relaydesk/relaydesk/internal/crypto"
	"github.com/relaydesk/relaydesk/internal/mailtext"
	"github.com/relaydesk/relaydesk/internal/models"
)

// Store is the repository surface the sender needs.
type Store interface {
	GetMailbox(ctx context.Context, mailboxID string) (*models.Mailbox, error)
	CreateEmail(ctx context.Context, email *models.Email) error
	UpdateThreadLastMessage(ctx context.Context, threadID, messageID string, at time.Time) error
	AppendThreadReference(ctx context.Context, threadID, messageID string) error
}

// Resolver maps the primary recipient to its customer and thread.
type Resolver interface {
	Resolve(ctx context.Context, businessID, mailboxID, counterpartEmail, nameHint, subjectHint, source string) (*models.Customer, *models.EmailThread, error)
}

// Transport delivers a built message to the provider. The default uses
// go-smtp with SASL PLAIN; tests substitute a local server or a recorder.
type Transport func(addr string, useTLS bool, auth sasl.Client, from string, recipients []string, r io.Reader) error

func defaultTransport(addr string, useTLS bool, auth sasl.Client, from string, recipients []string, r io.Reader) error {
	var c *smtp.Client
	var err error
	if useTLS {
		c, err = smtp.DialTLS(addr, nil)
	} else {
		c, err = smtp.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer func() {
		_ = c.Close()
	}()

	if !useTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(nil); err != nil {
				return fmt.Errorf("starttls failed: %w", err)
			}
		}
	}

	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	if err := c.Mail(from, nil); err != nil {
		return fmt.Errorf("mail from rejected: %w", err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return fmt.Errorf("recipient %s rejected: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return c.Quit()
}

// Sender builds and delivers outbound mail, then records it in the same
// thread an inbound reply would land in.
type Sender struct {
	store     Store
	resolver  Resolver
	encryptor *crypto.Encryptor
	transport Transport
}

func NewSender(store Store, resolver Resolver, encryptor *crypto.Encryptor) *Sender {
	return &Sender{
		store:     store,
		resolver:  resolver,
		encryptor: encryptor,
		transport: defaultTransport,
	}
}

// NewSenderWithTransport is used by tests to intercept delivery.
func NewSenderWithTransport(store Store, resolver Resolver, encryptor *crypto.Encryptor, transport Transport) *Sender {
	s := NewSender(store, resolver, encryptor)
	s.transport = transport
	return s
}

// Send delivers one message from the mailbox to the given recipients and
// persists it as an outbound email. Nothing is persisted unless the
// provider accepts the message: a transport failure leaves no record.
func (s *Sender) Send(ctx context.Context, mailboxID string, to, cc, bcc []string, subject, htmlBody, userID string) (*models.Email, error) {
	if len(to) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}

	mailbox, err := s.store.GetMailbox(ctx, mailboxID)
	if err != nil {
		return nil, err
	}
	if !mailbox.HasOutboundCredentials() {
		return nil, fmt.Errorf("mailbox %s has no outbound credentials", mailboxID)
	}

	password, err := s.encryptor.Decrypt(mailbox.EncryptedSMTPPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt outbound password: %w", err)
	}

	// The primary recipient determines the customer and thread.
	_, thread, err := s.resolver.Resolve(ctx, mailbox.BusinessID, mailboxID, to[0], "", subject, models.SourceOutboundEmail)
	if err != nil {
		return nil, err
	}

	if thread.LastMessageID != "" {
		subject = replySubject(subject)
	}
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), addressDomain(mailbox.EmailAddress))

	bodyText := mailtext.HTMLToText(htmlBody)

	raw, err := buildMessage(mailbox.EmailAddress, to, cc, bcc, subject, htmlBody, bodyText, messageID, thread)
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(to)+len(cc)+len(bcc))
	recipients = append(recipients, to...)
	recipients = append(recipients, cc...)
	recipients = append(recipients, bcc...)

	auth := sasl.NewPlainClient("", mailbox.SMTPUsername, password)
	if err := s.transport(mailbox.SMTPAddr(), mailbox.UseSSL, auth, mailbox.EmailAddress, recipients, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("smtp delivery failed: %w", err)
	}

	now := time.Now()
	email := &models.Email{
		ThreadID:         thread.ID,
		MailboxID:        mailboxID,
		MessageID:        messageID,
		InReplyTo:        thread.LastMessageID,
		ReferencesHeader: thread.ReferencesChain,
		FromAddress:      mailbox.EmailAddress,
		ToAddresses:      to,
		CCAddresses:      cc,
		BCCAddresses:     bcc,
		Subject:          subject,
		BodyHTML:         htmlBody,
		BodyText:         mailtext.StripQuotedReplies(bodyText),
		Folder:           models.FolderSent,
		Direction:        models.DirectionOutbound,
		IsRead:           true,
		SentAt:           &now,
	}
	if userID != "" {
		email.UserID = &userID
	}

	if err := s.store.CreateEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("message delivered but not recorded: %w", err)
	}
	if err := s.store.UpdateThreadLastMessage(ctx, thread.ID, messageID, now); err != nil {
		return nil, fmt.Errorf("failed to update thread: %w", err)
	}
	if err := s.store.AppendThreadReference(ctx, thread.ID, messageID); err != nil {
		return nil, fmt.Errorf("failed to extend thread references: %w", err)
	}

	return email, nil
}

// buildMessage assembles the MIME source with threading headers taken from
// the thread's current state, so providers group the reply correctly.
func buildMessage(from string, to, cc, bcc []string, subject, htmlBody, textBody, messageID string, thread *models.EmailThread) ([]byte, error) {
	builder := enmime.Builder().
		From("", from).
		Subject(subject).
		HTML([]byte(htmlBody)).
		Text([]byte(textBody)).
		Header("Message-Id", messageID)

	for _, addr := range to {
		builder = builder.To("", addr)
	}
	for _, addr := range cc {
		builder = builder.CC("", addr)
	}
	for _, addr := range bcc {
		builder = builder.BCC("", addr)
	}

	if thread.LastMessageID != "" {
		builder = builder.Header("In-Reply-To", thread.LastMessageID)
	}
	if thread.ReferencesChain != "" {
		builder = builder.Header("References", thread.ReferencesChain)
	}

	part, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// replySubject prefixes a reply subject unless it already carries one.
func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(subject)), "re:") {
		return subject
	}
	return "Re: " + subject
}

// addressDomain extracts the domain used for generated Message-IDs.
func addressDomain(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
