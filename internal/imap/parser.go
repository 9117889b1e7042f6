package imap

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/relaydesk/relaydesk/internal/mailtext"
)

// NoSubject is stored when a message arrives without a subject line.
const NoSubject = "(no subject)"

// FilePart is one attachment extracted from a message, with its raw content.
type FilePart struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ParsedMessage is the pipeline-facing form of one fetched message.
type ParsedMessage struct {
	SequenceNum int64
	MessageID   string
	InReplyTo   string
	References  string
	FromAddress string
	FromName    string
	ToAddresses []string
	CCAddresses []string
	Subject     string
	BodyHTML    string
	BodyText    string
	ReceivedAt  time.Time
	Attachments []FilePart
}

// Parse converts a fetched IMAP message into a ParsedMessage. The HTML body
// is preferred; a text-only message is wrapped as HTML. The text body is a
// cleaned summary with quoted reply chains stripped.
func Parse(imapMsg *imap.Message) (*ParsedMessage, error) {
	if imapMsg == nil {
		return nil, fmt.Errorf("imap message is nil")
	}

	msg := &ParsedMessage{
		SequenceNum: int64(imapMsg.SeqNum),
		Subject:     NoSubject,
		ReceivedAt:  imapMsg.InternalDate,
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	if env := imapMsg.Envelope; env != nil {
		if len(env.From) > 0 && env.From[0] != nil {
			msg.FromAddress = addressString(env.From[0])
			msg.FromName = env.From[0].PersonalName
		}
		msg.ToAddresses = addressList(env.To)
		msg.CCAddresses = addressList(env.Cc)
		if env.Subject != "" {
			msg.Subject = env.Subject
		}
		msg.MessageID = env.MessageId
		msg.InReplyTo = env.InReplyTo
		if !env.Date.IsZero() {
			msg.ReceivedAt = env.Date
		}
	}

	bodyReader := messageBody(imapMsg)
	if bodyReader != nil {
		if err := parseBody(bodyReader, msg); err != nil {
			return nil, err
		}
	}

	if msg.FromAddress == "" {
		return nil, fmt.Errorf("message %q has no sender address", msg.MessageID)
	}

	return msg, nil
}

// messageBody returns the reader for the message's full source, or nil when
// only the envelope was fetched.
func messageBody(imapMsg *imap.Message) io.Reader {
	for _, section := range []*imap.BodySectionName{{Peek: true}, {}} {
		if r := imapMsg.GetBody(section); r != nil {
			return r
		}
	}
	return nil
}

// parseBody fills bodies, threading headers, and attachments from the MIME source.
func parseBody(bodyReader io.Reader, msg *ParsedMessage) error {
	envelope, err := enmime.ReadEnvelope(bodyReader)
	if err != nil {
		return fmt.Errorf("failed to parse message body: %w", err)
	}

	if v := strings.TrimSpace(envelope.GetHeader("Message-Id")); v != "" {
		msg.MessageID = v
	}
	if v := strings.TrimSpace(envelope.GetHeader("In-Reply-To")); v != "" {
		msg.InReplyTo = v
	}
	msg.References = strings.TrimSpace(envelope.GetHeader("References"))

	html := envelope.HTML
	text := envelope.Text
	if html == "" && text != "" {
		html = mailtext.WrapPlainAsHTML(text)
	}
	if text == "" && html != "" {
		text = mailtext.HTMLToText(html)
	}
	msg.BodyHTML = html
	msg.BodyText = mailtext.StripQuotedReplies(text)

	for _, part := range envelope.Attachments {
		msg.Attachments = append(msg.Attachments, FilePart{
			FileName:    part.FileName,
			ContentType: part.ContentType,
			Content:     part.Content,
		})
	}

	return nil
}

// addressString formats an IMAP envelope address as local@host.
func addressString(address *imap.Address) string {
	if address == nil || address.MailboxName == "" || address.HostName == "" {
		return ""
	}
	return address.MailboxName + "@" + address.HostName
}

func addressList(addresses []*imap.Address) []string {
	result := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if formatted := addressString(address); formatted != "" {
			result = append(result, formatted)
		}
	}
	return result
}
