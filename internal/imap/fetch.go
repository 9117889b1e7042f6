package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// FetchRecent fetches the most recent window messages from the currently
// selected folder, with envelope and full source, oldest first. It fetches
// by sequence number: total is the message count reported by the folder
// select. A zero or negative window fetches nothing.
func FetchRecent(c *client.Client, total uint32, window int) ([]*imap.Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	if total == 0 || window <= 0 {
		return []*imap.Message{}, nil
	}

	from := uint32(1)
	if uint32(window) < total {
		from = total - uint32(window) + 1
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, total)

	// Peek keeps the provider-side seen flags untouched.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchInternalDate,
		section.FetchItem(),
	}

	messages := make(chan *imap.Message, window)
	done := make(chan error, 1)

	go func() {
		done <- c.Fetch(seqSet, items, messages)
	}()

	var result []*imap.Message
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return result, nil
}
