// Package resolver maps a counterpart address to its customer record and
// the single ongoing conversation thread for a (mailbox, customer) pair.
// Both the inbound pipeline and the outbound send path go through it, so
// traffic in either direction lands on the same thread.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/relaydesk/relaydesk/internal/models"
)

// Store is the subset of repository operations the resolver needs.
type Store interface {
	UpsertCustomer(ctx context.Context, businessID, email, nameHint, source string) (*models.Customer, error)
	FindOrCreateThread(ctx context.Context, businessID, mailboxID, customerID, subjectHint string) (*models.EmailThread, error)
}

// Resolver resolves customers and threads. Concurrency safety comes from the
// storage layer's upsert and find-or-create semantics, not in-process locking:
// simultaneous calls for the same customer converge on the same rows.
type Resolver struct {
	store Store
}

// New creates a Resolver over the given store.
func New(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve upserts the customer for (business, counterpart email) and returns
// the current thread for (mailbox, customer), creating one seeded with the
// subject hint if none exists. nameHint may be empty; a display name is then
// synthesized from the address's local-part.
func (r *Resolver) Resolve(ctx context.Context, businessID, mailboxID, counterpartEmail, nameHint, subjectHint, source string) (*models.Customer, *models.EmailThread, error) {
	email := strings.ToLower(strings.TrimSpace(counterpartEmail))
	if email == "" {
		return nil, nil, fmt.Errorf("counterpart email is empty")
	}

	name := strings.TrimSpace(nameHint)
	if name == "" {
		name = NameFromAddress(email)
	}

	customer, err := r.store.UpsertCustomer(ctx, businessID, email, name, source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve customer %s: %w", email, err)
	}

	thread, err := r.store.FindOrCreateThread(ctx, businessID, mailboxID, customer.ID, subjectHint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve thread for customer %s: %w", customer.ID, err)
	}

	return customer, thread, nil
}

// NameFromAddress synthesizes a display name from the local-part of an email
// address: separators become spaces and each word is capitalized, so
// "jane.doe@acme.com" yields "Jane Doe".
func NameFromAddress(email string) string {
	localPart := email
	if at := strings.Index(email, "@"); at >= 0 {
		localPart = email[:at]
	}

	words := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})

	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}
