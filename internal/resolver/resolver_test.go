package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaydesk/relaydesk/internal/models"
)

// fakeStore is an in-memory Store double keyed the same way the schema is.
type fakeStore struct {
	customers map[string]*models.Customer    // businessID|email
	threads   map[string]*models.EmailThread // mailboxID|customerID
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[string]*models.Customer),
		threads:   make(map[string]*models.EmailThread),
	}
}

func (s *fakeStore) id() string {
	s.nextID++
	return string(rune('a' + s.nextID - 1))
}

func (s *fakeStore) UpsertCustomer(_ context.Context, businessID, email, nameHint, source string) (*models.Customer, error) {
	key := businessID + "|" + email
	if existing, ok := s.customers[key]; ok {
		return existing, nil
	}
	customer := &models.Customer{ID: s.id(), BusinessID: businessID, Email: email, Name: nameHint, Source: source}
	s.customers[key] = customer
	return customer, nil
}

func (s *fakeStore) FindOrCreateThread(_ context.Context, businessID, mailboxID, customerID, subjectHint string) (*models.EmailThread, error) {
	key := mailboxID + "|" + customerID
	if existing, ok := s.threads[key]; ok {
		return existing, nil
	}
	thread := &models.EmailThread{
		ID:         s.id(),
		BusinessID: businessID,
		MailboxID:  mailboxID,
		CustomerID: &customerID,
		Subject:    subjectHint,
		Status:     models.ThreadStatusNew,
	}
	s.threads[key] = thread
	return thread, nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("creates customer and thread on first contact", func(t *testing.T) {
		r := New(newFakeStore())

		customer, thread, err := r.Resolve(ctx, "biz-1", "mb-1", "jane.doe@acme.com", "", "Order #55", models.SourceInboundEmail)
		require.NoError(t, err)

		assert.Equal(t, "jane.doe@acme.com", customer.Email)
		assert.Equal(t, "Jane Doe", customer.Name)
		assert.Equal(t, "Order #55", thread.Subject)
		require.NotNil(t, thread.CustomerID)
		assert.Equal(t, customer.ID, *thread.CustomerID)
	})

	t.Run("reuses the thread for repeat traffic in both directions", func(t *testing.T) {
		r := New(newFakeStore())

		_, first, err := r.Resolve(ctx, "biz-1", "mb-1", "jane@acme.com", "", "Order #55", models.SourceInboundEmail)
		require.NoError(t, err)

		_, second, err := r.Resolve(ctx, "biz-1", "mb-1", "JANE@acme.com", "Jane D", "Re: Order #55", models.SourceOutboundEmail)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Order #55", second.Subject, "existing thread keeps its original subject")
	})

	t.Run("uses the display name hint when provided", func(t *testing.T) {
		r := New(newFakeStore())

		customer, _, err := r.Resolve(ctx, "biz-1", "mb-1", "jane@acme.com", "Jane Q. Doe", "Hi", models.SourceInboundEmail)
		require.NoError(t, err)
		assert.Equal(t, "Jane Q. Doe", customer.Name)
	})

	t.Run("rejects an empty address", func(t *testing.T) {
		r := New(newFakeStore())

		_, _, err := r.Resolve(ctx, "biz-1", "mb-1", "  ", "", "Hi", models.SourceInboundEmail)
		assert.Error(t, err)
	})

	t.Run("separate mailboxes get separate threads", func(t *testing.T) {
		r := New(newFakeStore())

		_, first, err := r.Resolve(ctx, "biz-1", "mb-1", "jane@acme.com", "", "A", models.SourceInboundEmail)
		require.NoError(t, err)
		_, second, err := r.Resolve(ctx, "biz-1", "mb-2", "jane@acme.com", "", "B", models.SourceInboundEmail)
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
	})
}

func TestNameFromAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"jane.doe@acme.com", "Jane Doe"},
		{"john_smith@example.org", "John Smith"},
		{"mary-jane@example.org", "Mary Jane"},
		{"bob@example.org", "Bob"},
		{"a.b.c@example.org", "A B C"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NameFromAddress(tt.in), "address %q", tt.in)
	}
}
