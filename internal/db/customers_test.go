package db

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/relaydesk/relaydesk/internal/models"
	"github.com/relaydesk/relaydesk/internal/testutil"
)

func TestUpsertCustomer(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	businessID := uuid.NewString()

	t.Run("creates a new customer", func(t *testing.T) {
		customer, err := UpsertCustomer(ctx, pool, businessID, "jane@acme.com", "Jane Doe", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer failed: %v", err)
		}
		if customer.ID == "" {
			t.Error("Expected customer ID to be set")
		}
		if customer.Name != "Jane Doe" {
			t.Errorf("Expected name Jane Doe, got %s", customer.Name)
		}
		if customer.LastContactAt == nil {
			t.Error("Expected last_contact_at to be set")
		}
	})

	t.Run("repeated upsert returns the same customer", func(t *testing.T) {
		first, err := UpsertCustomer(ctx, pool, businessID, "bob@acme.com", "", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer failed: %v", err)
		}

		second, err := UpsertCustomer(ctx, pool, businessID, "bob@acme.com", "", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer (repeat) failed: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("Expected same customer ID, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("email matching is case-insensitive", func(t *testing.T) {
		first, err := UpsertCustomer(ctx, pool, businessID, "carol@acme.com", "", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer failed: %v", err)
		}

		second, err := UpsertCustomer(ctx, pool, businessID, "Carol@ACME.com", "", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer (mixed case) failed: %v", err)
		}

		if first.ID != second.ID {
			t.Errorf("Expected same customer for case variants, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("name is backfilled only when empty", func(t *testing.T) {
		_, err := UpsertCustomer(ctx, pool, businessID, "dan@acme.com", "", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer failed: %v", err)
		}

		withName, err := UpsertCustomer(ctx, pool, businessID, "dan@acme.com", "Dan Smith", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer (backfill) failed: %v", err)
		}
		if withName.Name != "Dan Smith" {
			t.Errorf("Expected backfilled name Dan Smith, got %s", withName.Name)
		}

		renamed, err := UpsertCustomer(ctx, pool, businessID, "dan@acme.com", "Someone Else", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer (rename attempt) failed: %v", err)
		}
		if renamed.Name != "Dan Smith" {
			t.Errorf("Expected existing name to be kept, got %s", renamed.Name)
		}
	})

	t.Run("same email in another business is a different customer", func(t *testing.T) {
		first, err := UpsertCustomer(ctx, pool, businessID, "eve@acme.com", "", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer failed: %v", err)
		}

		otherBusiness := uuid.NewString()
		second, err := UpsertCustomer(ctx, pool, otherBusiness, "eve@acme.com", "", models.SourceInboundEmail)
		if err != nil {
			t.Fatalf("UpsertCustomer (other business) failed: %v", err)
		}

		if first.ID == second.ID {
			t.Error("Expected distinct customers across businesses")
		}
	})
}

func TestGetCustomerByEmail(t *testing.T) {
	pool := testutil.NewTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	businessID := uuid.NewString()

	created, err := UpsertCustomer(ctx, pool, businessID, "jane@acme.com", "Jane", models.SourceInboundEmail)
	if err != nil {
		t.Fatalf("UpsertCustomer failed: %v", err)
	}

	t.Run("finds existing customer", func(t *testing.T) {
		customer, err := GetCustomerByEmail(ctx, pool, businessID, "JANE@acme.com")
		if err != nil {
			t.Fatalf("GetCustomerByEmail failed: %v", err)
		}
		if customer.ID != created.ID {
			t.Errorf("Expected customer %s, got %s", created.ID, customer.ID)
		}
	})

	t.Run("returns ErrCustomerNotFound for unknown email", func(t *testing.T) {
		_, err := GetCustomerByEmail(ctx, pool, businessID, "nobody@acme.com")
		if !errors.Is(err, ErrCustomerNotFound) {
			t.Errorf("Expected ErrCustomerNotFound, got %v", err)
		}
	})
}
