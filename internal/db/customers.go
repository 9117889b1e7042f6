package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/relaydesk/relaydesk/internal/models"
)

// ErrCustomerNotFound is returned when a requested customer cannot be found.
var ErrCustomerNotFound = errors.New("customer not found")

// UpsertCustomer creates or refreshes the customer for (business, email).
// The email is case-normalized. On conflict the last-contact timestamp is
// bumped and an empty name is backfilled with the hint; an existing name is
// never overwritten. Concurrent callers converge on the same row via the
// (business_id, lower(email)) unique index.
func UpsertCustomer(ctx context.Context, pool *pgxpool.Pool, businessID, email, nameHint, source string) (*models.Customer, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	var customer models.Customer
	err := pool.QueryRow(ctx, `
		INSERT INTO customers (business_id, email, name, source, last_contact_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (business_id, lower(email)) DO UPDATE SET
			last_contact_at = now(),
			name = CASE WHEN customers.name = '' THEN EXCLUDED.name ELSE customers.name END
		RETURNING id, business_id, email, name, source, last_contact_at, created_at
	`, businessID, normalized, nameHint, source).Scan(
		&customer.ID,
		&customer.BusinessID,
		&customer.Email,
		&customer.Name,
		&customer.Source,
		&customer.LastContactAt,
		&customer.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}

	return &customer, nil
}

// GetCustomerByEmail returns a customer by (business, email), case-insensitively.
func GetCustomerByEmail(ctx context.Context, pool *pgxpool.Pool, businessID, email string) (*models.Customer, error) {
	var customer models.Customer
	err := pool.QueryRow(ctx, `
		SELECT id, business_id, email, name, source, last_contact_at, created_at
		FROM customers
		WHERE business_id = $1 AND lower(email) = lower($2)
	`, businessID, email).Scan(
		&customer.ID,
		&customer.BusinessID,
		&customer.Email,
		&customer.Name,
		&customer.Source,
		&customer.LastContactAt,
		&customer.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &customer, nil
}
