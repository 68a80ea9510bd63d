// Package directory exposes the customer directory collaborator: active
// customers with their name variations and recent transaction history,
// read-only from the matching core's perspective.
package directory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PastTransaction is one historical amount used by the amount-pattern
// matcher.
type PastTransaction struct {
	Amount decimal.Decimal
	Date   time.Time
}

// Customer is one known account holder the matcher can score against.
type Customer struct {
	ID   string
	Name string

	// AlternateNames holds recorded original/alternate spellings.
	AlternateNames []string

	// Excluded marks internal/factoring accounts; these are never match
	// targets.
	Excluded bool

	RecentTransactions []PastTransaction
}

// Directory lists active, non-excluded customers.
type Directory interface {
	ListActiveCustomers(ctx context.Context) ([]*Customer, error)
}

// InMemory is a Directory backed by a fixed slice, used by tests and the CLI
// dry-run path.
type InMemory struct {
	Customers []*Customer
}

// ListActiveCustomers returns the non-excluded customers.
func (d *InMemory) ListActiveCustomers(ctx context.Context) ([]*Customer, error) {
	out := make([]*Customer, 0, len(d.Customers))
	for _, c := range d.Customers {
		if c.Excluded {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
