// Package store persists canonical transactions. Insertion is idempotent by
// content hash: a record whose hash already exists is skipped and counted,
// never overwritten and never an error.
package store

import (
	"context"

	"github.com/finrota/bankfeed/internal/domain"
)

// Stored is a persisted transaction together with its storage id.
type Stored struct {
	ID string
	Tx *domain.Transaction
}

// Store is the transaction store collaborator.
type Store interface {
	// InsertIfAbsent persists the transaction unless its content hash is
	// already present. It returns the storage id of the row (existing or
	// new) and whether a new row was written.
	InsertIfAbsent(ctx context.Context, tx *domain.Transaction) (id string, inserted bool, err error)

	// UpdateMatch attaches the winning customer and match confidence to a
	// stored transaction. This is the only mutation allowed after
	// persistence.
	UpdateMatch(ctx context.Context, id, customerID string, confidence float64) error

	// ListUnmatched returns stored transactions that have no match yet, in
	// insertion order.
	ListUnmatched(ctx context.Context) ([]*Stored, error)
}
