package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/finrota/bankfeed/internal/domain"
)

// Memory is an in-memory Store, safe for concurrent use. It backs tests and
// the CLI dry-run path; data is lost on process exit.
type Memory struct {
	mu     sync.RWMutex
	byHash map[string]*Stored
	byID   map[string]*Stored
	order  []*Stored
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byHash: make(map[string]*Stored),
		byID:   make(map[string]*Stored),
	}
}

// InsertIfAbsent implements Store.
func (s *Memory) InsertIfAbsent(ctx context.Context, tx *domain.Transaction) (string, bool, error) {
	if tx.ContentHash == "" {
		return "", false, fmt.Errorf("transaction has no content hash")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byHash[tx.ContentHash]; ok {
		return existing.ID, false, nil
	}

	row := &Stored{ID: uuid.NewString(), Tx: tx}
	s.byHash[tx.ContentHash] = row
	s.byID[row.ID] = row
	s.order = append(s.order, row)
	return row.ID, true, nil
}

// UpdateMatch implements Store.
func (s *Memory) UpdateMatch(ctx context.Context, id, customerID string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("transaction not found: %s", id)
	}
	row.Tx.MatchedCustomerID = customerID
	row.Tx.MatchConfidence = confidence
	return nil
}

// ListUnmatched implements Store.
func (s *Memory) ListUnmatched(ctx context.Context) ([]*Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Stored
	for _, row := range s.order {
		if row.Tx.MatchedCustomerID == "" {
			out = append(out, row)
		}
	}
	return out, nil
}

// Len returns the number of stored transactions.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

var _ Store = (*Memory)(nil)
