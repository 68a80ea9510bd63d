// Package reconcile validates that the running-balance sequence of a batch
// is internally consistent. It only annotates: amounts are never changed and
// records are never removed.
package reconcile

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/finrota/bankfeed/internal/domain"
)

// Balance tolerance of 0.01 currency units.
var tolerance = decimal.New(1, -2)

const (
	anomalyFactor   = 0.8
	duplicateFactor = 0.5
)

// Result reports what the checker flagged.
type Result struct {
	Anomalies  int
	Duplicates int
}

// Check stable-sorts the batch by timestamp ascending (ties keep original
// order) and verifies each consecutive pair: the current balance must equal
// the previous balance plus this record's value movement, within tolerance.
// Violations append an anomaly and degrade confidence by 0.8; a content hash
// already seen in the same batch degrades by 0.5. Content hashes must be
// stamped before calling Check.
func Check(txs []*domain.Transaction) Result {
	var res Result

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Timestamp.Before(txs[j].Timestamp)
	})

	seen := make(map[string]bool, len(txs))
	for i, tx := range txs {
		if tx.ContentHash != "" {
			if seen[tx.ContentHash] {
				tx.AddAnomaly("duplicate content within batch", duplicateFactor)
				res.Duplicates++
			}
			seen[tx.ContentHash] = true
		}

		if i == 0 {
			continue
		}
		prev := txs[i-1]
		expected := prev.BalanceAfter.Add(tx.Credit).Sub(tx.Debit)
		diff := expected.Sub(tx.BalanceAfter).Abs()
		if diff.GreaterThan(tolerance) {
			tx.AddAnomaly(
				fmt.Sprintf("balance mismatch: expected %s after %s, statement says %s",
					expected.StringFixed(2), prev.BalanceAfter.StringFixed(2), tx.BalanceAfter.StringFixed(2)),
				anomalyFactor,
			)
			res.Anomalies++
		}
	}

	return res
}
