// Package dedupe computes the canonical content hash that makes transaction
// ingestion idempotent.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/finrota/bankfeed/internal/domain"
)

const descriptionPrefixLen = 120

// ContentHash returns the stable identity key of a transaction. The key is a
// pure function of timestamp, signed amount, post-balance and the
// description prefix; two records with the same hash are the same real-world
// event.
func ContentHash(tx *domain.Transaction) string {
	desc := tx.Description
	if runes := []rune(desc); len(runes) > descriptionPrefixLen {
		desc = string(runes[:descriptionPrefixLen])
	}

	key := fmt.Sprintf("%s|%s|%s|%s",
		tx.TimestampISO(),
		tx.Amount().StringFixed(2),
		tx.BalanceAfter.StringFixed(2),
		desc,
	)

	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Stamp computes and stores the content hash on the transaction.
func Stamp(tx *domain.Transaction) {
	tx.ContentHash = ContentHash(tx)
}
