package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrota/bankfeed/internal/dedupe"
	"github.com/finrota/bankfeed/internal/domain"
)

func tx(minuteOffset int, amount, balance string) *domain.Transaction {
	t := &domain.Transaction{
		Timestamp:    time.Date(2025, 8, 11, 10, 0, 0, 0, time.UTC).Add(time.Duration(minuteOffset) * time.Minute),
		BalanceAfter: decimal.RequireFromString(balance),
		Confidence:   1.0,
	}
	t.SetSignedAmount(decimal.RequireFromString(amount))
	return t
}

func TestCheckFlagsBalanceGap(t *testing.T) {
	// Balances [100, 150, 140] with movements [-, +50, -5]:
	// 150 + 0 - 5 = 145 != 140 beyond tolerance, so the third record is
	// anomalous and its confidence drops to 0.8.
	txs := []*domain.Transaction{
		tx(0, "100", "100"),
		tx(1, "50", "150"),
		tx(2, "-5", "140"),
	}

	res := Check(txs)

	assert.Equal(t, 1, res.Anomalies)
	assert.Empty(t, txs[0].Anomalies)
	assert.Empty(t, txs[1].Anomalies)
	require.Len(t, txs[2].Anomalies, 1)
	assert.InDelta(t, 0.8, txs[2].Confidence, 1e-9)
}

func TestCheckWithinTolerance(t *testing.T) {
	txs := []*domain.Transaction{
		tx(0, "100", "100"),
		tx(1, "50", "150.01"),
	}

	res := Check(txs)
	assert.Zero(t, res.Anomalies)
	assert.Equal(t, 1.0, txs[1].Confidence)
}

func TestCheckSortsByTimestampStable(t *testing.T) {
	// Arbitrary input order; the checker sorts before pairing.
	a := tx(2, "-5", "145")
	b := tx(0, "100", "100")
	c := tx(1, "50", "150")

	res := Check([]*domain.Transaction{a, c, b})
	assert.Zero(t, res.Anomalies)
}

func TestCheckFlagsWithinBatchDuplicate(t *testing.T) {
	a := tx(0, "100", "100")
	b := tx(1, "50", "150")
	dup := tx(1, "0", "150") // balance-consistent, identity clashes with b
	dedupe.Stamp(a)
	dedupe.Stamp(b)
	dup.ContentHash = b.ContentHash

	res := Check([]*domain.Transaction{a, b, dup})

	assert.Equal(t, 1, res.Duplicates)
	assert.InDelta(t, 0.5, dup.Confidence, 1e-9)
}

func TestAnomaliesCompoundMultiplicatively(t *testing.T) {
	a := tx(0, "100", "100")
	b := tx(1, "50", "150")
	dup := tx(1, "50", "140") // duplicate timestamp+amount, broken balance
	dedupe.Stamp(a)
	dedupe.Stamp(b)
	dup.ContentHash = b.ContentHash

	Check([]*domain.Transaction{a, b, dup})

	require.Len(t, dup.Anomalies, 2)
	assert.InDelta(t, 0.5*0.8, dup.Confidence, 1e-9)
}
