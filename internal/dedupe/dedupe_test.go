package dedupe

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finrota/bankfeed/internal/domain"
)

func tx(ts time.Time, amount, balance string, desc string) *domain.Transaction {
	t := &domain.Transaction{
		Timestamp:    ts,
		Description:  desc,
		BalanceAfter: decimal.RequireFromString(balance),
		Confidence:   1.0,
	}
	t.SetSignedAmount(decimal.RequireFromString(amount))
	return t
}

func TestContentHashStable(t *testing.T) {
	ts := time.Date(2025, 8, 11, 17, 39, 14, 0, time.UTC)
	a := tx(ts, "1250", "5000", "Gelen FAST - Ahmet Yılmaz")
	b := tx(ts, "1250.00", "5000.00", "Gelen FAST - Ahmet Yılmaz")

	assert.Equal(t, ContentHash(a), ContentHash(b), "2dp formatting must not change identity")
}

func TestContentHashDistinguishes(t *testing.T) {
	ts := time.Date(2025, 8, 11, 17, 39, 14, 0, time.UTC)
	base := tx(ts, "1250", "5000", "Gelen FAST - Ahmet Yılmaz")

	variants := []*domain.Transaction{
		tx(ts.Add(time.Second), "1250", "5000", "Gelen FAST - Ahmet Yılmaz"),
		tx(ts, "1250.01", "5000", "Gelen FAST - Ahmet Yılmaz"),
		tx(ts, "1250", "5000.01", "Gelen FAST - Ahmet Yılmaz"),
		tx(ts, "1250", "5000", "Gelen FAST - Mehmet Demir"),
	}
	for _, v := range variants {
		assert.NotEqual(t, ContentHash(base), ContentHash(v))
	}
}

func TestContentHashUsesDescriptionPrefixOnly(t *testing.T) {
	ts := time.Date(2025, 8, 11, 17, 39, 14, 0, time.UTC)
	long := strings.Repeat("a", 120)

	a := tx(ts, "10", "100", long+" first tail")
	b := tx(ts, "10", "100", long+" second tail")

	assert.Equal(t, ContentHash(a), ContentHash(b), "text past the 120-rune prefix is not identity")
}

func TestStamp(t *testing.T) {
	ts := time.Date(2025, 8, 11, 17, 39, 14, 0, time.UTC)
	v := tx(ts, "10", "100", "desc")
	Stamp(v)
	assert.Equal(t, ContentHash(v), v.ContentHash)
	assert.Len(t, v.ContentHash, 64)
}
