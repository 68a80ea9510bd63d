package match

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finrota/bankfeed/internal/directory"
	"github.com/finrota/bankfeed/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func creditTx(name, amount string) *domain.Transaction {
	tx := &domain.Transaction{CounterpartyName: name, Confidence: 1.0}
	tx.SetSignedAmount(dec(amount))
	return tx
}

func history(now time.Time, daysAgoAmounts map[int]string) []directory.PastTransaction {
	var out []directory.PastTransaction
	for days, amt := range daysAgoAmounts {
		out = append(out, directory.PastTransaction{
			Amount: dec(amt),
			Date:   now.AddDate(0, 0, -days),
		})
	}
	return out
}

func TestAmountScoreExact(t *testing.T) {
	now := time.Now()
	conf, method := amountScore(dec("1250"), history(now, map[int]string{3: "1250.00", 9: "700"}), now)
	assert.Equal(t, 0.9, conf)
	assert.Equal(t, "amount_exact", method)
}

func TestAmountScoreAverage(t *testing.T) {
	now := time.Now()
	conf, method := amountScore(dec("102"), history(now, map[int]string{3: "100", 9: "104"}), now)
	assert.Equal(t, 0.7, conf)
	assert.Equal(t, "amount_average", method)
}

func TestAmountScoreTrend(t *testing.T) {
	now := time.Now()
	// 100, 110, 120 on consecutive dates: average delta 10 predicts 130.
	conf, method := amountScore(dec("130"), history(now, map[int]string{1: "120", 2: "110", 3: "100"}), now)
	assert.Equal(t, 0.8, conf)
	assert.Equal(t, "amount_trend", method)
}

func TestAmountScoreIgnoresStaleHistory(t *testing.T) {
	now := time.Now()
	conf, method := amountScore(dec("1250"), history(now, map[int]string{45: "1250.00"}), now)
	assert.Zero(t, conf)
	assert.Empty(t, method, "amounts older than 30 days are out of window")
}

func TestAmountScoreNoHistoryIsNoMatch(t *testing.T) {
	now := time.Now()
	conf, method := amountScore(dec("1250"), nil, now)
	assert.Zero(t, conf)
	assert.Empty(t, method)
}

func TestRecentAmountsCapsAtTen(t *testing.T) {
	now := time.Now()
	var hist []directory.PastTransaction
	for i := 1; i <= 14; i++ {
		hist = append(hist, directory.PastTransaction{Amount: dec("10"), Date: now.AddDate(0, 0, -i)})
	}
	assert.Len(t, recentAmounts(hist, now), 10)
}

func TestMatchWinnerAndCandidates(t *testing.T) {
	now := time.Now()
	dir := &directory.InMemory{Customers: []*directory.Customer{
		{ID: "c1", Name: "Ahmet Yılmaz", RecentTransactions: history(now, map[int]string{3: "1250"})},
		{ID: "c2", Name: "Ahmet Yilmaz", RecentTransactions: history(now, map[int]string{5: "1250"})},
		{ID: "c3", Name: "Zeynep Koç"},
	}}

	res, err := NewMatcher(dir).Match(context.Background(), creditTx("Ahmet Yılmaz", "1250"))
	require.NoError(t, err)

	require.True(t, res.Matched)
	assert.Equal(t, "c1", res.Customer.ID)
	assert.Contains(t, res.Methods, "name_exact")
	assert.Contains(t, res.Methods, "amount_exact")
	require.Len(t, res.AllCandidates, 2, "both near-identical names clear the floor")
	assert.GreaterOrEqual(t, res.AllCandidates[0].Confidence, res.AllCandidates[1].Confidence)
}

func TestMatchExcludedCustomersAreNeverTargets(t *testing.T) {
	now := time.Now()
	dir := &directory.InMemory{Customers: []*directory.Customer{
		{ID: "factoring", Name: "Ahmet Yılmaz", Excluded: true,
			RecentTransactions: history(now, map[int]string{3: "1250"})},
	}}

	res, err := NewMatcher(dir).Match(context.Background(), creditTx("Ahmet Yılmaz", "1250"))
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Zero(t, res.Confidence)
}

func TestMatchAlternateNameBeatsPrimary(t *testing.T) {
	now := time.Now()
	dir := &directory.InMemory{Customers: []*directory.Customer{
		{
			ID:                 "c1",
			Name:               "Kara Enerji San. Tic. A.Ş.",
			AlternateNames:     []string{"Ahmet Yılmaz"},
			RecentTransactions: history(now, map[int]string{3: "1250"}),
		},
	}}

	res, err := NewMatcher(dir).Match(context.Background(), creditTx("Ahmet Yılmaz", "1250"))
	require.NoError(t, err)
	require.True(t, res.Matched)
	assert.Contains(t, res.Methods, "name_exact")
}

func TestMatchFloorBoundary(t *testing.T) {
	now := time.Now()

	// name similarity 0.98 (one edit in 50 runes) and amount-average 0.7:
	// 0.98*0.5 + 0.7*0.3 = 0.70 exactly, which must be accepted.
	txName := strings.Repeat("a", 50)
	custName := strings.Repeat("a", 49) + "b"
	accept := &directory.InMemory{Customers: []*directory.Customer{
		{ID: "ok", Name: custName, RecentTransactions: history(now, map[int]string{3: "100", 9: "104"})},
	}}
	res, err := NewMatcher(accept).Match(context.Background(), creditTx(txName, "102"))
	require.NoError(t, err)
	assert.True(t, res.Matched, "score of exactly 0.70 is accepted")

	// name similarity 0.978 (11 edits in 500 runes) brings the total to
	// 0.699, which must be rejected.
	txName = strings.Repeat("a", 500)
	custName = strings.Repeat("a", 489) + strings.Repeat("b", 11)
	reject := &directory.InMemory{Customers: []*directory.Customer{
		{ID: "no", Name: custName, RecentTransactions: history(now, map[int]string{3: "100", 9: "104"})},
	}}
	res, err = NewMatcher(reject).Match(context.Background(), creditTx(txName, "102"))
	require.NoError(t, err)
	assert.False(t, res.Matched, "score of 0.699 is rejected")
}
