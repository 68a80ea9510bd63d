// Package match scores transactions against the customer directory using
// weighted name-similarity and amount-pattern heuristics and selects the
// best candidate above a confidence floor.
package match

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finrota/bankfeed/internal/directory"
	"github.com/finrota/bankfeed/internal/domain"
)

const (
	// MatchFloor is the minimum total score for a customer to count as a
	// candidate.
	MatchFloor = 0.7

	nameWeight   = 0.5
	amountWeight = 0.3

	// ibanWeight is a defined but inactive third signal, reserved for when
	// customer IBANs are tracked.
	ibanWeight = 0.2
)

// Candidate is one customer scoring above the floor.
type Candidate struct {
	Customer   *directory.Customer
	Confidence float64
	Methods    []string
}

// Result is the outcome of one matching attempt.
type Result struct {
	Matched       bool
	Customer      *directory.Customer
	Confidence    float64
	Methods       []string
	AllCandidates []Candidate
}

// Matcher scores transactions against the directory.
type Matcher struct {
	dir directory.Directory
	now func() time.Time
}

// NewMatcher creates a Matcher reading candidates from dir.
func NewMatcher(dir directory.Directory) *Matcher {
	return &Matcher{dir: dir, now: time.Now}
}

// Match scores tx against every active customer and returns the best
// candidate above the floor, plus all accepted candidates sorted descending
// for audit. No candidate above the floor yields Matched=false with
// confidence 0.
func (m *Matcher) Match(ctx context.Context, tx *domain.Transaction) (*Result, error) {
	customers, err := m.dir.ListActiveCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active customers: %w", err)
	}

	var candidates []Candidate
	for _, customer := range customers {
		if customer.Excluded {
			continue
		}

		nameConf, nameMethod := bestNameScore(tx.CounterpartyName, customer)
		amountConf, amountMethod := amountScore(tx.Amount().Abs(), customer.RecentTransactions, m.now())

		total := nameConf*nameWeight + amountConf*amountWeight
		if total < MatchFloor {
			continue
		}

		var methods []string
		if nameMethod != "" {
			methods = append(methods, nameMethod)
		}
		if amountMethod != "" {
			methods = append(methods, amountMethod)
		}
		candidates = append(candidates, Candidate{
			Customer:   customer,
			Confidence: total,
			Methods:    methods,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	if len(candidates) == 0 {
		return &Result{Matched: false, Confidence: 0}, nil
	}

	best := candidates[0]
	return &Result{
		Matched:       true,
		Customer:      best.Customer,
		Confidence:    best.Confidence,
		Methods:       best.Methods,
		AllCandidates: candidates,
	}, nil
}

// bestNameScore checks the primary name and every recorded alternate name
// and keeps the highest-confidence result.
func bestNameScore(txName string, customer *directory.Customer) (float64, string) {
	conf, method := nameScore(txName, customer.Name)
	for _, alt := range customer.AlternateNames {
		if c, m := nameScore(txName, alt); c > conf {
			conf, method = c, m
		}
	}
	return conf, method
}

func amountScore(txAmount decimal.Decimal, history []directory.PastTransaction, now time.Time) (float64, string) {
	recent := recentAmounts(history, now)
	if len(recent) == 0 {
		return 0, ""
	}

	exactTolerance := decimal.New(1, -2)
	for _, amt := range recent {
		if amt.Sub(txAmount).Abs().LessThanOrEqual(exactTolerance) {
			return 0.9, "amount_exact"
		}
	}

	sum := decimal.Zero
	for _, amt := range recent {
		sum = sum.Add(amt)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(recent))))
	if withinTenPercent(txAmount, avg) {
		return 0.7, "amount_average"
	}

	if len(recent) >= 3 {
		// Extrapolate the next amount from the average consecutive delta;
		// recent is ordered newest first.
		deltaSum := decimal.Zero
		for i := 0; i < len(recent)-1; i++ {
			deltaSum = deltaSum.Add(recent[i].Sub(recent[i+1]))
		}
		avgDelta := deltaSum.Div(decimal.NewFromInt(int64(len(recent) - 1)))
		predicted := recent[0].Add(avgDelta)
		if withinTenPercent(txAmount, predicted) {
			return 0.8, "amount_trend"
		}
	}

	return 0, ""
}

// recentAmounts returns the customer's absolute amounts from the last 30
// days, most recent first, capped at 10.
func recentAmounts(history []directory.PastTransaction, now time.Time) []decimal.Decimal {
	cutoff := now.AddDate(0, 0, -30)

	window := make([]directory.PastTransaction, 0, len(history))
	for _, pt := range history {
		if pt.Date.Before(cutoff) {
			continue
		}
		window = append(window, pt)
	}
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Date.After(window[j].Date)
	})
	if len(window) > 10 {
		window = window[:10]
	}

	amounts := make([]decimal.Decimal, len(window))
	for i, pt := range window {
		amounts[i] = pt.Amount.Abs()
	}
	return amounts
}

func withinTenPercent(value, reference decimal.Decimal) bool {
	if reference.IsZero() {
		return false
	}
	tolerance := reference.Abs().Mul(decimal.New(1, -1))
	return value.Sub(reference).Abs().LessThanOrEqual(tolerance)
}
