package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether value moved into or out of the account.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Category is a coarse classification tag assigned by the enricher.
type Category string

const (
	CategoryInboundTransfer  Category = "inbound-transfer"
	CategoryOutboundTransfer Category = "outbound-transfer"
	CategoryFeeTax           Category = "fee-tax"
	CategoryPointOfSale      Category = "point-of-sale"
	CategoryUtilityBill      Category = "utility-bill"
	CategoryOther            Category = "other"
)

// Transaction is the canonical unit of value movement produced by either the
// statement path or the email path. Debit and Credit are mutually exclusive
// non-negative decimals; exactly one is non-zero except for fee-free no-ops.
// After persistence a transaction is never mutated except to attach the
// winning match.
type Transaction struct {
	Timestamp   time.Time
	Description string

	Debit  decimal.Decimal
	Credit decimal.Decimal

	Currency        string
	BalanceAfter    decimal.Decimal
	BalanceCurrency string

	Category    Category
	Subcategory string
	Direction   Direction

	CounterpartyName string
	CounterpartyIBAN string

	// TransactionType is the transfer rail tag (FAST, HAVALE, EFT) set by the
	// email extractor; empty for statement records.
	TransactionType string

	ContentHash string

	// Confidence starts at 1.0 and is only ever decreased, multiplicatively,
	// by quality checks.
	Confidence float64
	Anomalies  []string

	// SourceRaw keeps the original text for audit.
	SourceRaw  string
	SourceLine int

	MatchedCustomerID string
	MatchConfidence   float64
}

// Amount returns the signed amount: credit positive, debit negative.
func (t *Transaction) Amount() decimal.Decimal {
	return t.Credit.Sub(t.Debit)
}

// SetSignedAmount splits a signed amount into the debit/credit pair and sets
// the direction accordingly.
func (t *Transaction) SetSignedAmount(amount decimal.Decimal) {
	if amount.IsNegative() {
		t.Debit = amount.Neg()
		t.Credit = decimal.Zero
		t.Direction = DirectionOut
		return
	}
	t.Credit = amount
	t.Debit = decimal.Zero
	t.Direction = DirectionIn
}

// AddAnomaly records a quality flag and degrades confidence by the given
// factor. Independent checks compound multiplicatively and never reset.
func (t *Transaction) AddAnomaly(note string, factor float64) {
	t.Anomalies = append(t.Anomalies, note)
	t.Confidence *= factor
}

// TimestampISO renders the timestamp in the ISO-8601 form used by the
// content hash and reconciliation ordering.
func (t *Transaction) TimestampISO() string {
	return t.Timestamp.Format("2006-01-02T15:04:05")
}

// AccountInfo is the statement header context: who the statement belongs to
// and which period it covers. Extracted once per statement, read-only,
// reporting context only.
type AccountInfo struct {
	HolderName     string
	IBAN           string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	Currency       string
}
