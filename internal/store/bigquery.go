package store

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/finrota/bankfeed/internal/domain"
)

const transactionsTable = "transactions"

// transactionRow mirrors the feed.transactions table schema.
type transactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	ContentHash   string `bigquery:"content_hash"`   // REQUIRED

	BookingDatetime civil.DateTime `bigquery:"booking_datetime"`

	Description string `bigquery:"description"`

	Debit  *big.Rat `bigquery:"debit"`  // NUMERIC
	Credit *big.Rat `bigquery:"credit"` // NUMERIC

	Currency        string   `bigquery:"currency"`
	BalanceAfter    *big.Rat `bigquery:"balance_after"`
	BalanceCurrency string   `bigquery:"balance_currency"`

	Category    string              `bigquery:"category"`
	Subcategory bigquery.NullString `bigquery:"subcategory"`
	Direction   string              `bigquery:"direction"`

	CounterpartyName bigquery.NullString `bigquery:"counterparty_name"`
	CounterpartyIBAN bigquery.NullString `bigquery:"counterparty_iban"`
	TransactionType  bigquery.NullString `bigquery:"transaction_type"`

	Confidence float64  `bigquery:"confidence"`
	Anomalies  []string `bigquery:"anomalies"` // REPEATED

	SourceRaw string `bigquery:"source_raw"`

	MatchedCustomerID bigquery.NullString  `bigquery:"matched_customer_id"`
	MatchConfidence   bigquery.NullFloat64 `bigquery:"match_confidence"`

	CreatedTS time.Time `bigquery:"created_ts"`
}

// BigQuery is a Store backed by a BigQuery dataset.
type BigQuery struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewBigQuery creates a BigQuery store using the provided client.
func NewBigQuery(client *bigquery.Client, projectID, datasetID string) *BigQuery {
	return &BigQuery{client: client, projectID: projectID, datasetID: datasetID}
}

// InsertIfAbsent implements Store. Existence is decided by content hash so
// that re-ingesting the same source is a no-op.
func (s *BigQuery) InsertIfAbsent(ctx context.Context, tx *domain.Transaction) (string, bool, error) {
	if tx.ContentHash == "" {
		return "", false, fmt.Errorf("transaction has no content hash")
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT transaction_id
		FROM %s.%s
		WHERE content_hash = @content_hash
		LIMIT 1
	`, s.datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "content_hash", Value: tx.ContentHash},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return "", false, fmt.Errorf("InsertIfAbsent: existence query: %w", err)
	}
	var existing struct {
		TransactionID string `bigquery:"transaction_id"`
	}
	switch err := it.Next(&existing); err {
	case nil:
		return existing.TransactionID, false, nil
	case iterator.Done:
		// Not present, insert below.
	default:
		return "", false, fmt.Errorf("InsertIfAbsent: iter next: %w", err)
	}

	row := rowFromTransaction(tx)
	inserter := s.client.DatasetInProject(s.projectID, s.datasetID).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", false, fmt.Errorf("InsertIfAbsent: inserting row: %w", err)
	}
	return row.TransactionID, true, nil
}

// UpdateMatch implements Store.
func (s *BigQuery) UpdateMatch(ctx context.Context, id, customerID string, confidence float64) error {
	q := s.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET matched_customer_id = @customer_id,
		    match_confidence = @confidence
		WHERE transaction_id = @transaction_id
	`, s.datasetID, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "customer_id", Value: customerID},
		{Name: "confidence", Value: confidence},
		{Name: "transaction_id", Value: id},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("UpdateMatch: running update query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("UpdateMatch: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("UpdateMatch: job error: %w", err)
	}
	return nil
}

// ListUnmatched implements Store.
func (s *BigQuery) ListUnmatched(ctx context.Context) ([]*Stored, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE matched_customer_id IS NULL
		ORDER BY created_ts
	`, s.datasetID, transactionsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListUnmatched: query read: %w", err)
	}

	var rows []*Stored
	for {
		var r transactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListUnmatched: iter next: %w", err)
		}
		rows = append(rows, &Stored{ID: r.TransactionID, Tx: transactionFromRow(&r)})
	}
	return rows, nil
}

func rowFromTransaction(tx *domain.Transaction) *transactionRow {
	return &transactionRow{
		TransactionID:    uuid.NewString(),
		ContentHash:      tx.ContentHash,
		BookingDatetime:  civil.DateTimeOf(tx.Timestamp),
		Description:      tx.Description,
		Debit:            tx.Debit.Rat(),
		Credit:           tx.Credit.Rat(),
		Currency:         tx.Currency,
		BalanceAfter:     tx.BalanceAfter.Rat(),
		BalanceCurrency:  tx.BalanceCurrency,
		Category:         string(tx.Category),
		Subcategory:      nullString(tx.Subcategory),
		Direction:        string(tx.Direction),
		CounterpartyName: nullString(tx.CounterpartyName),
		CounterpartyIBAN: nullString(tx.CounterpartyIBAN),
		TransactionType:  nullString(tx.TransactionType),
		Confidence:       tx.Confidence,
		Anomalies:        tx.Anomalies,
		SourceRaw:        tx.SourceRaw,
		CreatedTS:        time.Now(),
	}
}

func transactionFromRow(r *transactionRow) *domain.Transaction {
	tx := &domain.Transaction{
		Timestamp:        r.BookingDatetime.In(time.UTC),
		Description:      r.Description,
		Debit:            decimalFromRat(r.Debit),
		Credit:           decimalFromRat(r.Credit),
		Currency:         r.Currency,
		BalanceAfter:     decimalFromRat(r.BalanceAfter),
		BalanceCurrency:  r.BalanceCurrency,
		Category:         domain.Category(r.Category),
		Subcategory:      r.Subcategory.StringVal,
		Direction:        domain.Direction(r.Direction),
		CounterpartyName: r.CounterpartyName.StringVal,
		CounterpartyIBAN: r.CounterpartyIBAN.StringVal,
		TransactionType:  r.TransactionType.StringVal,
		ContentHash:      r.ContentHash,
		Confidence:       r.Confidence,
		Anomalies:        r.Anomalies,
		SourceRaw:        r.SourceRaw,
	}
	if r.MatchedCustomerID.Valid {
		tx.MatchedCustomerID = r.MatchedCustomerID.StringVal
		tx.MatchConfidence = r.MatchConfidence.Float64
	}
	return tx
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func decimalFromRat(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(4))
	if err != nil {
		return decimal.Zero
	}
	return d
}

var _ Store = (*BigQuery)(nil)
