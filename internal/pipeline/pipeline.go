// Package pipeline wires segmentation, parsing, enrichment,
// deduplication and reconciliation into end-to-end ingestion runs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/finrota/bankfeed/internal/dedupe"
	"github.com/finrota/bankfeed/internal/domain"
	"github.com/finrota/bankfeed/internal/email"
	"github.com/finrota/bankfeed/internal/enrich"
	"github.com/finrota/bankfeed/internal/faillog"
	"github.com/finrota/bankfeed/internal/jobs"
	"github.com/finrota/bankfeed/internal/jobs/inmemory"
	"github.com/finrota/bankfeed/internal/match"
	"github.com/finrota/bankfeed/internal/metrics"
	"github.com/finrota/bankfeed/internal/reconcile"
	"github.com/finrota/bankfeed/internal/statement"
	"github.com/finrota/bankfeed/internal/store"
)

// DefaultCurrency is assumed when a statement omits currency codes.
const DefaultCurrency = "TL"

// defaultEmailWorkers bounds concurrent email extraction.
const defaultEmailWorkers = 4

// BatchSummary reports the outcome of one ingestion run.
type BatchSummary struct {
	Account    domain.AccountInfo
	Segmented  int
	Processed  int
	Inserted   int
	Duplicates int
	Failed     int
	Anomalous  int
	Duration   time.Duration
}

// MatchSummary reports the outcome of one matching pass.
type MatchSummary struct {
	Examined  int
	Matched   int
	Unmatched int
}

// Pipeline runs ingestion against a transaction store.
type Pipeline struct {
	store        store.Store
	matcher      *match.Matcher
	failures     *faillog.Writer
	stats        *metrics.Aggregator
	log          zerolog.Logger
	emailWorkers int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMatcher enables the matching pass.
func WithMatcher(m *match.Matcher) Option {
	return func(p *Pipeline) { p.matcher = m }
}

// WithFailureLog records unparseable inputs to a CSV file.
func WithFailureLog(w *faillog.Writer) Option {
	return func(p *Pipeline) { p.failures = w }
}

// WithMetrics accumulates run counters into the given aggregator.
func WithMetrics(a *metrics.Aggregator) Option {
	return func(p *Pipeline) { p.stats = a }
}

// WithEmailWorkers sets the number of concurrent email extraction
// workers.
func WithEmailWorkers(n int) Option {
	return func(p *Pipeline) { p.emailWorkers = n }
}

// New creates a Pipeline writing to the given store.
func New(st store.Store, log zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        st,
		stats:        metrics.NewAggregator(),
		log:          log,
		emailWorkers: defaultEmailWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IngestStatementText runs the statement path over raw text: header
// extraction, segmentation, per-record parsing and enrichment, content
// hashing, batch reconciliation, then conditional insertion. Records
// that fail to parse are logged and counted, never fatal.
func (p *Pipeline) IngestStatementText(ctx context.Context, text string) (*BatchSummary, error) {
	started := time.Now()
	summary := &BatchSummary{Account: statement.ExtractAccountInfo(text)}
	defer func() { summary.Duration = time.Since(started) }()

	records := statement.Segment(text)
	summary.Segmented = len(records)
	p.stats.AddSegmented(len(records))

	var batch []*domain.Transaction
	for _, rec := range records {
		tx, err := statement.ParseRecord(rec, DefaultCurrency)
		if err != nil {
			summary.Failed++
			p.stats.AddFailed(1)
			p.recordFailure("statement", "", "", err, rec.Text)
			p.log.Warn().Err(err).Int("line", rec.Line).Msg("record parse failed")
			continue
		}
		enrich.Enrich(tx)
		dedupe.Stamp(tx)
		batch = append(batch, tx)
	}
	summary.Processed = len(batch)
	p.stats.AddParsed(len(batch))

	res := reconcile.Check(batch)
	summary.Anomalous = res.Anomalies
	p.stats.AddAnomalies(res.Anomalies)

	for _, tx := range batch {
		if err := p.insert(ctx, tx, summary); err != nil {
			return summary, err
		}
	}

	p.log.Info().
		Int("segmented", summary.Segmented).
		Int("processed", summary.Processed).
		Int("inserted", summary.Inserted).
		Int("duplicates", summary.Duplicates).
		Int("failed", summary.Failed).
		Int("anomalous", summary.Anomalous).
		Str("account_holder", summary.Account.HolderName).
		Msg("statement batch ingested")

	return summary, nil
}

// IngestEmails runs the notification path over fetched messages using a
// bounded worker pool. Messages that match no template are logged and
// skipped.
func (p *Pipeline) IngestEmails(ctx context.Context, msgs []email.Message) (*BatchSummary, error) {
	started := time.Now()
	summary := &BatchSummary{Segmented: len(msgs)}
	defer func() { summary.Duration = time.Since(started) }()
	p.stats.AddEmailsFetched(len(msgs))

	results := make(chan *domain.Transaction, len(msgs))
	queue := inmemory.NewQueue(len(msgs)+1, p.emailWorkers, inmemory.NewStore())
	err := queue.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		ej, ok := job.(*jobs.ExtractEmailJob)
		if !ok {
			return fmt.Errorf("unexpected job type %s", job.GetType())
		}
		// The job carries the full message; Message-ID headers are not
		// reliable enough to look anything up by.
		msg := email.Message{
			MessageID: ej.MessageID,
			From:      ej.From,
			Subject:   ej.Subject,
			Body:      ej.Body,
		}
		tx, err := email.Extract(msg)
		if err != nil {
			p.recordFailure("email", msg.Subject, msg.From, err, msg.Body)
			p.log.Warn().Err(err).Str("message_id", ej.MessageID).Msg("email extraction failed")
			results <- nil
			// Template mismatches are permanent, do not retry.
			return nil
		}
		enrich.Enrich(tx)
		dedupe.Stamp(tx)
		results <- tx
		return nil
	})
	if err != nil {
		return summary, fmt.Errorf("IngestEmails: starting queue: %w", err)
	}

	for _, msg := range msgs {
		job := &jobs.ExtractEmailJob{
			MessageID: msg.MessageID,
			From:      msg.From,
			Subject:   msg.Subject,
			Body:      msg.Body,
		}
		if err := queue.PublishExtractEmail(ctx, job); err != nil {
			queue.Close()
			return summary, fmt.Errorf("IngestEmails: publishing job: %w", err)
		}
	}

	var batch []*domain.Transaction
	for range msgs {
		if tx := <-results; tx != nil {
			batch = append(batch, tx)
		} else {
			summary.Failed++
			p.stats.AddEmailsSkipped(1)
		}
	}
	if err := queue.Close(); err != nil {
		return summary, fmt.Errorf("IngestEmails: stopping queue: %w", err)
	}

	summary.Processed = len(batch)
	p.stats.AddEmailsExtracted(len(batch))

	for _, tx := range batch {
		if err := p.insert(ctx, tx, summary); err != nil {
			return summary, err
		}
	}

	p.log.Info().
		Int("fetched", summary.Segmented).
		Int("extracted", summary.Processed).
		Int("inserted", summary.Inserted).
		Int("duplicates", summary.Duplicates).
		Int("skipped", summary.Failed).
		Msg("email batch ingested")

	return summary, nil
}

// MatchUnmatched runs the matcher over every stored transaction that
// has no customer yet and persists accepted matches.
func (p *Pipeline) MatchUnmatched(ctx context.Context) (*MatchSummary, error) {
	if p.matcher == nil {
		return nil, fmt.Errorf("MatchUnmatched: no matcher configured")
	}

	rows, err := p.store.ListUnmatched(ctx)
	if err != nil {
		return nil, fmt.Errorf("MatchUnmatched: listing unmatched: %w", err)
	}

	summary := &MatchSummary{Examined: len(rows)}
	for _, row := range rows {
		res, err := p.matcher.Match(ctx, row.Tx)
		if err != nil {
			return summary, fmt.Errorf("MatchUnmatched: matching %s: %w", row.ID, err)
		}
		if !res.Matched {
			summary.Unmatched++
			p.stats.AddUnmatched(1)
			continue
		}
		if err := p.store.UpdateMatch(ctx, row.ID, res.Customer.ID, res.Confidence); err != nil {
			return summary, fmt.Errorf("MatchUnmatched: updating %s: %w", row.ID, err)
		}
		summary.Matched++
		p.stats.AddMatched(1)
		p.log.Debug().
			Str("transaction_id", row.ID).
			Str("customer_id", res.Customer.ID).
			Float64("confidence", res.Confidence).
			Strs("methods", res.Methods).
			Msg("transaction matched")
	}

	p.log.Info().
		Int("examined", summary.Examined).
		Int("matched", summary.Matched).
		Int("unmatched", summary.Unmatched).
		Msg("match pass complete")

	return summary, nil
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() metrics.Snapshot {
	return p.stats.Snapshot()
}

func (p *Pipeline) insert(ctx context.Context, tx *domain.Transaction, summary *BatchSummary) error {
	_, inserted, err := p.store.InsertIfAbsent(ctx, tx)
	if err != nil {
		return fmt.Errorf("inserting transaction: %w", err)
	}
	if inserted {
		summary.Inserted++
		p.stats.AddInserted(1)
	} else {
		summary.Duplicates++
		p.stats.AddDuplicates(1)
	}
	return nil
}

func (p *Pipeline) recordFailure(source, subject, sender string, cause error, input string) {
	if p.failures == nil {
		return
	}
	if err := p.failures.Record(source, subject, sender, cause, input); err != nil {
		p.log.Error().Err(err).Msg("failure log write failed")
	}
}
