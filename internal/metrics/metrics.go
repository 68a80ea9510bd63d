// Package metrics keeps in-process counters for ingestion runs.
package metrics

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the aggregator counters.
type Snapshot struct {
	StartedAt time.Time `json:"startedAt"`
	TakenAt   time.Time `json:"takenAt"`

	RecordsSegmented int64 `json:"recordsSegmented"`
	RecordsParsed    int64 `json:"recordsParsed"`
	RecordsFailed    int64 `json:"recordsFailed"`

	EmailsFetched   int64 `json:"emailsFetched"`
	EmailsExtracted int64 `json:"emailsExtracted"`
	EmailsSkipped   int64 `json:"emailsSkipped"`

	Inserted   int64 `json:"inserted"`
	Duplicates int64 `json:"duplicates"`
	Anomalies  int64 `json:"anomalies"`

	Matched   int64 `json:"matched"`
	Unmatched int64 `json:"unmatched"`
}

// Aggregator accumulates counters across pipeline runs. Safe for
// concurrent use by pipeline workers.
type Aggregator struct {
	mu        sync.Mutex
	startedAt time.Time
	snap      Snapshot
}

// NewAggregator returns an aggregator with all counters at zero.
func NewAggregator() *Aggregator {
	return &Aggregator{startedAt: time.Now()}
}

func (a *Aggregator) add(f func(*Snapshot)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f(&a.snap)
}

func (a *Aggregator) AddSegmented(n int) { a.add(func(s *Snapshot) { s.RecordsSegmented += int64(n) }) }
func (a *Aggregator) AddParsed(n int)    { a.add(func(s *Snapshot) { s.RecordsParsed += int64(n) }) }
func (a *Aggregator) AddFailed(n int)    { a.add(func(s *Snapshot) { s.RecordsFailed += int64(n) }) }

func (a *Aggregator) AddEmailsFetched(n int)   { a.add(func(s *Snapshot) { s.EmailsFetched += int64(n) }) }
func (a *Aggregator) AddEmailsExtracted(n int) { a.add(func(s *Snapshot) { s.EmailsExtracted += int64(n) }) }
func (a *Aggregator) AddEmailsSkipped(n int)   { a.add(func(s *Snapshot) { s.EmailsSkipped += int64(n) }) }

func (a *Aggregator) AddInserted(n int)   { a.add(func(s *Snapshot) { s.Inserted += int64(n) }) }
func (a *Aggregator) AddDuplicates(n int) { a.add(func(s *Snapshot) { s.Duplicates += int64(n) }) }
func (a *Aggregator) AddAnomalies(n int)  { a.add(func(s *Snapshot) { s.Anomalies += int64(n) }) }

func (a *Aggregator) AddMatched(n int)   { a.add(func(s *Snapshot) { s.Matched += int64(n) }) }
func (a *Aggregator) AddUnmatched(n int) { a.add(func(s *Snapshot) { s.Unmatched += int64(n) }) }

// Snapshot returns a copy of the current counters.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.snap
	out.StartedAt = a.startedAt
	out.TakenAt = time.Now()
	return out
}

// Reset zeroes all counters and restarts the clock.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap = Snapshot{}
	a.startedAt = time.Now()
}
