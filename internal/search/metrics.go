package search

import "sync/atomic"

// Metrics counts pipeline activity for one batch or one ad-hoc search. A
// fresh instance is created per run and threaded through the engine; there
// is no process-global state, so concurrent batches never bleed counters
// into each other. All counters are safe for concurrent increment.
type Metrics struct {
	ProviderCalls      atomic.Int64
	CandidatesRaw      atomic.Int64
	CandidatesMerged   atomic.Int64
	CandidatesBlocked  atomic.Int64
	CandidatesExcluded atomic.Int64
	CandidatesDropped  atomic.Int64
	EnrichFetches      atomic.Int64
	EnrichFailures     atomic.Int64
	Errors             atomic.Int64
}

// MetricsSnapshot is the plain-value form used for logging and the batch
// summary row.
type MetricsSnapshot struct {
	ProviderCalls      int64 `json:"providerCalls"`
	CandidatesRaw      int64 `json:"candidatesRaw"`
	CandidatesMerged   int64 `json:"candidatesMerged"`
	CandidatesBlocked  int64 `json:"candidatesBlocked"`
	CandidatesExcluded int64 `json:"candidatesExcluded"`
	CandidatesDropped  int64 `json:"candidatesDropped"`
	EnrichFetches      int64 `json:"enrichFetches"`
	EnrichFailures     int64 `json:"enrichFailures"`
	Errors             int64 `json:"errors"`
}

// Snapshot captures current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		ProviderCalls:      m.ProviderCalls.Load(),
		CandidatesRaw:      m.CandidatesRaw.Load(),
		CandidatesMerged:   m.CandidatesMerged.Load(),
		CandidatesBlocked:  m.CandidatesBlocked.Load(),
		CandidatesExcluded: m.CandidatesExcluded.Load(),
		CandidatesDropped:  m.CandidatesDropped.Load(),
		EnrichFetches:      m.EnrichFetches.Load(),
		EnrichFailures:     m.EnrichFailures.Load(),
		Errors:             m.Errors.Load(),
	}
}
