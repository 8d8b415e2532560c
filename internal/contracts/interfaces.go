package contracts

import (
	"context"
	"time"
)

// ClusterStateStore persists hysteresis state per cluster key.
type ClusterStateStore interface {
	// Get returns nil when no state is stored for the key.
	Get(ctx context.Context, key string) (*ClusterState, error)
	Put(ctx context.Context, key string, state *ClusterState, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Enabled reports whether the backing store is available. When it is
	// not, promotion degrades to a plain threshold filter.
	Enabled() bool
}

// NoveltyStore tracks recently emitted symbol/event pairs.
type NoveltyStore interface {
	Seen(ctx context.Context, symbol, eventType string) (bool, error)
	Mark(ctx context.Context, symbol, eventType string, ttl time.Duration) error
}

// FingerprintStore tracks thesis fingerprints for cross-type dedup.
type FingerprintStore interface {
	Exists(ctx context.Context, fingerprint string) (bool, error)
	Store(ctx context.Context, fingerprint string, ttl time.Duration) error
}

// MetricsStore accumulates pipeline counters and snapshots.
type MetricsStore interface {
	Incr(ctx context.Context, field string, delta int64) error
	Snapshot(ctx context.Context, fields map[string]interface{}) error
}

// QueueStore is a capped FIFO queue for cross-process handoff.
type QueueStore interface {
	Push(ctx context.Context, payload []byte, maxLen int64) error
	Pop(ctx context.Context, max int) ([][]byte, error)
}

// SignalRepository stores and queries persisted signals.
type SignalRepository interface {
	Insert(ctx context.Context, signal *ScoredSignal) error
	// FindSameType returns the most recent active signal with the same
	// primary symbol and signal type, or nil.
	FindSameType(ctx context.Context, symbol, signalType string, since time.Time) (*ScoredSignal, error)
	// RecentBySymbol returns recent signals for a symbol, newest first.
	RecentBySymbol(ctx context.Context, symbol string, since time.Time, limit int) ([]*ScoredSignal, error)
	// MergeInto raises the stored score/conviction of an existing signal
	// and replaces its stored sources with the merged union.
	MergeInto(ctx context.Context, id string, score int, conviction float64, sources []SourceRef) error
	// RecentDirections returns directions of signals created since the cutoff.
	RecentDirections(ctx context.Context, since time.Time) ([]Direction, error)
	// NearMiss returns recent signals whose evidence needs corroboration.
	NearMiss(ctx context.Context, since time.Time, limit int) ([]*ScoredSignal, error)
	UpdateResearch(ctx context.Context, id string, research *ResearchBundle) error
}

// DropRepository records rejected candidates for the audit trail.
type DropRepository interface {
	Record(ctx context.Context, drop *DropRecord, payload *SignalCandidate) error
}

// PostRepository queries collected posts.
type PostRepository interface {
	// Recent returns posts scraped within the window, newest first.
	Recent(ctx context.Context, window time.Duration, limit int) ([]Post, error)
	// SearchMentions finds posts mentioning the symbol or any thesis term.
	SearchMentions(ctx context.Context, symbol string, terms []string, window time.Duration, limit int) ([]Post, error)
}

// AccuracyRepository aggregates historical outcome accuracy.
type AccuracyRepository interface {
	// Rates returns hit-rate keyed by "signal_type:DIRECTION" with a
	// per-type aggregate under the bare signal type.
	Rates(ctx context.Context) (map[string]float64, error)
}

// MarketData resolves prices and tradability for instruments.
type MarketData interface {
	// Price returns nil when no sufficiently fresh price is known.
	Price(ctx context.Context, symbol string) (*float64, error)
	Assess(ctx context.Context, symbol string) (*Tradability, error)
}

// OracleRequest is the input to one synthesis call.
type OracleRequest struct {
	Clusters        []*ClusterScore
	AccuracyContext string
	BalanceWarning  string
}

// Oracle synthesizes trading signal candidates from scored clusters.
type Oracle interface {
	Synthesize(ctx context.Context, req *OracleRequest) ([]SignalCandidate, error)
}

// PageFetcher probes an external URL for corroboration.
type PageFetcher interface {
	Title(ctx context.Context, url string) (string, error)
}
