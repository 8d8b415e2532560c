package contracts

import (
	"sort"
	"time"
)

// Drop reasons emitted by the scoring cascade.
const (
	DropNoTrade        = "no_trade"
	DropLowConviction  = "low_conviction"
	DropLowConvergence = "low_convergence"
	DropSameTypeDedup  = "same_type_dedup"
	DropCrossTypeDedup = "cross_type_dedup"
	DropNoise          = "noise"
	DropLowQuality     = "low_quality"
	DropStaleTopic     = "stale_topic"
)

// DropRecord captures why a candidate was rejected, for the audit trail.
type DropRecord struct {
	Reason     string    `json:"reason"`
	Symbol     string    `json:"symbol"`
	SignalType string    `json:"signal_type"`
	Direction  Direction `json:"direction"`
	Score      int       `json:"score"`
	Detail     string    `json:"detail,omitempty"`
	DroppedAt  time.Time `json:"dropped_at"`
}

// CycleOutcome summarizes one pipeline cycle.
type CycleOutcome struct {
	CycleID         string         `json:"cycle_id"`
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      time.Time      `json:"finished_at"`
	PostsIn         int            `json:"posts_in"`
	ClustersScored  int            `json:"clusters_scored"`
	ClustersActive  int            `json:"clusters_active"`
	CandidatesTotal int            `json:"candidates_total"`
	Persisted       int            `json:"persisted"`
	PersistedIDs    []string       `json:"persisted_ids"`
	NoiseFiltered   int            `json:"noise_filtered_total"`
	DropCounts      map[string]int `json:"drop_counts"`
	TopDropReasons  []string       `json:"top_drop_reasons"`
	DropExamples    []DropRecord   `json:"drop_examples"`
}

// TopReasons returns the n most frequent drop reasons, descending.
func (o *CycleOutcome) TopReasons(n int) []string {
	type rc struct {
		reason string
		count  int
	}
	var list []rc
	for r, c := range o.DropCounts {
		list = append(list, rc{r, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].reason < list[j].reason
	})
	if n > len(list) {
		n = len(list)
	}
	out := make([]string, 0, n)
	for _, e := range list[:n] {
		out = append(out, e.reason)
	}
	return out
}
