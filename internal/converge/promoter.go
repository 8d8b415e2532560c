package converge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/logger"
)

// Queue list cap for corroboration tasks.
const corroborationQueueCap = 500

// CorroborationTask is the payload queued for stalled candidates.
type CorroborationTask struct {
	ClusterKey   string   `json:"cluster_key"`
	Symbol       string   `json:"symbol"`
	EventType    string   `json:"event_type"`
	Score        float64  `json:"score"`
	DwellMinutes float64  `json:"dwell_minutes"`
	Platforms    []string `json:"platforms"`
	PostCount    int      `json:"post_count"`
	QueuedAt     string   `json:"queued_at"`
}

// Promoter applies hysteresis to convergence scores. Clusters promote
// to ACTIVE at the high threshold, stay ACTIVE down to the low
// threshold, and are tracked as CANDIDATE in between so a flapping
// score does not toggle selection every cycle.
type Promoter struct {
	store   contracts.ClusterStateStore
	metrics contracts.MetricsStore
	queue   contracts.QueueStore
	logger  *logger.Logger

	tHigh    float64
	tLow     float64
	dwellMin time.Duration
	stateTTL time.Duration
	nowFn    func() time.Time
}

// NewPromoter creates a promoter. tLow values at or above tHigh are
// repaired downward so the hysteresis band never inverts.
func NewPromoter(
	store contracts.ClusterStateStore,
	metrics contracts.MetricsStore,
	queue contracts.QueueStore,
	log *logger.Logger,
	tHigh, tLow float64,
	dwellMin, stateTTL time.Duration,
) *Promoter {
	if tLow >= tHigh {
		tLow = tHigh - 0.05
		if tLow < 0 {
			tLow = 0
		}
	}
	return &Promoter{
		store:    store,
		metrics:  metrics,
		queue:    queue,
		logger:   log,
		tHigh:    tHigh,
		tLow:     tLow,
		dwellMin: dwellMin,
		stateTTL: stateTTL,
		nowFn:    time.Now,
	}
}

// Thresholds returns the effective hysteresis band.
func (p *Promoter) Thresholds() (high, low float64) {
	return p.tHigh, p.tLow
}

// Select returns the clusters promoted to ACTIVE this cycle. When the
// state store is unavailable, selection degrades to a plain high
// threshold filter with no state tracking.
func (p *Promoter) Select(ctx context.Context, scored []*contracts.ClusterScore) []*contracts.ClusterScore {
	if p.store == nil || !p.store.Enabled() {
		var out []*contracts.ClusterScore
		for _, cs := range scored {
			if cs.Score >= p.tHigh {
				out = append(out, cs)
			}
		}
		return out
	}

	now := p.nowFn()
	var selected []*contracts.ClusterScore

	for _, cs := range scored {
		key := cs.Cluster.Key()
		prev, err := p.store.Get(ctx, key)
		if err != nil {
			p.logger.WithError(err).WithField("cluster", key).Warn("Cluster state read failed")
		}

		switch {
		case cs.Score >= p.tHigh || (prev != nil && prev.State == contracts.StateActive && cs.Score >= p.tLow):
			p.promote(ctx, key, cs, prev, now)
			selected = append(selected, cs)

		case cs.Score >= p.tLow:
			p.track(ctx, key, cs, prev, now)

		default:
			if prev != nil {
				if err := p.store.Delete(ctx, key); err != nil {
					p.logger.WithError(err).WithField("cluster", key).Warn("Cluster state delete failed")
				}
			}
		}
	}

	p.snapshot(ctx, len(selected), len(scored), now)
	return selected
}

func (p *Promoter) promote(ctx context.Context, key string, cs *contracts.ClusterScore, prev *contracts.ClusterState, now time.Time) {
	firstSeen := now
	dwell := 0.0
	if prev != nil {
		firstSeen = prev.FirstSeen
		dwell = now.Sub(prev.FirstSeen).Minutes()
	}

	switch {
	case prev != nil && prev.State == contracts.StateCandidate:
		p.incr(ctx, "candidate_promotions", 1)
		p.incr(ctx, "candidate_minutes_total", int64(dwell))
	case prev == nil || prev.State != contracts.StateActive:
		p.incr(ctx, "direct_promotions", 1)
	}

	st := &contracts.ClusterState{
		State:        contracts.StateActive,
		Score:        cs.Score,
		FirstSeen:    firstSeen,
		LastSeen:     now,
		DwellMinutes: dwell,
	}
	if err := p.store.Put(ctx, key, st, p.stateTTL); err != nil {
		p.logger.WithError(err).WithField("cluster", key).Warn("Cluster state write failed")
	}
}

func (p *Promoter) track(ctx context.Context, key string, cs *contracts.ClusterScore, prev *contracts.ClusterState, now time.Time) {
	firstSeen := now
	if prev != nil {
		firstSeen = prev.FirstSeen
	}
	dwell := now.Sub(firstSeen).Minutes()

	p.incr(ctx, "candidate_seen", 1)

	if prev != nil && dwell >= p.dwellMin.Minutes() {
		p.incr(ctx, "clusters_stalled_count", 1)
		p.enqueue(ctx, key, cs, dwell, now)
	}

	st := &contracts.ClusterState{
		State:        contracts.StateCandidate,
		Score:        cs.Score,
		FirstSeen:    firstSeen,
		LastSeen:     now,
		DwellMinutes: dwell,
	}
	if err := p.store.Put(ctx, key, st, p.stateTTL); err != nil {
		p.logger.WithError(err).WithField("cluster", key).Warn("Cluster state write failed")
	}
}

func (p *Promoter) enqueue(ctx context.Context, key string, cs *contracts.ClusterScore, dwell float64, now time.Time) {
	if p.queue == nil {
		return
	}
	task := CorroborationTask{
		ClusterKey:   key,
		Symbol:       cs.Cluster.Symbol,
		EventType:    cs.Cluster.EventType,
		Score:        cs.Score,
		DwellMinutes: dwell,
		Platforms:    cs.Cluster.Platforms(),
		PostCount:    len(cs.Cluster.Posts),
		QueuedAt:     now.UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := p.queue.Push(ctx, data, corroborationQueueCap); err != nil {
		p.logger.WithError(err).WithField("cluster", key).Warn("Corroboration enqueue failed")
	}
}

func (p *Promoter) snapshot(ctx context.Context, selected, scoredCount int, now time.Time) {
	if p.metrics == nil {
		return
	}
	err := p.metrics.Snapshot(ctx, map[string]interface{}{
		"last_selected_count": selected,
		"last_scored_count":   scoredCount,
		"t_low":               p.tLow,
		"t_high":              p.tHigh,
		"updated_at":          now.UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.logger.WithError(err).Warn("Metrics snapshot failed")
	}
}

func (p *Promoter) incr(ctx context.Context, field string, delta int64) {
	if p.metrics == nil {
		return
	}
	if err := p.metrics.Incr(ctx, field, delta); err != nil {
		p.logger.WithError(err).WithField("metric", field).Warn("Metric increment failed")
	}
}
