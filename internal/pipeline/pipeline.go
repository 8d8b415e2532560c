package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/siftlabs/sift/internal/cluster"
	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/converge"
	"github.com/siftlabs/sift/internal/evidence"
	"github.com/siftlabs/sift/internal/extract"
	"github.com/siftlabs/sift/internal/gate"
	"github.com/siftlabs/sift/pkg/logger"
)

const (
	balanceWindow     = 12 * time.Hour
	balanceMinSignals = 5
	balanceLongShare  = 0.85
)

// Config tunes one pipeline instance.
type Config struct {
	PostWindow      time.Duration
	PostLimit       int
	EvidenceWorkers int
}

// Pipeline runs the full cycle: intake, extraction, clustering,
// convergence, synthesis, evidence build and the scoring cascade.
type Pipeline struct {
	posts     contracts.PostRepository
	extractor *extract.Extractor
	clusterer *cluster.Clusterer
	promoter  *converge.Promoter
	oracle    contracts.Oracle
	gate      *gate.Gate
	signals   contracts.SignalRepository
	accuracy  contracts.AccuracyRepository
	metrics   contracts.MetricsStore
	logger    *logger.Logger
	cfg       Config

	mu   sync.Mutex
	last *contracts.CycleOutcome

	nowFn func() time.Time
}

// New creates a pipeline.
func New(
	posts contracts.PostRepository,
	extractor *extract.Extractor,
	clusterer *cluster.Clusterer,
	promoter *converge.Promoter,
	oracle contracts.Oracle,
	g *gate.Gate,
	signals contracts.SignalRepository,
	accuracy contracts.AccuracyRepository,
	metrics contracts.MetricsStore,
	log *logger.Logger,
	cfg Config,
) *Pipeline {
	if cfg.EvidenceWorkers < 1 {
		cfg.EvidenceWorkers = 1
	}
	return &Pipeline{
		posts:     posts,
		extractor: extractor,
		clusterer: clusterer,
		promoter:  promoter,
		oracle:    oracle,
		gate:      g,
		signals:   signals,
		accuracy:  accuracy,
		metrics:   metrics,
		logger:    log,
		cfg:       cfg,
		nowFn:     time.Now,
	}
}

// LastOutcome returns the most recent cycle summary, or nil before the
// first completed cycle.
func (p *Pipeline) LastOutcome() *contracts.CycleOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// RunCycle executes one end-to-end pipeline cycle.
func (p *Pipeline) RunCycle(ctx context.Context) (*contracts.CycleOutcome, error) {
	start := p.nowFn()
	cycleID := uuid.NewString()
	log := p.logger.WithField("cycle_id", cycleID)
	log.Info("Pipeline cycle started")

	posts, err := p.posts.Recent(ctx, p.cfg.PostWindow, p.cfg.PostLimit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: post intake: %w", err)
	}
	if len(posts) == 0 {
		log.Info("No posts in window, cycle skipped")
		return p.finish(ctx, emptyOutcome(cycleID, start, p.nowFn()), log), nil
	}

	extracted := p.extractor.Extract(posts)

	clusters, err := p.clusterer.Build(ctx, extracted)
	if err != nil {
		return nil, fmt.Errorf("pipeline: clustering: %w", err)
	}

	novel, stale := p.splitStale(clusters, log)

	scored := converge.ScoreAll(novel)
	selected := p.promoter.Select(ctx, scored)

	log.WithFields(map[string]interface{}{
		"posts":    len(posts),
		"clusters": len(scored),
		"stale":    stale,
		"active":   len(selected),
	}).Info("Convergence selection completed")

	if len(selected) == 0 {
		outcome := emptyOutcome(cycleID, start, p.nowFn())
		outcome.PostsIn = len(posts)
		outcome.ClustersScored = len(scored)
		p.recordStale(ctx, outcome, stale)
		return p.finish(ctx, outcome, log), nil
	}

	req := &contracts.OracleRequest{
		Clusters:        selected,
		AccuracyContext: p.accuracyContext(ctx),
		BalanceWarning:  p.balanceWarning(ctx),
	}
	candidates, err := p.oracle.Synthesize(ctx, req)
	if err != nil {
		log.WithError(err).Warn("Synthesis failed, retrying once")
		candidates, err = p.oracle.Synthesize(ctx, req)
		if err != nil {
			// An oracle outage degrades the cycle to zero candidates
			// rather than aborting it; the next cron tick retries.
			log.WithError(err).Error("Synthesis failed after retry, continuing with no candidates")
			candidates = nil
		}
	}

	inputs := p.buildEvidence(ctx, candidates)

	outcome := p.gate.Process(ctx, inputs, scored)
	outcome.CycleID = cycleID
	outcome.StartedAt = start
	outcome.PostsIn = len(posts)
	outcome.ClustersScored = len(scored)
	outcome.ClustersActive = len(selected)
	p.recordStale(ctx, outcome, stale)

	return p.finish(ctx, outcome, log), nil
}

// splitStale keeps only clusters whose topic is novel in the dedup
// window. A symbol/type pair that already produced a signal recently is
// excluded before scoring so it never reaches the oracle again.
func (p *Pipeline) splitStale(clusters []*contracts.Cluster, log *logger.Logger) ([]*contracts.Cluster, int) {
	novel := make([]*contracts.Cluster, 0, len(clusters))
	stale := 0
	for _, cl := range clusters {
		if cl.Novel {
			novel = append(novel, cl)
			continue
		}
		stale++
		log.WithField("cluster", cl.Key()).Debug("Stale topic excluded from scoring")
	}
	return novel, stale
}

// recordStale folds stale-topic exclusions into the cycle's drop
// accounting.
func (p *Pipeline) recordStale(ctx context.Context, outcome *contracts.CycleOutcome, stale int) {
	if stale == 0 {
		return
	}
	if outcome.DropCounts == nil {
		outcome.DropCounts = make(map[string]int)
	}
	outcome.DropCounts[contracts.DropStaleTopic] += stale
	outcome.TopDropReasons = outcome.TopReasons(3)
	if p.metrics != nil {
		_ = p.metrics.Incr(ctx, "stale_topics_total", int64(stale))
	}
}

// buildEvidence constructs the evidence graph for every candidate with
// bounded parallelism. Graph construction is pure CPU work over the
// candidate's own sources, so order is preserved by index.
func (p *Pipeline) buildEvidence(ctx context.Context, candidates []contracts.SignalCandidate) []gate.Input {
	inputs := make([]gate.Input, len(candidates))
	sem := make(chan struct{}, p.cfg.EvidenceWorkers)
	var wg sync.WaitGroup

	for i := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			inputs[i] = gate.Input{
				Candidate: candidates[i],
				Graph:     evidence.BuildGraph(candidates[i].Sources, nil),
			}
		}(i)
	}
	wg.Wait()
	return inputs
}

// accuracyContext renders historical hit rates for the oracle prompt.
func (p *Pipeline) accuracyContext(ctx context.Context) string {
	if p.accuracy == nil {
		return ""
	}
	rates, err := p.accuracy.Rates(ctx)
	if err != nil {
		p.logger.WithError(err).Warn("Accuracy context unavailable")
		return ""
	}
	if len(rates) == 0 {
		return ""
	}

	keys := make([]string, 0, len(rates))
	for k := range rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s hit rate %.2f\n", k, rates[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// balanceWarning warns the oracle when recent output is lopsidedly long.
func (p *Pipeline) balanceWarning(ctx context.Context) string {
	if p.signals == nil {
		return ""
	}
	directions, err := p.signals.RecentDirections(ctx, p.nowFn().Add(-balanceWindow))
	if err != nil {
		p.logger.WithError(err).Warn("Direction balance check unavailable")
		return ""
	}
	if len(directions) < balanceMinSignals {
		return ""
	}

	long := 0
	for _, d := range directions {
		if d == contracts.DirectionLong {
			long++
		}
	}
	share := float64(long) / float64(len(directions))
	if share <= balanceLongShare {
		return ""
	}
	return fmt.Sprintf("%d of the last %d signals were LONG (%.0f%%). Scrutinize long theses harder and surface short or hedge setups where the evidence supports them.",
		long, len(directions), share*100)
}

func (p *Pipeline) finish(ctx context.Context, outcome *contracts.CycleOutcome, log *logger.Logger) *contracts.CycleOutcome {
	p.mu.Lock()
	p.last = outcome
	p.mu.Unlock()

	if p.metrics != nil {
		_ = p.metrics.Incr(ctx, "cycles_total", 1)
		_ = p.metrics.Incr(ctx, "signals_persisted_total", int64(outcome.Persisted))
	}

	log.WithFields(map[string]interface{}{
		"posts":      outcome.PostsIn,
		"clusters":   outcome.ClustersScored,
		"active":     outcome.ClustersActive,
		"candidates": outcome.CandidatesTotal,
		"persisted":  outcome.Persisted,
		"drops":      outcome.DropCounts,
		"duration":   outcome.FinishedAt.Sub(outcome.StartedAt).String(),
	}).Info("Pipeline cycle finished")
	return outcome
}

func emptyOutcome(cycleID string, start, end time.Time) *contracts.CycleOutcome {
	return &contracts.CycleOutcome{
		CycleID:    cycleID,
		StartedAt:  start,
		FinishedAt: end,
		DropCounts: map[string]int{},
	}
}
