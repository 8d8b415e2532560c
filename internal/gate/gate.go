package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/dedup"
	"github.com/siftlabs/sift/internal/evidence"
	"github.com/siftlabs/sift/pkg/logger"
)

// Config tunes the scoring cascade.
type Config struct {
	MinConviction    float64
	MinConvergence   float64
	NoiseThreshold   int
	QualityMin       int
	MinIndependence  float64
	NoveltyTTL       time.Duration
	GuardrailEnabled bool

	// ConvergenceAlert floors the score when the backing cluster
	// converges at least this strongly.
	ConvergenceAlert float64
}

// Input pairs an oracle candidate with its evidence graph.
type Input struct {
	Candidate contracts.SignalCandidate
	Graph     *contracts.EvidenceGraph
}

// Gate runs the multi-stage scoring cascade over oracle candidates and
// persists the survivors. Stages are strictly ordered; the first
// failing stage records the drop and stops processing the candidate.
type Gate struct {
	deduper  *dedup.Deduper
	market   contracts.MarketData
	accuracy contracts.AccuracyRepository
	novelty  contracts.NoveltyStore
	signals  contracts.SignalRepository
	drops    contracts.DropRepository
	logger   *logger.Logger
	cfg      Config
	nowFn    func() time.Time
}

// New creates a gate.
func New(
	deduper *dedup.Deduper,
	market contracts.MarketData,
	accuracy contracts.AccuracyRepository,
	novelty contracts.NoveltyStore,
	signals contracts.SignalRepository,
	drops contracts.DropRepository,
	log *logger.Logger,
	cfg Config,
) *Gate {
	if cfg.ConvergenceAlert <= 0 {
		cfg.ConvergenceAlert = 0.70
	}
	return &Gate{
		deduper:  deduper,
		market:   market,
		accuracy: accuracy,
		novelty:  novelty,
		signals:  signals,
		drops:    drops,
		logger:   log,
		cfg:      cfg,
		nowFn:    time.Now,
	}
}

// Process scores and gates each candidate in order, persisting the
// survivors and recording every drop. The anti-zero guardrail persists
// the best noise- or quality-dropped candidate as a shadow signal when
// a cycle would otherwise produce nothing actionable.
func (g *Gate) Process(ctx context.Context, inputs []Input, clusters []*contracts.ClusterScore) *contracts.CycleOutcome {
	now := g.nowFn()
	outcome := &contracts.CycleOutcome{
		StartedAt:       now,
		CandidatesTotal: len(inputs),
		DropCounts:      make(map[string]int),
	}

	rates := g.accuracyRates(ctx)

	var bestDropped *droppedCandidate

	for i := range inputs {
		in := &inputs[i]
		signal, drop := g.processOne(ctx, in, clusters, rates, now)
		if drop != nil {
			g.recordDrop(ctx, outcome, drop, &in.Candidate)
			if guardrailEligible(drop.Reason) {
				if bestDropped == nil || drop.Score > bestDropped.drop.Score {
					bestDropped = &droppedCandidate{drop: drop, input: in}
				}
			}
			continue
		}
		if signal == nil {
			// Merged into an existing signal; counted, not persisted.
			continue
		}
		if err := g.signals.Insert(ctx, signal); err != nil {
			g.logger.WithError(err).WithField("symbol", signal.Candidate.PrimarySymbol()).Error("Signal persist failed")
			continue
		}
		outcome.Persisted++
		outcome.PersistedIDs = append(outcome.PersistedIDs, signal.ID)
		g.markNovelty(ctx, signal)

		g.logger.WithFields(map[string]interface{}{
			"signal_id": signal.ID,
			"symbol":    signal.Candidate.PrimarySymbol(),
			"type":      signal.Candidate.SignalType,
			"score":     signal.Score,
			"tier":      signal.Tier,
			"source":    signal.ScoreSource,
		}).Info("Signal persisted")
	}

	if g.cfg.GuardrailEnabled && outcome.Persisted == 0 && bestDropped != nil {
		if shadow := g.persistShadow(ctx, bestDropped, clusters, now); shadow != nil {
			outcome.Persisted++
			outcome.PersistedIDs = append(outcome.PersistedIDs, shadow.ID)
		}
	}

	outcome.TopDropReasons = outcome.TopReasons(3)
	outcome.FinishedAt = g.nowFn()
	return outcome
}

type droppedCandidate struct {
	drop  *contracts.DropRecord
	input *Input
}

// guardrailEligible limits shadow persistence to candidates that fell
// to the noise or quality thresholds. Merged, duplicate and pre-score
// drops are not near misses and never resurface as shadows.
func guardrailEligible(reason string) bool {
	return reason == contracts.DropNoise || reason == contracts.DropLowQuality
}

func (g *Gate) processOne(
	ctx context.Context,
	in *Input,
	clusters []*contracts.ClusterScore,
	rates map[string]float64,
	now time.Time,
) (*contracts.ScoredSignal, *contracts.DropRecord) {
	cand := in.Candidate
	symbol := cand.PrimarySymbol()

	fail := func(reason, detail string, score int) *contracts.DropRecord {
		return &contracts.DropRecord{
			Reason:     reason,
			Symbol:     symbol,
			SignalType: cand.SignalType,
			Direction:  cand.Direction,
			Score:      score,
			Detail:     detail,
			DroppedAt:  now,
		}
	}

	if cand.Direction == contracts.DirectionNoTrade {
		return nil, fail(contracts.DropNoTrade, "", 0)
	}

	if cand.Conviction < g.cfg.MinConviction {
		return nil, fail(contracts.DropLowConviction, fmt.Sprintf("conviction=%.2f", cand.Conviction), 0)
	}

	convergence := matchConvergence(&cand, clusters)
	if convergence < g.cfg.MinConvergence {
		return nil, fail(contracts.DropLowConvergence, fmt.Sprintf("convergence=%.3f", convergence), 0)
	}

	platforms := cand.Platforms()
	ceiling := Ceiling(platforms, len(cand.Sources))

	existing, err := g.deduper.SameTypeMatch(ctx, &cand)
	if err != nil {
		g.logger.WithError(err).Warn("Same-type dedup lookup failed")
	} else if existing != nil {
		intel, _ := g.score(&cand, clusters)
		if err := g.deduper.Merge(ctx, existing, &cand, intel); err != nil {
			g.logger.WithError(err).Warn("Same-type merge failed")
		}
		return nil, fail(contracts.DropSameTypeDedup, "merged_into="+existing.ID, intel)
	}

	dup, how, err := g.deduper.CrossTypeDuplicate(ctx, &cand)
	if err != nil {
		g.logger.WithError(err).Warn("Cross-type dedup check failed")
	} else if dup {
		return nil, fail(contracts.DropCrossTypeDedup, how, 0)
	}

	intel, dims := g.score(&cand, clusters)
	score := intel
	scoreSource := "computed"
	if cand.TotalIntelligence >= 5 && cand.TotalIntelligence <= 100 && cand.TotalIntelligence > score {
		score = cand.TotalIntelligence
		scoreSource = "llm"
	}

	conviction := cand.Conviction
	if cand.Direction == contracts.DirectionHedge {
		if score > 35 {
			score = 35
		}
		if conviction > 0.50 {
			conviction = 0.50
		}
		scoreSource += "+hedge_cap"
	}

	cal := Calibrate(score, conviction, cand.SignalType, cand.Direction, rates)
	score = cal.Score
	conviction = cal.Conviction
	scoreSource += cal.Tag

	edge := ComputeEdge(sourcePlatforms(&cand))
	boost := ApplyBoosts(score, BoostInput{
		Edge:                edge,
		Velocity:            MatchVelocity(&cand, clusters, now),
		ConvergenceAlert:    convergence >= g.cfg.ConvergenceAlert,
		Concentration:       g.concentration(ctx, symbol, cand.Direction, now),
		SingleSourcePenalty: needsCorroboration(cand.SignalType, rates) && len(platforms) < 2,
	})
	score = boost.Score
	scoreSource += boost.Tag

	score = clampScore(score)
	rawScore := score
	if score > ceiling {
		score = ceiling
		scoreSource += "+capped"
	}

	tier := contracts.TierFor(score)

	if score < g.cfg.NoiseThreshold {
		return nil, fail(contracts.DropNoise, fmt.Sprintf("score=%d", score), score)
	}

	quality := Quality(score, conviction, len(platforms), convergence)
	if quality < g.cfg.QualityMin {
		return nil, fail(contracts.DropLowQuality, fmt.Sprintf("quality=%d", quality), score)
	}

	tradability := g.assess(ctx, symbol)
	controls := evidence.BuildControls(evidence.ControlsInput{
		Tier:            tier,
		Graph:           in.Graph,
		Tradability:     tradability,
		SourceCount:     len(cand.Sources),
		PlatformCount:   len(platforms),
		Novelty:         evidence.NoveltyScore(convergence),
		MinIndependence: g.cfg.MinIndependence,
	})
	if !controls.Pass {
		// Failed controls are recorded on the signal, not dropped;
		// downstream consumers filter on controls.pass.
		g.logger.WithFields(map[string]interface{}{
			"symbol":    symbol,
			"type":      cand.SignalType,
			"hard_fail": strings.Join(controls.HardFail, ","),
		}).Warn("Hard controls failed, persisting with controls recorded")
	}

	cand.Conviction = conviction
	cand.Intelligence = &dims
	cand.TotalIntelligence = intel

	signal := &contracts.ScoredSignal{
		ID:           uuid.NewString(),
		Candidate:    cand,
		Score:        score,
		RawScore:     rawScore,
		ScoreCeiling: ceiling,
		ScoreSource:  scoreSource,
		Tier:         tier,
		Quality:      quality,
		Convergence:  convergence,
		Fingerprint:  dedup.Fingerprint(&cand),
		Freshness:    Freshness(cand.Sources, now),
		Research: &contracts.ResearchBundle{
			Evidence:    in.Graph,
			Tradability: tradability,
			Controls:    controls,
		},
		PriceAtSignal: g.price(ctx, symbol),
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(expiryHours(&cand)) * time.Hour),
	}
	return signal, nil
}

// score computes the deterministic intelligence score with its floors.
func (g *Gate) score(cand *contracts.SignalCandidate, clusters []*contracts.ClusterScore) (int, contracts.IntelligenceScores) {
	edge := ComputeEdge(sourcePlatforms(cand))
	return ComputeIntelligence(cand, IntelligenceInput{
		AvgExclusivity:   edge.AvgExclusivity,
		EarningsCatalyst: hasEarningsCluster(cand, clusters),
	})
}

const (
	concentrationWindow    = 12 * time.Hour
	concentrationLimit     = 20
	concentrationPerSignal = 0.10
	concentrationMax       = 0.30

	corroborationAccuracyFloor = 0.40
)

// concentration penalizes piling onto a symbol and direction the book
// already holds: 10% per recent same-direction signal, capped at 30%.
func (g *Gate) concentration(ctx context.Context, symbol string, dir contracts.Direction, now time.Time) float64 {
	if g.signals == nil || symbol == "" || symbol == contracts.MarketSymbol {
		return 0
	}
	recent, err := g.signals.RecentBySymbol(ctx, symbol, now.Add(-concentrationWindow), concentrationLimit)
	if err != nil {
		g.logger.WithError(err).Warn("Concentration lookup failed")
		return 0
	}
	n := 0
	for _, s := range recent {
		if s.ForcedPersist {
			continue
		}
		if s.Candidate.Direction == dir {
			n++
		}
	}
	penalty := concentrationPerSignal * float64(n)
	if penalty > concentrationMax {
		penalty = concentrationMax
	}
	return penalty
}

// needsCorroboration reports whether the signal type's aggregate hit
// rate is poor enough that a single platform cannot carry it alone.
func needsCorroboration(signalType string, rates map[string]float64) bool {
	rate, ok := rates[signalType]
	return ok && rate < corroborationAccuracyFloor
}

func (g *Gate) accuracyRates(ctx context.Context) map[string]float64 {
	if g.accuracy == nil {
		return nil
	}
	rates, err := g.accuracy.Rates(ctx)
	if err != nil {
		g.logger.WithError(err).Warn("Accuracy rates unavailable")
		return nil
	}
	return rates
}

func (g *Gate) assess(ctx context.Context, symbol string) *contracts.Tradability {
	if g.market == nil || symbol == "" || symbol == contracts.MarketSymbol {
		return &contracts.Tradability{Pass: false, Reasons: []string{"missing_market_data"}, PrimarySymbol: symbol}
	}
	t, err := g.market.Assess(ctx, symbol)
	if err != nil || t == nil {
		return &contracts.Tradability{Pass: false, Reasons: []string{"missing_market_data"}, PrimarySymbol: symbol}
	}
	return t
}

func (g *Gate) price(ctx context.Context, symbol string) *float64 {
	if g.market == nil || symbol == "" {
		return nil
	}
	p, err := g.market.Price(ctx, symbol)
	if err != nil {
		g.logger.WithError(err).WithField("symbol", symbol).Debug("Price lookup failed")
		return nil
	}
	return p
}

func (g *Gate) markNovelty(ctx context.Context, signal *contracts.ScoredSignal) {
	if g.novelty == nil {
		return
	}
	symbol := signal.Candidate.PrimarySymbol()
	if symbol == "" {
		return
	}
	if err := g.novelty.Mark(ctx, symbol, signal.Candidate.SignalType, g.cfg.NoveltyTTL); err != nil {
		g.logger.WithError(err).Warn("Novelty mark failed")
	}
}

func (g *Gate) recordDrop(ctx context.Context, outcome *contracts.CycleOutcome, drop *contracts.DropRecord, cand *contracts.SignalCandidate) {
	outcome.DropCounts[drop.Reason]++
	if drop.Reason == contracts.DropNoise {
		outcome.NoiseFiltered++
	}
	if len(outcome.DropExamples) < 5 {
		outcome.DropExamples = append(outcome.DropExamples, *drop)
	}
	if g.drops != nil {
		if err := g.drops.Record(ctx, drop, cand); err != nil {
			g.logger.WithError(err).Warn("Drop record failed")
		}
	}
}

// persistShadow stores the best dropped candidate as a low-priority
// shadow signal so a cycle never silently discards everything.
func (g *Gate) persistShadow(ctx context.Context, best *droppedCandidate, clusters []*contracts.ClusterScore, now time.Time) *contracts.ScoredSignal {
	cand := best.input.Candidate
	convergence := matchConvergence(&cand, clusters)
	score := best.drop.Score
	if score < 5 {
		score = 5
	}

	signal := &contracts.ScoredSignal{
		ID:            uuid.NewString(),
		Candidate:     cand,
		Score:         score,
		RawScore:      score,
		ScoreSource:   "guardrail:" + best.drop.Reason,
		Tier:          contracts.TierFor(score),
		Convergence:   convergence,
		Fingerprint:   dedup.Fingerprint(&cand),
		WeightTier:    "shadow_low_priority",
		ForcedPersist: true,
		Research: &contracts.ResearchBundle{
			Evidence: best.input.Graph,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(6 * time.Hour),
	}
	if err := g.signals.Insert(ctx, signal); err != nil {
		g.logger.WithError(err).Warn("Shadow persist failed")
		return nil
	}
	g.logger.WithFields(map[string]interface{}{
		"signal_id": signal.ID,
		"symbol":    cand.PrimarySymbol(),
		"reason":    best.drop.Reason,
	}).Info("Guardrail persisted shadow signal")
	return signal
}

func matchConvergence(cand *contracts.SignalCandidate, clusters []*contracts.ClusterScore) float64 {
	symbols := make(map[string]bool)
	for _, s := range cand.Symbols() {
		symbols[s] = true
	}

	best := 0.0
	primaryFound := false
	primary := cand.PrimarySymbol()
	for _, cs := range clusters {
		if cs.Cluster.Symbol == primary {
			if !primaryFound || cs.Score > best {
				best = cs.Score
			}
			primaryFound = true
		}
	}
	if primaryFound {
		return best
	}
	for _, cs := range clusters {
		if symbols[cs.Cluster.Symbol] && cs.Score > best {
			best = cs.Score
		}
	}
	return best
}

func hasEarningsCluster(cand *contracts.SignalCandidate, clusters []*contracts.ClusterScore) bool {
	symbols := make(map[string]bool)
	for _, s := range cand.Symbols() {
		symbols[s] = true
	}
	for _, cs := range clusters {
		if cs.Cluster.EventType == "earnings" && symbols[cs.Cluster.Symbol] {
			return true
		}
	}
	return false
}

func sourcePlatforms(cand *contracts.SignalCandidate) []string {
	out := make([]string, 0, len(cand.Sources))
	for _, s := range cand.Sources {
		if s.Platform != "" {
			out = append(out, s.Platform)
		}
	}
	return out
}

func expiryHours(cand *contracts.SignalCandidate) int {
	if cand.ExpiresInHours > 0 {
		return cand.ExpiresInHours
	}
	return 24
}
