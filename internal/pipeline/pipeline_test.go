package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/internal/cluster"
	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/converge"
	"github.com/siftlabs/sift/internal/dedup"
	"github.com/siftlabs/sift/internal/extract"
	"github.com/siftlabs/sift/internal/gate"
	"github.com/siftlabs/sift/internal/state"
	"github.com/siftlabs/sift/pkg/config"
	"github.com/siftlabs/sift/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "console"})
}

type fakePostRepo struct {
	posts []contracts.Post
}

func (f *fakePostRepo) Recent(ctx context.Context, window time.Duration, limit int) ([]contracts.Post, error) {
	return f.posts, nil
}

func (f *fakePostRepo) SearchMentions(ctx context.Context, symbol string, terms []string, window time.Duration, limit int) ([]contracts.Post, error) {
	return nil, nil
}

type fakeSignalRepo struct {
	inserted   []*contracts.ScoredSignal
	directions []contracts.Direction
}

func (f *fakeSignalRepo) Insert(ctx context.Context, s *contracts.ScoredSignal) error {
	f.inserted = append(f.inserted, s)
	return nil
}

func (f *fakeSignalRepo) FindSameType(ctx context.Context, symbol, signalType string, since time.Time) (*contracts.ScoredSignal, error) {
	return nil, nil
}

func (f *fakeSignalRepo) RecentBySymbol(ctx context.Context, symbol string, since time.Time, limit int) ([]*contracts.ScoredSignal, error) {
	return nil, nil
}

func (f *fakeSignalRepo) MergeInto(ctx context.Context, id string, score int, conviction float64, sources []contracts.SourceRef) error {
	return nil
}

func (f *fakeSignalRepo) RecentDirections(ctx context.Context, since time.Time) ([]contracts.Direction, error) {
	return f.directions, nil
}

func (f *fakeSignalRepo) NearMiss(ctx context.Context, since time.Time, limit int) ([]*contracts.ScoredSignal, error) {
	return nil, nil
}

func (f *fakeSignalRepo) UpdateResearch(ctx context.Context, id string, research *contracts.ResearchBundle) error {
	return nil
}

type fakeDrops struct {
	records []contracts.DropRecord
}

func (f *fakeDrops) Record(ctx context.Context, drop *contracts.DropRecord, payload *contracts.SignalCandidate) error {
	f.records = append(f.records, *drop)
	return nil
}

type fakeAccuracy struct {
	rates map[string]float64
}

func (f *fakeAccuracy) Rates(ctx context.Context) (map[string]float64, error) {
	return f.rates, nil
}

type fakeMarket struct{}

func (f *fakeMarket) Price(ctx context.Context, symbol string) (*float64, error) {
	p := 420.0
	return &p, nil
}

func (f *fakeMarket) Assess(ctx context.Context, symbol string) (*contracts.Tradability, error) {
	return &contracts.Tradability{Pass: true, PrimarySymbol: symbol}, nil
}

type fakeOracle struct {
	calls      int
	req        *contracts.OracleRequest
	candidates []contracts.SignalCandidate
	err        error
}

func (f *fakeOracle) Synthesize(ctx context.Context, req *contracts.OracleRequest) ([]contracts.SignalCandidate, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

type fixture struct {
	pipeline *Pipeline
	posts    *fakePostRepo
	signals  *fakeSignalRepo
	oracle   *fakeOracle
	novelty  *state.MemNoveltyStore
	metrics  *state.MemMetricsStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := testLogger()

	posts := &fakePostRepo{}
	signals := &fakeSignalRepo{}
	oracle := &fakeOracle{}
	novelty := state.NewMemNoveltyStore()
	metrics := state.NewMemMetricsStore()

	promoter := converge.NewPromoter(
		state.NewMemClusterStateStore(), metrics, state.NewMemQueueStore(), log,
		0.30, 0.25, 30*time.Minute, 2*time.Hour,
	)
	deduper := dedup.New(signals, state.NewMemFingerprintStore(), log, time.Hour, 0.60, time.Hour)
	g := gate.New(deduper, &fakeMarket{}, &fakeAccuracy{}, state.NewMemNoveltyStore(), signals, &fakeDrops{}, log, gate.Config{
		MinConviction:   0.40,
		MinConvergence:  0.20,
		NoiseThreshold:  35,
		QualityMin:      30,
		MinIndependence: 0.45,
		NoveltyTTL:      8 * time.Hour,
	})

	p := New(
		posts,
		extract.New(log),
		cluster.New(novelty, log),
		promoter,
		oracle,
		g,
		signals,
		&fakeAccuracy{},
		metrics,
		log,
		Config{PostWindow: 30 * time.Minute, PostLimit: 2000, EvidenceWorkers: 2},
	)
	return &fixture{pipeline: p, posts: posts, signals: signals, oracle: oracle, novelty: novelty, metrics: metrics}
}

func convergedPosts() []contracts.Post {
	return []contracts.Post{
		{ID: "p1", Platform: "options_flow", Author: "a1", Content: "$NVDA earnings beat expected, datacenter strength"},
		{ID: "p2", Platform: "reddit", Author: "a2", Content: "$NVDA earnings whisper looks strong"},
		{ID: "p3", Platform: "twitter", Author: "a3", Content: "$NVDA earnings preview: datacenter is the story"},
		{ID: "p4", Platform: "news_rss", Author: "a4", Content: "$NVDA earnings on deck this week"},
	}
}

func oracleCandidate() contracts.SignalCandidate {
	return contracts.SignalCandidate{
		SignalType: "earnings_catalyst",
		Instruments: []contracts.Instrument{
			{Symbol: "NVDA", AssetClass: "equity", Direction: contracts.DirectionLong},
		},
		Direction:   contracts.DirectionLong,
		Conviction:  0.80,
		TimeHorizon: contracts.HorizonDays,
		Thesis:      "datacenter demand drives an earnings beat",
		Sources: []contracts.SourceRef{
			{PostID: "p1", Platform: "options_flow", Author: "a1", Relevance: 0.9},
			{PostID: "p2", Platform: "reddit", Author: "a2", Relevance: 0.8},
			{PostID: "p3", Platform: "twitter", Author: "a3", Relevance: 0.7},
			{PostID: "p4", Platform: "news_rss", Author: "a4", Relevance: 0.7},
			{PostID: "p5", Platform: "twitter", Author: "a5", Relevance: 0.6},
		},
	}
}

func TestRunCycleEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = convergedPosts()
	f.oracle.candidates = []contracts.SignalCandidate{oracleCandidate()}

	outcome, err := f.pipeline.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, outcome.PostsIn)
	assert.Equal(t, 1, outcome.ClustersScored)
	assert.Equal(t, 1, outcome.ClustersActive)
	assert.Equal(t, 1, outcome.CandidatesTotal)
	assert.Equal(t, 1, outcome.Persisted)
	assert.NotEmpty(t, outcome.CycleID)

	require.Len(t, f.signals.inserted, 1)
	sig := f.signals.inserted[0]
	assert.Equal(t, "earnings_catalyst", sig.Candidate.SignalType)
	require.NotNil(t, sig.Research)
	require.NotNil(t, sig.Research.Evidence)
	assert.Equal(t, 4, sig.Research.Evidence.UniquePlatforms)

	assert.Equal(t, 1, f.oracle.calls)
	require.NotNil(t, f.oracle.req)
	assert.Len(t, f.oracle.req.Clusters, 1)
	assert.Equal(t, "NVDA", f.oracle.req.Clusters[0].Cluster.Symbol)

	assert.Same(t, outcome, f.pipeline.LastOutcome())
	assert.Equal(t, int64(1), f.metrics.Counter("cycles_total"))
	assert.Equal(t, int64(1), f.metrics.Counter("signals_persisted_total"))
}

func TestRunCycleNoPosts(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.pipeline.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.PostsIn)
	assert.Equal(t, 0, outcome.Persisted)
	assert.Equal(t, 0, f.oracle.calls)
	assert.Same(t, outcome, f.pipeline.LastOutcome())
}

func TestRunCycleNothingConverges(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = []contracts.Post{
		{ID: "p1", Platform: "twitter", Author: "a1", Content: "$NVDA earnings soon"},
	}

	outcome, err := f.pipeline.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.PostsIn)
	assert.Equal(t, 1, outcome.ClustersScored)
	assert.Equal(t, 0, outcome.ClustersActive)
	assert.Equal(t, 0, f.oracle.calls)
}

func TestRunCycleExcludesStaleTopics(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = convergedPosts()
	f.oracle.candidates = []contracts.SignalCandidate{oracleCandidate()}

	// A recent signal already covered NVDA earnings; the topic must not
	// reach the oracle again inside the novelty window.
	require.NoError(t, f.novelty.Mark(context.Background(), "NVDA", "earnings", time.Hour))

	outcome, err := f.pipeline.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, outcome.PostsIn)
	assert.Equal(t, 0, outcome.ClustersScored)
	assert.Equal(t, 0, outcome.Persisted)
	assert.Equal(t, 0, f.oracle.calls)
	assert.Equal(t, 1, outcome.DropCounts[contracts.DropStaleTopic])
	assert.Contains(t, outcome.TopDropReasons, contracts.DropStaleTopic)
	assert.Equal(t, int64(1), f.metrics.Counter("stale_topics_total"))
}

func TestRunCycleDegradesOnOracleOutage(t *testing.T) {
	f := newFixture(t)
	f.posts.posts = convergedPosts()
	f.oracle.err = assert.AnError

	outcome, err := f.pipeline.RunCycle(context.Background())
	require.NoError(t, err)

	// One retry, then the cycle completes with zero candidates.
	assert.Equal(t, 2, f.oracle.calls)
	assert.Equal(t, 4, outcome.PostsIn)
	assert.Equal(t, 1, outcome.ClustersActive)
	assert.Equal(t, 0, outcome.CandidatesTotal)
	assert.Equal(t, 0, outcome.Persisted)
	assert.Same(t, outcome, f.pipeline.LastOutcome())
	assert.Equal(t, int64(1), f.metrics.Counter("cycles_total"))
}

func TestBalanceWarning(t *testing.T) {
	f := newFixture(t)

	f.signals.directions = []contracts.Direction{
		contracts.DirectionLong, contracts.DirectionLong, contracts.DirectionLong,
		contracts.DirectionLong, contracts.DirectionLong, contracts.DirectionLong,
	}
	warning := f.pipeline.balanceWarning(context.Background())
	assert.Contains(t, warning, "6 of the last 6 signals were LONG")

	f.signals.directions = []contracts.Direction{
		contracts.DirectionLong, contracts.DirectionLong, contracts.DirectionLong,
		contracts.DirectionLong, contracts.DirectionShort, contracts.DirectionShort,
	}
	assert.Empty(t, f.pipeline.balanceWarning(context.Background()))

	f.signals.directions = []contracts.Direction{contracts.DirectionLong}
	assert.Empty(t, f.pipeline.balanceWarning(context.Background()))
}

func TestAccuracyContext(t *testing.T) {
	f := newFixture(t)
	f.pipeline.accuracy = &fakeAccuracy{rates: map[string]float64{
		"earnings_catalyst:LONG": 0.61,
		"flow_anomaly":           0.33,
	}}

	ctx := f.pipeline.accuracyContext(context.Background())
	assert.Contains(t, ctx, "earnings_catalyst:LONG hit rate 0.61")
	assert.Contains(t, ctx, "flow_anomaly hit rate 0.33")
}
