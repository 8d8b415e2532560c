package converge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/state"
	"github.com/siftlabs/sift/pkg/config"
	"github.com/siftlabs/sift/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "console"})
}

type promoterFixture struct {
	promoter *Promoter
	store    *state.MemClusterStateStore
	metrics  *state.MemMetricsStore
	queue    *state.MemQueueStore
	now      time.Time
}

func newFixture(t *testing.T) *promoterFixture {
	t.Helper()
	f := &promoterFixture{
		store:   state.NewMemClusterStateStore(),
		metrics: state.NewMemMetricsStore(),
		queue:   state.NewMemQueueStore(),
		now:     time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
	}
	f.promoter = NewPromoter(f.store, f.metrics, f.queue, testLogger(),
		0.30, 0.25, 20*time.Minute, 2*time.Hour)
	f.promoter.nowFn = func() time.Time { return f.now }
	return f
}

func scoredCluster(symbol, event string, score float64) *contracts.ClusterScore {
	return &contracts.ClusterScore{
		Cluster: &contracts.Cluster{
			Symbol:    symbol,
			EventType: event,
			Posts: []contracts.ExtractedPost{
				{Post: contracts.Post{ID: "1", Platform: "reddit", Author: "a"}, Weight: 0.6},
			},
		},
		Score: score,
	}
}

func TestSelectPromotesAboveHigh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	selected := f.promoter.Select(ctx, []*contracts.ClusterScore{
		scoredCluster("NVDA", "earnings", 0.42),
		scoredCluster("AAPL", "sentiment", 0.10),
	})

	require.Len(t, selected, 1)
	assert.Equal(t, "NVDA:earnings", selected[0].Cluster.Key())
	assert.Equal(t, int64(1), f.metrics.Counter("direct_promotions"))

	st, err := f.store.Get(ctx, "NVDA:earnings")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, contracts.StateActive, st.State)
}

func TestSelectHysteresisKeepsActiveAboveLow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Promote at 0.32, then dip to 0.27 which is below high but above low.
	selected := f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("NVDA", "earnings", 0.32)})
	require.Len(t, selected, 1)

	f.now = f.now.Add(5 * time.Minute)
	selected = f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("NVDA", "earnings", 0.27)})
	require.Len(t, selected, 1, "ACTIVE cluster must stay selected above the low threshold")

	// Dropping below low clears the state entirely.
	f.now = f.now.Add(5 * time.Minute)
	selected = f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("NVDA", "earnings", 0.20)})
	assert.Empty(t, selected)

	st, err := f.store.Get(ctx, "NVDA:earnings")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestSelectCandidateBandNotSelected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// In the band the cluster is tracked but never forwarded.
	scores := []float64{0.27, 0.26, 0.28}
	for _, sc := range scores {
		selected := f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("TSLA", "macro", sc)})
		assert.Empty(t, selected)
		f.now = f.now.Add(5 * time.Minute)
	}

	st, err := f.store.Get(ctx, "TSLA:macro")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, contracts.StateCandidate, st.State)
	assert.Equal(t, int64(3), f.metrics.Counter("candidate_seen"))
}

func TestSelectCandidatePromotionCountsDwell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("TSLA", "macro", 0.27)})
	f.now = f.now.Add(10 * time.Minute)
	selected := f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("TSLA", "macro", 0.33)})

	require.Len(t, selected, 1)
	assert.Equal(t, int64(1), f.metrics.Counter("candidate_promotions"))
	assert.Equal(t, int64(10), f.metrics.Counter("candidate_minutes_total"))
	assert.Equal(t, int64(0), f.metrics.Counter("direct_promotions"))
}

func TestSelectStalledCandidateQueued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("TSLA", "macro", 0.27)})
	assert.Equal(t, 0, f.queue.Len())

	// After dwelling past the minimum the candidate is queued for
	// corroboration.
	f.now = f.now.Add(25 * time.Minute)
	f.promoter.Select(ctx, []*contracts.ClusterScore{scoredCluster("TSLA", "macro", 0.28)})
	assert.Equal(t, 1, f.queue.Len())
	assert.Equal(t, int64(1), f.metrics.Counter("clusters_stalled_count"))
}

func TestSelectSnapshotWritten(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.promoter.Select(ctx, []*contracts.ClusterScore{
		scoredCluster("NVDA", "earnings", 0.42),
		scoredCluster("AAPL", "sentiment", 0.10),
	})

	v, ok := f.metrics.SnapshotValue("last_selected_count")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	v, ok = f.metrics.SnapshotValue("last_scored_count")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestNewPromoterRepairsInvertedBand(t *testing.T) {
	p := NewPromoter(nil, nil, nil, testLogger(), 0.30, 0.35, time.Minute, time.Hour)
	high, low := p.Thresholds()
	assert.Equal(t, 0.30, high)
	assert.InDelta(t, 0.25, low, 1e-9)
}

func TestSelectWithoutStoreFallsBackToThreshold(t *testing.T) {
	p := NewPromoter(nil, nil, nil, testLogger(), 0.30, 0.25, time.Minute, time.Hour)

	selected := p.Select(context.Background(), []*contracts.ClusterScore{
		scoredCluster("NVDA", "earnings", 0.31),
		scoredCluster("TSLA", "macro", 0.27),
	})
	require.Len(t, selected, 1)
	assert.Equal(t, "NVDA:earnings", selected[0].Cluster.Key())
}
