package dedup

import (
	"context"
	"fmt"
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

type fakeSignalRepo struct {
	sameType   *contracts.ScoredSignal
	recent     []*contracts.ScoredSignal
	mergedID   string
	mergedConv float64
	mergedScr  int
	mergedSrcs []contracts.SourceRef
}

func (f *fakeSignalRepo) Insert(ctx context.Context, s *contracts.ScoredSignal) error { return nil }

func (f *fakeSignalRepo) FindSameType(ctx context.Context, symbol, signalType string, since time.Time) (*contracts.ScoredSignal, error) {
	return f.sameType, nil
}

func (f *fakeSignalRepo) RecentBySymbol(ctx context.Context, symbol string, since time.Time, limit int) ([]*contracts.ScoredSignal, error) {
	return f.recent, nil
}

func (f *fakeSignalRepo) MergeInto(ctx context.Context, id string, score int, conviction float64, sources []contracts.SourceRef) error {
	f.mergedID = id
	f.mergedScr = score
	f.mergedConv = conviction
	f.mergedSrcs = sources
	return nil
}

func (f *fakeSignalRepo) RecentDirections(ctx context.Context, since time.Time) ([]contracts.Direction, error) {
	return nil, nil
}

func (f *fakeSignalRepo) NearMiss(ctx context.Context, since time.Time, limit int) ([]*contracts.ScoredSignal, error) {
	return nil, nil
}

func (f *fakeSignalRepo) UpdateResearch(ctx context.Context, id string, research *contracts.ResearchBundle) error {
	return nil
}

func newDeduper(repo *fakeSignalRepo, fps contracts.FingerprintStore) *Deduper {
	return New(repo, fps, testLogger(), 8*time.Hour, 0.60, time.Hour)
}

func TestSameTypeMatchAndMerge(t *testing.T) {
	ctx := context.Background()
	existing := &contracts.ScoredSignal{
		ID:    "sig-1",
		Score: 62,
		Candidate: contracts.SignalCandidate{
			SignalType: "sentiment_momentum",
			Conviction: 0.55,
		},
	}
	repo := &fakeSignalRepo{sameType: existing}
	d := newDeduper(repo, state.NewMemFingerprintStore())

	cand := candidate(contracts.DirectionLong, contracts.HorizonDays, "demand surging", "NVDA")
	cand.Conviction = 0.70

	match, err := d.SameTypeMatch(ctx, cand)
	require.NoError(t, err)
	require.NotNil(t, match)

	require.NoError(t, d.Merge(ctx, match, cand, 55))
	assert.Equal(t, "sig-1", repo.mergedID)
	assert.Equal(t, 62, repo.mergedScr, "score keeps the higher of the two")
	assert.Equal(t, 0.70, repo.mergedConv, "conviction keeps the higher of the two")
}

func TestMergeUnionsSources(t *testing.T) {
	ctx := context.Background()
	existing := &contracts.ScoredSignal{
		ID:    "sig-1",
		Score: 62,
		Candidate: contracts.SignalCandidate{
			SignalType: "sentiment_momentum",
			Conviction: 0.55,
			Sources: []contracts.SourceRef{
				{PostID: "p1", Platform: "reddit"},
				{PostID: "p2", Platform: "twitter"},
			},
		},
	}
	repo := &fakeSignalRepo{sameType: existing}
	d := newDeduper(repo, state.NewMemFingerprintStore())

	cand := candidate(contracts.DirectionLong, contracts.HorizonDays, "demand surging", "NVDA")
	cand.Sources = []contracts.SourceRef{
		{PostID: "p2", Platform: "twitter"},
		{PostID: "p3", Platform: "news_rss"},
		{PostID: "p4", Platform: "options_flow"},
	}

	require.NoError(t, d.Merge(ctx, existing, cand, 55))
	require.Len(t, repo.mergedSrcs, 4, "overlapping post keeps one entry")
	ids := make([]string, 0, len(repo.mergedSrcs))
	for _, s := range repo.mergedSrcs {
		ids = append(ids, s.PostID)
	}
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids)
}

func TestMergeCapsUnionedSources(t *testing.T) {
	existing := &contracts.ScoredSignal{
		ID:    "sig-1",
		Score: 62,
		Candidate: contracts.SignalCandidate{
			SignalType: "sentiment_momentum",
			Conviction: 0.55,
		},
	}
	for i := 0; i < 18; i++ {
		existing.Candidate.Sources = append(existing.Candidate.Sources,
			contracts.SourceRef{PostID: fmt.Sprintf("old-%d", i), Platform: "reddit"})
	}

	cand := candidate(contracts.DirectionLong, contracts.HorizonDays, "demand surging", "NVDA")
	for i := 0; i < 5; i++ {
		cand.Sources = append(cand.Sources,
			contracts.SourceRef{PostID: fmt.Sprintf("new-%d", i), Platform: "twitter"})
	}

	repo := &fakeSignalRepo{sameType: existing}
	d := newDeduper(repo, state.NewMemFingerprintStore())

	require.NoError(t, d.Merge(context.Background(), existing, cand, 55))
	require.Len(t, repo.mergedSrcs, 20)
	assert.Equal(t, "old-0", repo.mergedSrcs[0].PostID)
	assert.Equal(t, "new-1", repo.mergedSrcs[19].PostID)
}

func TestSameTypeMatchNone(t *testing.T) {
	d := newDeduper(&fakeSignalRepo{}, state.NewMemFingerprintStore())
	cand := candidate(contracts.DirectionLong, contracts.HorizonDays, "demand surging", "NVDA")

	match, err := d.SameTypeMatch(context.Background(), cand)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestCrossTypeDuplicateByFingerprint(t *testing.T) {
	ctx := context.Background()
	fps := state.NewMemFingerprintStore()
	d := newDeduper(&fakeSignalRepo{}, fps)

	cand := candidate(contracts.DirectionLong, contracts.HorizonDays, "datacenter demand", "NVDA")

	dup, reason, err := d.CrossTypeDuplicate(ctx, cand)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.Empty(t, reason)

	// Second pass hits the stored fingerprint.
	dup, reason, err = d.CrossTypeDuplicate(ctx, cand)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "fingerprint", reason)
}

func TestCrossTypeDuplicateByThesisSimilarity(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSignalRepo{
		recent: []*contracts.ScoredSignal{
			{
				ID: "sig-2",
				Candidate: contracts.SignalCandidate{
					SignalType: "volume_anomaly",
					Thesis:     "Retail traders accumulating shares before earnings report",
				},
			},
		},
	}
	d := newDeduper(repo, state.NewMemFingerprintStore())

	cand := candidate(contracts.DirectionLong, contracts.HorizonDays,
		"Retail traders accumulating shares before earnings call", "NVDA")

	dup, reason, err := d.CrossTypeDuplicate(ctx, cand)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Equal(t, "thesis_similarity", reason)
}

func TestCrossTypeIgnoresSameTypeInSimilarity(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSignalRepo{
		recent: []*contracts.ScoredSignal{
			{
				ID: "sig-3",
				Candidate: contracts.SignalCandidate{
					SignalType: "sentiment_momentum",
					Thesis:     "Retail traders accumulating shares before earnings report",
				},
			},
		},
	}
	d := newDeduper(repo, state.NewMemFingerprintStore())

	cand := candidate(contracts.DirectionLong, contracts.HorizonDays,
		"Retail traders accumulating shares before earnings call", "NVDA")

	dup, _, err := d.CrossTypeDuplicate(ctx, cand)
	require.NoError(t, err)
	assert.False(t, dup, "same-type overlap is handled by merge, not cross-type dedup")
}
