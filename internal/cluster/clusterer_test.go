package cluster

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

func post(id, platform string, symbols, events []string) contracts.ExtractedPost {
	return contracts.ExtractedPost{
		Post:       contracts.Post{ID: id, Platform: platform, Author: "author-" + id},
		Symbols:    symbols,
		EventTypes: events,
		Weight:     0.5,
	}
}

func TestBuildGroupsBySymbolAndEvent(t *testing.T) {
	c := New(nil, testLogger())

	posts := []contracts.ExtractedPost{
		post("1", "reddit", []string{"NVDA"}, []string{"earnings"}),
		post("2", "tiktok", []string{"NVDA"}, []string{"earnings"}),
		post("3", "reddit", []string{"NVDA"}, []string{"analyst_action"}),
		post("4", "twitter", []string{"TSLA"}, []string{"earnings"}),
	}

	clusters, err := c.Build(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, clusters, 3)

	// Largest cluster first.
	assert.Equal(t, "NVDA:earnings", clusters[0].Key())
	assert.Len(t, clusters[0].Posts, 2)
	assert.True(t, clusters[0].Novel)
}

func TestBuildMarketFallback(t *testing.T) {
	c := New(nil, testLogger())

	posts := []contracts.ExtractedPost{
		post("1", "reddit", nil, []string{"macro"}),
		post("2", "twitter", nil, []string{"macro", "sentiment"}),
	}

	clusters, err := c.Build(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	assert.Equal(t, "MARKET:macro", clusters[0].Key())
	assert.Len(t, clusters[0].Posts, 2)
	assert.Equal(t, "MARKET:sentiment", clusters[1].Key())
}

func TestBuildMultiSymbolPost(t *testing.T) {
	c := New(nil, testLogger())

	posts := []contracts.ExtractedPost{
		post("1", "reddit", []string{"AAPL", "MSFT"}, []string{"earnings"}),
	}

	clusters, err := c.Build(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, clusters, 2)
	assert.Equal(t, "AAPL:earnings", clusters[0].Key())
	assert.Equal(t, "MSFT:earnings", clusters[1].Key())
}

func TestBuildNoveltyMarking(t *testing.T) {
	novelty := state.NewMemNoveltyStore()
	require.NoError(t, novelty.Mark(context.Background(), "NVDA", "earnings", time.Hour))

	c := New(novelty, testLogger())
	posts := []contracts.ExtractedPost{
		post("1", "reddit", []string{"NVDA"}, []string{"earnings"}),
		post("2", "reddit", []string{"TSLA"}, []string{"earnings"}),
	}

	clusters, err := c.Build(context.Background(), posts)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	byKey := map[string]*contracts.Cluster{}
	for _, cl := range clusters {
		byKey[cl.Key()] = cl
	}
	assert.False(t, byKey["NVDA:earnings"].Novel)
	assert.True(t, byKey["TSLA:earnings"].Novel)
}
