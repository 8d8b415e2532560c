package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makePost(platform, author string, weight float64) ExtractedPost {
	return ExtractedPost{
		Post:   Post{Platform: platform, Author: author},
		Weight: weight,
	}
}

func TestClusterKey(t *testing.T) {
	c := &Cluster{Symbol: "TSLA", EventType: "earnings"}
	assert.Equal(t, "TSLA:earnings", c.Key())
}

func TestClusterPlatformsAndAuthors(t *testing.T) {
	c := &Cluster{
		Symbol:    "AAPL",
		EventType: "sentiment",
		Posts: []ExtractedPost{
			makePost("reddit", "u1", 0.60),
			makePost("reddit", "u2", 0.60),
			makePost("tiktok", "u1", 0.95),
		},
	}
	assert.Equal(t, []string{"reddit", "tiktok"}, c.Platforms())
	assert.Equal(t, []string{"u1", "u2"}, c.Authors())
	assert.InDelta(t, (0.60+0.60+0.95)/3, c.AvgWeight(), 1e-9)
}

func TestClusterAvgWeightEmpty(t *testing.T) {
	c := &Cluster{Symbol: "MARKET", EventType: "macro"}
	assert.Equal(t, 0.0, c.AvgWeight())
}

func TestCycleOutcomeTopReasons(t *testing.T) {
	o := &CycleOutcome{DropCounts: map[string]int{
		DropNoise:          5,
		DropLowConviction:  2,
		DropNoTrade:        5,
		DropCrossTypeDedup: 1,
	}}
	top := o.TopReasons(3)
	assert.Equal(t, []string{DropNoTrade, DropNoise, DropLowConviction}, top)

	assert.Len(t, o.TopReasons(10), 4)
}
