package converge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siftlabs/sift/internal/contracts"
)

func clusterWith(symbol, event string, posts ...contracts.ExtractedPost) *contracts.Cluster {
	return &contracts.Cluster{Symbol: symbol, EventType: event, Posts: posts}
}

func cpost(id, platform, author string, weight float64) contracts.ExtractedPost {
	return contracts.ExtractedPost{
		Post:   contracts.Post{ID: id, Platform: platform, Author: author},
		Weight: weight,
	}
}

func TestScoreEmptyCluster(t *testing.T) {
	assert.Equal(t, 0.0, Score(clusterWith("NVDA", "earnings")))
}

func TestScoreSinglePost(t *testing.T) {
	c := clusterWith("NVDA", "earnings", cpost("1", "reddit", "a", 0.60))
	// 0.25*0.40 + 0.125*0.25 + 0.25*0.15 + 0.60*0.20 = 0.289
	assert.InDelta(t, 0.289, Score(c), 1e-9)
}

func TestScoreSaturation(t *testing.T) {
	var posts []contracts.ExtractedPost
	platforms := []string{"reddit", "tiktok", "twitter", "blind", "discord"}
	for i := 0; i < 10; i++ {
		posts = append(posts, cpost(
			string(rune('a'+i)),
			platforms[i%len(platforms)],
			"author-"+string(rune('a'+i)),
			0.5,
		))
	}
	c := clusterWith("NVDA", "earnings", posts...)
	// Platforms, volume and authors all saturated:
	// 0.40 + 0.25 + 0.15 + 0.5*0.20 = 0.90
	assert.InDelta(t, 0.90, Score(c), 1e-9)
}

func TestScoreSpreadBonus(t *testing.T) {
	without := clusterWith("NVDA", "earnings",
		cpost("1", "reddit", "a", 0.60),
		cpost("2", "discord", "b", 0.75),
	)
	with := clusterWith("NVDA", "earnings",
		cpost("1", "tiktok", "a", 0.95),
		cpost("2", "sec_edgar", "b", 0.20),
	)

	// Both have 2 platforms, 2 posts, 2 authors; only the second spans
	// the high and low exclusivity bands.
	base := 2.0/4*0.40 + 2.0/8*0.25 + 2.0/4*0.15
	assert.InDelta(t, base+(0.60+0.75)/2*0.20, Score(without), 0.001)
	assert.InDelta(t, base+(0.95+0.20)/2*0.20+0.15, Score(with), 0.001)
}

func TestScoreClampedToOne(t *testing.T) {
	var posts []contracts.ExtractedPost
	platforms := []string{"tiktok", "instagram", "blind", "glassdoor", "sec_edgar"}
	weights := []float64{0.95, 0.90, 0.90, 0.85, 0.20}
	for i := 0; i < 10; i++ {
		posts = append(posts, cpost(
			string(rune('a'+i)),
			platforms[i%len(platforms)],
			"author-"+string(rune('a'+i)),
			weights[i%len(weights)],
		))
	}
	c := clusterWith("NVDA", "earnings", posts...)
	assert.LessOrEqual(t, Score(c), 1.0)
}

func TestScoreAllSortedDescending(t *testing.T) {
	small := clusterWith("AAPL", "sentiment", cpost("1", "reddit", "a", 0.60))
	big := clusterWith("NVDA", "earnings",
		cpost("2", "tiktok", "b", 0.95),
		cpost("3", "reddit", "c", 0.60),
		cpost("4", "sec_edgar", "d", 0.20),
	)

	scored := ScoreAll([]*contracts.Cluster{small, big})
	assert.Equal(t, "NVDA:earnings", scored[0].Cluster.Key())
	assert.Equal(t, "AAPL:sentiment", scored[1].Cluster.Key())
	assert.Greater(t, scored[0].Score, scored[1].Score)
}
