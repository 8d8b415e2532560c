package oracle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/siftlabs/sift/internal/contracts"
)

func promptCluster(symbol string, score float64) *contracts.ClusterScore {
	return &contracts.ClusterScore{
		Cluster: &contracts.Cluster{
			Symbol:    symbol,
			EventType: "earnings",
			Posts: []contracts.ExtractedPost{
				{Post: contracts.Post{ID: "p1", Platform: "reddit", Author: "u1", Content: "earnings beat incoming"}, Weight: 0.6},
				{Post: contracts.Post{ID: "p2", Platform: "twitter", Author: "u2", Content: "guidance raise chatter"}, Weight: 0.25},
			},
		},
		Score: score,
	}
}

func TestBuildPromptIncludesClusterDigest(t *testing.T) {
	req := &contracts.OracleRequest{
		Clusters:        []*contracts.ClusterScore{promptCluster("NVDA", 0.42)},
		AccuracyContext: "earnings_catalyst:LONG hit rate 0.61 over 18 signals",
		BalanceWarning:  "12 of 14 recent signals were LONG; scrutinize long theses",
	}

	prompt := BuildPrompt(req, 12)

	assert.Contains(t, prompt, "NVDA / earnings (convergence 0.420)")
	assert.Contains(t, prompt, "platforms=reddit,twitter")
	assert.Contains(t, prompt, "[p1] reddit @u1: earnings beat incoming")
	assert.Contains(t, prompt, "## Historical accuracy")
	assert.Contains(t, prompt, "## Portfolio balance")
	assert.True(t, strings.HasSuffix(prompt, "Respond with the JSON array now."))
}

func TestBuildPromptTruncatesClusters(t *testing.T) {
	req := &contracts.OracleRequest{
		Clusters: []*contracts.ClusterScore{
			promptCluster("AAPL", 0.5),
			promptCluster("MSFT", 0.4),
			promptCluster("TSLA", 0.3),
		},
	}

	prompt := BuildPrompt(req, 2)

	assert.Contains(t, prompt, "AAPL")
	assert.Contains(t, prompt, "MSFT")
	assert.NotContains(t, prompt, "TSLA")
	assert.Contains(t, prompt, "Converged clusters this cycle: 2")
}
