package oracle

import (
	"fmt"
	"strings"

	"github.com/siftlabs/sift/internal/contracts"
)

const systemPrompt = `You are a financial signal synthesis engine. You receive clusters of social and news posts that converged on the same instrument and event type, plus historical accuracy context for past signal families.

For each cluster that supports an actionable thesis, emit one signal object. Respond with a JSON array only, no prose. Each object:
{
  "signal_type": "earnings_catalyst|insider_signal|flow_anomaly|regulatory_event|sentiment_shift|macro_event",
  "affected_instruments": [{"symbol": "TICKER", "asset_class": "equity|etf|crypto|commodity", "direction": "LONG|SHORT|HEDGE"}],
  "direction": "LONG|SHORT|HEDGE|NO_TRADE",
  "conviction": 0.0,
  "time_horizon": "MINUTES|HOURS|DAYS|WEEKS|MONTHS",
  "thesis": "one dense paragraph",
  "headline": "short headline",
  "expires_in_hours": 24,
  "intelligence_scores": {"earnings_impact": 1, "information_asymmetry": 1, "time_sensitivity": 1, "market_cap_exposure": 1, "catalyst_clarity": 1},
  "total_intelligence_score": 5,
  "consensus_position": "consensus|contrarian",
  "sources": [{"post_id": "", "platform": "", "author": "", "relevance": 0.0}]
}
Use NO_TRADE when a cluster is informative but not tradable. Score dimensions 1-20. Do not invent sources: reference only the post ids given.`

const (
	maxPostsPerCluster = 6
	snippetLen         = 280
)

// BuildPrompt renders the per-cycle user prompt from promoted clusters
// and the accuracy feedback context.
func BuildPrompt(req *contracts.OracleRequest, maxClusters int) string {
	clusters := req.Clusters
	if maxClusters > 0 && len(clusters) > maxClusters {
		clusters = clusters[:maxClusters]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Converged clusters this cycle: %d\n\n", len(clusters))

	for i, cs := range clusters {
		c := cs.Cluster
		fmt.Fprintf(&b, "## Cluster %d: %s / %s (convergence %.3f)\n", i+1, c.Symbol, c.EventType, cs.Score)
		fmt.Fprintf(&b, "platforms=%s authors=%d posts=%d avg_exclusivity=%.2f\n",
			strings.Join(c.Platforms(), ","), len(c.Authors()), len(c.Posts), c.AvgWeight())

		n := len(c.Posts)
		if n > maxPostsPerCluster {
			n = maxPostsPerCluster
		}
		for _, p := range c.Posts[:n] {
			fmt.Fprintf(&b, "- [%s] %s @%s: %s\n", p.ID, p.Platform, p.Author, p.Snippet(snippetLen))
		}
		b.WriteString("\n")
	}

	if req.AccuracyContext != "" {
		b.WriteString("## Historical accuracy\n")
		b.WriteString(req.AccuracyContext)
		b.WriteString("\n\n")
	}
	if req.BalanceWarning != "" {
		b.WriteString("## Portfolio balance\n")
		b.WriteString(req.BalanceWarning)
		b.WriteString("\n\n")
	}

	b.WriteString("Respond with the JSON array now.")
	return b.String()
}
