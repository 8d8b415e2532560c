package extract

import "strings"

type eventPattern struct {
	keywords  []string
	eventType string
}

// Ordered keyword groups for deterministic event classification. A post
// can carry multiple event types; posts matching nothing fall back to
// "sentiment".
var eventPatterns = []eventPattern{
	{[]string{"earnings", "revenue", "eps", "beat expectations", "miss expectations",
		"quarterly results", "guidance", "q1", "q2", "q3", "q4", "10-q", "10q"}, "earnings"},
	{[]string{"insider", "form 4", "bought shares", "sold shares", "insider trading",
		"insider buying", "insider selling", "officer purchase"}, "insider"},
	{[]string{"fda", "approval", "clinical", "trial", "drug", "phase 3", "phase 2",
		"biotech", "pdufa", "nda"}, "biomedical"},
	{[]string{"sec", "investigation", "lawsuit", "regulatory", "fine", "penalty",
		"compliance", "subpoena", "antitrust", "probe"}, "regulatory"},
	{[]string{"launch", "product", "announced", "unveil", "new feature",
		"partnership", "acquisition", "merger", "m&a", "deal"}, "corporate_action"},
	{[]string{"tariff", "trade war", "sanctions", "geopolitical", "war", "conflict",
		"embargo", "fed", "rate cut", "rate hike", "fomc", "inflation",
		"cpi", "gdp", "recession", "treasury"}, "macro"},
	{[]string{"upgrade", "downgrade", "price target", "analyst", "rating",
		"outperform", "underperform", "initiate"}, "analyst_action"},
	{[]string{"short squeeze", "gamma squeeze", "short interest", "dark pool",
		"unusual volume", "options flow", "calls sweep", "puts sweep"}, "flow_anomaly"},
	{[]string{"prediction market", "polymarket", "kalshi", "probability",
		"prediction", "betting odds", "forecast"}, "prediction_market"},
}

// EventSentiment is the fallback event type for unclassified posts.
const EventSentiment = "sentiment"

// ClassifyEvents returns the event types matching the post content.
func ClassifyEvents(content string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, p := range eventPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				out = append(out, p.eventType)
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, EventSentiment)
	}
	return out
}
