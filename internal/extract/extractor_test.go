package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/config"
	"github.com/siftlabs/sift/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "console"})
}

func TestExtractSymbolsCashtags(t *testing.T) {
	syms := ExtractSymbols("Loading up on $NVDA and $TSM before earnings")
	assert.Contains(t, syms, "NVDA")
	assert.Contains(t, syms, "TSM")
}

func TestExtractSymbolsKnownTickers(t *testing.T) {
	syms := ExtractSymbols("AAPL breaking out while SPY chops sideways")
	assert.Contains(t, syms, "AAPL")
	assert.Contains(t, syms, "SPY")
}

func TestExtractSymbolsRejectsStopwords(t *testing.T) {
	syms := ExtractSymbols("THE CEO SAID BUY NOW OR NEVER")
	assert.Empty(t, syms)
}

func TestExtractSymbolsRejectsUnknownUppercase(t *testing.T) {
	syms := ExtractSymbols("ZZZZ QWRT are not real tickers")
	assert.Empty(t, syms)
}

func TestExtractSymbolsCompanyNames(t *testing.T) {
	syms := ExtractSymbols("nvidia just crushed it, and palantir is next")
	assert.Contains(t, syms, "NVDA")
	assert.Contains(t, syms, "PLTR")
}

func TestExtractSymbolsShortNameWordBoundary(t *testing.T) {
	// "ge" must not fire inside "general purpose".
	syms := ExtractSymbols("a general purpose model with no edge")
	assert.NotContains(t, syms, "GE")

	syms = ExtractSymbols("ge is restructuring its aviation unit")
	assert.Contains(t, syms, "GE")
}

func TestExtractSymbolsSorted(t *testing.T) {
	syms := ExtractSymbols("$TSLA vs $AAPL vs $MSFT")
	assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, syms)
}

func TestClassifyEvents(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"earnings", "Q3 earnings beat expectations on strong revenue", []string{"earnings"}},
		{"insider", "CFO bought shares per the latest form 4", []string{"insider"}},
		{"biomedical", "phase 3 trial readout due, fda decision pending", []string{"biomedical"}},
		{"regulatory", "antitrust probe and a fresh lawsuit", []string{"regulatory"}},
		{"corporate", "merger announced, huge acquisition deal", []string{"corporate_action"}},
		{"macro", "fomc meeting, rate cut odds rising as cpi cools", []string{"macro"}},
		{"analyst", "analyst upgrade with a $300 price target", []string{"analyst_action"}},
		{"flow", "unusual volume and calls sweep on the tape", []string{"flow_anomaly"}},
		{"prediction", "polymarket odds just flipped", []string{"prediction_market"}},
		{"fallback", "this stonk is going to the moon", []string{"sentiment"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyEvents(tt.content))
		})
	}
}

func TestClassifyEventsMultiple(t *testing.T) {
	got := ClassifyEvents("earnings beat plus an analyst upgrade to follow")
	assert.Equal(t, []string{"earnings", "analyst_action"}, got)
}

func TestPlatformWeight(t *testing.T) {
	assert.Equal(t, 0.95, PlatformWeight("tiktok"))
	assert.Equal(t, 0.60, PlatformWeight("reddit"))
	assert.Equal(t, 0.20, PlatformWeight("sec_edgar"))
	assert.Equal(t, DefaultExclusivity, PlatformWeight("somewhere_new"))
}

func TestExtractorExtract(t *testing.T) {
	ex := New(testLogger())
	posts := []contracts.Post{
		{ID: "1", Platform: "tiktok", Author: "a", Content: "$NVDA earnings tonight"},
		{ID: "2", Platform: "reddit", Author: "b", Content: "markets feel heavy"},
	}

	out := ex.Extract(posts)
	require.Len(t, out, 2)

	assert.Equal(t, []string{"NVDA"}, out[0].Symbols)
	assert.Equal(t, []string{"earnings"}, out[0].EventTypes)
	assert.Equal(t, 0.95, out[0].Weight)

	assert.Empty(t, out[1].Symbols)
	assert.Equal(t, []string{"sentiment"}, out[1].EventTypes)
	assert.Equal(t, 0.60, out[1].Weight)
}
