package contracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{95, TierCritical},
		{80, TierCritical},
		{79, TierHigh},
		{65, TierHigh},
		{64, TierModerate},
		{50, TierModerate},
		{49, TierLow},
		{35, TierLow},
		{34, TierNoise},
		{5, TierNoise},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.score), "score %d", tt.score)
	}
}

func TestSignalCandidatePrimarySymbol(t *testing.T) {
	c := &SignalCandidate{
		Instruments: []Instrument{
			{Symbol: "NVDA", AssetClass: "equity", Direction: DirectionLong},
			{Symbol: "SMH", AssetClass: "etf", Direction: DirectionLong},
		},
	}
	assert.Equal(t, "NVDA", c.PrimarySymbol())
	assert.Equal(t, []string{"NVDA", "SMH"}, c.Symbols())

	empty := &SignalCandidate{}
	assert.Equal(t, "", empty.PrimarySymbol())
}

func TestSignalCandidatePlatforms(t *testing.T) {
	c := &SignalCandidate{
		Sources: []SourceRef{
			{PostID: "1", Platform: "reddit"},
			{PostID: "2", Platform: "reddit"},
			{PostID: "3", Platform: "tiktok"},
			{PostID: "4", Platform: ""},
		},
	}
	assert.Equal(t, []string{"reddit", "tiktok"}, c.Platforms())
}

func TestIntelligenceScoresSum(t *testing.T) {
	s := IntelligenceScores{
		EarningsImpact:       12,
		InformationAsymmetry: 15,
		TimeSensitivity:      14,
		MarketCapExposure:    16,
		CatalystClarity:      10,
	}
	assert.Equal(t, 67, s.Sum())
}
