package gate

import (
	"github.com/siftlabs/sift/internal/contracts"
)

// Widely held symbols whose signals reach the largest exposure.
var megaCaps = map[string]bool{
	"AAPL": true, "MSFT": true, "NVDA": true, "GOOGL": true, "GOOG": true,
	"AMZN": true, "META": true, "TSLA": true, "BRK.B": true, "BRK": true,
	"JPM": true, "V": true, "MA": true, "JNJ": true, "UNH": true,
	"XOM": true, "PG": true, "HD": true, "AVGO": true, "LLY": true,
	"SPY": true, "QQQ": true, "DIA": true, "IWM": true,
}

// IntelligenceInput carries the deterministic context used to floor the
// model-provided dimension scores.
type IntelligenceInput struct {
	AvgExclusivity   float64
	EarningsCatalyst bool
}

// ComputeIntelligence floors the oracle's dimension scores with
// deterministic evidence: source exclusivity, time horizon, mega-cap
// exposure and conviction. Returns the clamped total and the dimensions
// actually used.
func ComputeIntelligence(c *contracts.SignalCandidate, in IntelligenceInput) (int, contracts.IntelligenceScores) {
	var s contracts.IntelligenceScores
	if c.Intelligence != nil {
		s = *c.Intelligence
	}

	ei := orDefault(s.EarningsImpact, 8)
	if in.EarningsCatalyst && ei < 15 {
		ei = 15
	}
	if c.SignalType == "insider_signal" && ei < 16 {
		ei = 16
	}

	ia := orDefault(s.InformationAsymmetry, 10)
	if floor := int(in.AvgExclusivity * 20); ia < floor {
		ia = floor
	}

	ts := orDefault(s.TimeSensitivity, 10)
	if floor := horizonFloor(c.TimeHorizon); ts < floor {
		ts = floor
	}

	mc := orDefault(s.MarketCapExposure, 10)
	for _, sym := range c.Symbols() {
		if megaCaps[sym] {
			if mc < 16 {
				mc = 16
			}
			break
		}
	}

	cc := orDefault(s.CatalystClarity, 10)
	if floor := int(c.Conviction * 20); cc < floor {
		cc = floor
	}

	total := ei + ia + ts + mc + cc
	if c.ConsensusPosition == "contrarian" && total >= 50 {
		total += 10
	}
	total = clampScore(total)

	return total, contracts.IntelligenceScores{
		EarningsImpact:       ei,
		InformationAsymmetry: ia,
		TimeSensitivity:      ts,
		MarketCapExposure:    mc,
		CatalystClarity:      cc,
	}
}

func horizonFloor(h contracts.TimeHorizon) int {
	switch h {
	case contracts.HorizonMinutes:
		return 18
	case contracts.HorizonHours:
		return 14
	case contracts.HorizonDays:
		return 10
	case contracts.HorizonWeeks:
		return 6
	case contracts.HorizonMonths:
		return 3
	default:
		return 10
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func clampScore(v int) int {
	if v < 5 {
		return 5
	}
	if v > 100 {
		return 100
	}
	return v
}
