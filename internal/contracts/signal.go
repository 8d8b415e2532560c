package contracts

import "time"

// Direction is the suggested trade direction of a signal.
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionHedge   Direction = "HEDGE"
	DirectionNoTrade Direction = "NO_TRADE"
)

// TimeHorizon expresses how quickly a signal is expected to play out.
type TimeHorizon string

const (
	HorizonMinutes TimeHorizon = "MINUTES"
	HorizonHours   TimeHorizon = "HOURS"
	HorizonDays    TimeHorizon = "DAYS"
	HorizonWeeks   TimeHorizon = "WEEKS"
	HorizonMonths  TimeHorizon = "MONTHS"
)

// Intelligence tiers by total score.
const (
	TierCritical = "CRITICAL"
	TierHigh     = "HIGH"
	TierModerate = "MODERATE"
	TierLow      = "LOW"
	TierNoise    = "NOISE"
)

// TierFor maps a total intelligence score to its tier label.
func TierFor(score int) string {
	switch {
	case score >= 80:
		return TierCritical
	case score >= 65:
		return TierHigh
	case score >= 50:
		return TierModerate
	case score >= 35:
		return TierLow
	default:
		return TierNoise
	}
}

// Instrument is a tradable instrument affected by a signal.
type Instrument struct {
	Symbol     string    `json:"symbol"`
	AssetClass string    `json:"asset_class"`
	Direction  Direction `json:"direction"`
}

// SourceRef links a signal back to one of its evidence posts.
type SourceRef struct {
	PostID      string  `json:"post_id"`
	Platform    string  `json:"platform"`
	Author      string  `json:"author"`
	URL         string  `json:"url,omitempty"`
	Relevance   float64 `json:"relevance"`
	Headline    string  `json:"headline,omitempty"`
	Snippet     string  `json:"snippet,omitempty"`
	PublishedAt string  `json:"published_at,omitempty"`
}

// IntelligenceScores holds the five scoring dimensions, each 1-20.
type IntelligenceScores struct {
	EarningsImpact       int `json:"earnings_impact"`
	InformationAsymmetry int `json:"information_asymmetry"`
	TimeSensitivity      int `json:"time_sensitivity"`
	MarketCapExposure    int `json:"market_cap_exposure"`
	CatalystClarity      int `json:"catalyst_clarity"`
}

// Sum returns the raw dimension total before contrarian bonus and clamping.
func (s IntelligenceScores) Sum() int {
	return s.EarningsImpact + s.InformationAsymmetry + s.TimeSensitivity +
		s.MarketCapExposure + s.CatalystClarity
}

// SignalCandidate is a synthesized signal as returned by the oracle,
// before scoring and gating.
type SignalCandidate struct {
	SignalType        string              `json:"signal_type"`
	Instruments       []Instrument        `json:"affected_instruments"`
	Direction         Direction           `json:"direction"`
	Conviction        float64             `json:"conviction"`
	TimeHorizon       TimeHorizon         `json:"time_horizon"`
	Thesis            string              `json:"thesis"`
	Headline          string              `json:"headline,omitempty"`
	ExpiresInHours    int                 `json:"expires_in_hours"`
	Intelligence      *IntelligenceScores `json:"intelligence_scores,omitempty"`
	TotalIntelligence int                 `json:"total_intelligence_score,omitempty"`
	ConsensusPosition string              `json:"consensus_position,omitempty"`
	Sources           []SourceRef         `json:"sources"`
}

// PrimarySymbol returns the symbol of the first affected instrument.
func (c *SignalCandidate) PrimarySymbol() string {
	if len(c.Instruments) == 0 {
		return ""
	}
	return c.Instruments[0].Symbol
}

// Symbols returns the distinct affected instrument symbols.
func (c *SignalCandidate) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, inst := range c.Instruments {
		if inst.Symbol == "" || seen[inst.Symbol] {
			continue
		}
		seen[inst.Symbol] = true
		out = append(out, inst.Symbol)
	}
	return out
}

// Platforms returns the distinct source platforms backing the candidate.
func (c *SignalCandidate) Platforms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range c.Sources {
		if s.Platform == "" || seen[s.Platform] {
			continue
		}
		seen[s.Platform] = true
		out = append(out, s.Platform)
	}
	return out
}

// ScoredSignal is a candidate that survived the scoring cascade and is
// ready for persistence.
type ScoredSignal struct {
	ID            string          `json:"id"`
	Candidate     SignalCandidate `json:"candidate"`
	Score         int             `json:"score"`
	RawScore      int             `json:"raw_score"`
	ScoreCeiling  int             `json:"score_ceiling"`
	ScoreSource   string          `json:"score_source"`
	Tier          string          `json:"tier"`
	Quality       int             `json:"quality"`
	Convergence   float64         `json:"convergence"`
	Fingerprint   string          `json:"fingerprint"`
	WeightTier    string          `json:"weight_tier,omitempty"`
	Freshness     string          `json:"freshness,omitempty"`
	ForcedPersist bool            `json:"forced_persist,omitempty"`
	PriceAtSignal *float64        `json:"price_at_signal,omitempty"`
	Research      *ResearchBundle `json:"research,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// SourceCount returns the number of evidence posts behind the signal.
func (s *ScoredSignal) SourceCount() int {
	return len(s.Candidate.Sources)
}

// PlatformCount returns the number of distinct source platforms.
func (s *ScoredSignal) PlatformCount() int {
	return len(s.Candidate.Platforms())
}
