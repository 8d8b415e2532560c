package evidence

import "github.com/siftlabs/sift/internal/contracts"

// Hard-control failure reasons.
const (
	FailLowIndependence  = "low_independence"
	FailUntradable       = "untradable"
	FailTooFewSources    = "too_few_sources"
	FailNotCrossPlatform = "not_cross_platform"
)

// ControlsInput carries everything the hard gate needs.
type ControlsInput struct {
	Tier          string
	Graph         *contracts.EvidenceGraph
	Tradability   *contracts.Tradability
	SourceCount   int
	PlatformCount int
	Novelty       float64

	MinIndependence float64
}

// BuildControls applies the hard gates reserved for top-tier signals.
// A single-platform signal can still pass when it carries a verified
// high-strength hit with high credibility and novelty.
func BuildControls(in ControlsInput) *contracts.Controls {
	independence := 0.0
	credibility := 0.0
	var hits []contracts.VerificationHit
	if in.Graph != nil {
		independence = in.Graph.IndependenceScore
		credibility = in.Graph.SourceCredibility
		hits = in.Graph.VerificationHits
	}

	verifiedSingle := len(hits) >= 1 && credibility >= 0.70 && in.Novelty >= 0.60

	var hardFail []string
	if in.Tier == contracts.TierCritical || in.Tier == contracts.TierHigh {
		if independence < in.MinIndependence && !verifiedSingle {
			hardFail = append(hardFail, FailLowIndependence)
		}
		if in.Tradability == nil || !in.Tradability.Pass {
			hardFail = append(hardFail, FailUntradable)
		}
		if in.SourceCount < 2 {
			hardFail = append(hardFail, FailTooFewSources)
		}
		if in.PlatformCount < 2 && !verifiedSingle {
			hardFail = append(hardFail, FailNotCrossPlatform)
		}
	}

	return &contracts.Controls{
		HardFail:         hardFail,
		Pass:             len(hardFail) == 0,
		MinIndependence:  in.MinIndependence,
		VerifiedSingleOK: verifiedSingle,
	}
}
