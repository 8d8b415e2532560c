package gate

import "fmt"

// BoostInput carries the edge analysis, mention velocity and book
// pressure signals that adjust a candidate's score after calibration.
type BoostInput struct {
	Edge             ExclusivityEdge
	Velocity         *Velocity
	ConvergenceAlert bool

	// Concentration is the penalty fraction for piling onto a symbol
	// and direction the book already holds, 0 when the book is clean.
	Concentration float64

	// SingleSourcePenalty marks a corroboration-required signal type
	// arriving from a single platform.
	SingleSourcePenalty bool
}

// Boost result with the score-source trail fragment.
type Boost struct {
	Score int
	Tag   string
}

// ApplyBoosts lifts scores for signals with a real informational edge
// and dents scores for crowded or under-sourced ones. Pre-institutional
// signals floor at 80; a retail-to-mainstream spread adds 25; pure
// retail signals from very high exclusivity sources add 20; a
// cross-platform velocity surge floors at 85 and a plain spike adds 15;
// a standing convergence alert floors the score at 85. Concentration
// scales the score down and a single-source corroboration miss costs
// 15, both floored at 5.
func ApplyBoosts(score int, in BoostInput) Boost {
	out := Boost{Score: score}

	if in.Edge.PreInstitutional && len(in.Edge.HighSources) > 0 {
		if out.Score < 80 {
			out.Score = 80
			out.Tag += "+pre_institutional"
		}
	}

	switch in.Edge.EdgeType {
	case EdgeCrossPlatform:
		out.Score += 25
		out.Tag += "+cross_platform_edge"
	case EdgeRetailOnly:
		if in.Edge.AvgExclusivity >= 0.75 {
			out.Score += 20
			out.Tag += "+retail_edge"
		}
	}

	if v := in.Velocity; v != nil {
		if v.CrossPlatform {
			if out.Score < 85 {
				out.Score = 85
			}
			out.Tag += "+cross_plat_velocity"
		} else if v.Spike {
			out.Score += 15
			out.Tag += "+velocity_spike"
		}
	}

	if in.ConvergenceAlert && out.Score < 85 {
		out.Score = 85
		out.Tag += "+convergence_alert"
	}

	if in.Concentration > 0 {
		out.Score = int(float64(out.Score) * (1 - in.Concentration))
		if out.Score < 5 {
			out.Score = 5
		}
		out.Tag += fmt.Sprintf("+concentration(%.1f)", in.Concentration)
	}

	if in.SingleSourcePenalty {
		out.Score -= 15
		if out.Score < 5 {
			out.Score = 5
		}
		out.Tag += "+single_source_penalty"
	}

	return out
}
