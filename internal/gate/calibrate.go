package gate

import (
	"fmt"

	"github.com/siftlabs/sift/internal/contracts"
)

// Calibration outcome applied to a signal from historical accuracy.
type Calibration struct {
	Score      int
	Conviction float64
	Tag        string
}

// Calibrate adjusts score and conviction using the historical hit-rate
// of this signal type and direction. Poorly performing families are
// discounted; strong performers get a modest lift. Unknown families
// pass through unchanged.
func Calibrate(score int, conviction float64, signalType string, direction contracts.Direction, rates map[string]float64) Calibration {
	out := Calibration{Score: score, Conviction: conviction}
	if len(rates) == 0 {
		return out
	}

	key := fmt.Sprintf("%s:%s", signalType, direction)
	acc, ok := rates[key]
	if !ok {
		acc, ok = rates[signalType]
	}
	if !ok {
		return out
	}

	switch {
	case acc < 0.10:
		out.Score = int(float64(score) * 0.60)
		out.Conviction = max(0.40, conviction-0.25)
		out.Tag = "+acc_penalty_severe"
	case acc < 0.25:
		out.Score = int(float64(score) * 0.75)
		out.Conviction = conviction - 0.20
		out.Tag = "+acc_penalty_heavy"
	case acc < 0.40:
		out.Score = int(float64(score) * 0.85)
		out.Conviction = conviction - 0.15
		out.Tag = "+acc_penalty"
	case acc > 0.70:
		out.Score = int(float64(score) * 1.10)
		out.Tag = "+acc_bonus"
	}

	if direction == contracts.DirectionShort {
		if shortAcc, ok := rates[fmt.Sprintf("%s:%s", signalType, contracts.DirectionShort)]; ok && shortAcc < 0.15 {
			out.Score = int(float64(out.Score) * 0.70)
			out.Conviction -= 0.10
			out.Tag += "+short_penalty"
		}
	}

	if out.Conviction < 0 {
		out.Conviction = 0
	}
	return out
}
