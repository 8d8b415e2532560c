package gate

import (
	"math"
	"sort"

	"github.com/siftlabs/sift/internal/extract"
)

// Edge types derived from the exclusivity mix of a signal's sources.
const (
	EdgeRetailOnly    = "retail_only"
	EdgeCrossPlatform = "cross_platform"
	EdgeCommodity     = "commodity"
	EdgeUnknown       = "unknown"
)

// ExclusivityEdge summarizes where a signal sits on the retail-first to
// mainstream spectrum.
type ExclusivityEdge struct {
	EdgeType       string   `json:"edge_type"`
	AvgExclusivity float64  `json:"avg_exclusivity"`
	HighSources    []string `json:"high_sources"`
	LowSources     []string `json:"low_sources"`

	// PreInstitutional is set when the signal appears only on
	// retail-first platforms, before any mainstream feed has it.
	PreInstitutional bool `json:"pre_institutional"`
}

// ComputeEdge classifies the platform mix behind a signal.
func ComputeEdge(platforms []string) ExclusivityEdge {
	if len(platforms) == 0 {
		return ExclusivityEdge{EdgeType: EdgeUnknown, AvgExclusivity: extract.DefaultExclusivity}
	}

	var sum float64
	highSet := make(map[string]bool)
	lowSet := make(map[string]bool)
	for _, p := range platforms {
		w := extract.PlatformWeight(p)
		sum += w
		if w >= extract.ExclusivityHigh {
			highSet[p] = true
		}
		if w <= extract.ExclusivityLow {
			lowSet[p] = true
		}
	}

	high := keys(highSet)
	low := keys(lowSet)

	var edgeType string
	switch {
	case len(high) > 0 && len(low) == 0:
		edgeType = EdgeRetailOnly
	case len(high) > 0 && len(low) > 0:
		edgeType = EdgeCrossPlatform
	case len(low) > 0:
		edgeType = EdgeCommodity
	default:
		edgeType = EdgeUnknown
	}

	avg := sum / float64(len(platforms))
	return ExclusivityEdge{
		EdgeType:         edgeType,
		AvgExclusivity:   math.Round(avg*1000) / 1000,
		HighSources:      high,
		LowSources:       low,
		PreInstitutional: len(high) > 0 && len(low) == 0,
	}
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
