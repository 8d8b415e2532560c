package gate

import (
	"time"

	"github.com/siftlabs/sift/internal/contracts"
)

const (
	velocityWindow     = 30 * time.Minute
	velocitySpikeRatio = 3.0
)

// Velocity summarizes mention acceleration for a candidate's symbols:
// posts in the last 30 minutes against the 30 minutes before that.
type Velocity struct {
	Recent        int
	Prior         int
	Ratio         float64
	Spike         bool
	CrossPlatform bool
}

// MatchVelocity measures mention velocity from the cluster posts backing
// the candidate's symbols. Returns nil when the posts show no meaningful
// surge: a 3x ratio, three recent mentions on two platforms, or a novel
// burst on three platforms all qualify.
func MatchVelocity(cand *contracts.SignalCandidate, clusters []*contracts.ClusterScore, now time.Time) *Velocity {
	symbols := make(map[string]bool)
	for _, s := range cand.Symbols() {
		symbols[s] = true
	}

	recentCut := now.Add(-velocityWindow)
	priorCut := now.Add(-2 * velocityWindow)

	seen := make(map[string]bool)
	platforms := make(map[string]bool)
	var recent, prior int

	for _, cs := range clusters {
		if !symbols[cs.Cluster.Symbol] {
			continue
		}
		for _, p := range cs.Cluster.Posts {
			if p.ID != "" {
				if seen[p.ID] {
					continue
				}
				seen[p.ID] = true
			}
			ts := p.PublishedAt
			if ts.IsZero() {
				ts = p.ScrapedAt
			}
			if ts.IsZero() || ts.After(now) {
				continue
			}
			switch {
			case !ts.Before(recentCut):
				recent++
				if p.Platform != "" {
					platforms[p.Platform] = true
				}
			case !ts.Before(priorCut):
				prior++
			}
		}
	}

	if recent < 2 {
		return nil
	}

	ratio := float64(recent)
	if prior > 0 {
		ratio = float64(recent) / float64(prior)
	}
	spike := ratio >= velocitySpikeRatio
	novelSurge := prior == 0 && recent >= 2 && len(platforms) >= 3

	if !spike && !(recent >= 3 && len(platforms) >= 2) && !novelSurge {
		return nil
	}

	return &Velocity{
		Recent:        recent,
		Prior:         prior,
		Ratio:         ratio,
		Spike:         spike,
		CrossPlatform: len(platforms) >= 3,
	}
}
