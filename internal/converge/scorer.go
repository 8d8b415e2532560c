package converge

import (
	"math"
	"sort"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/extract"
)

// Convergence component weights.
const (
	platformWeight   = 0.40
	volumeWeight     = 0.25
	authorWeight     = 0.15
	exclusivityCoeff = 0.20
	spreadBonus      = 0.15

	platformSaturation = 4.0
	volumeSaturation   = 8.0
	authorSaturation   = 4.0
)

// Score computes the convergence score of a cluster. The score rewards
// breadth across platforms and authors, post volume, high exclusivity
// sources, and the spread from retail-first to mainstream platforms.
func Score(c *contracts.Cluster) float64 {
	if len(c.Posts) == 0 {
		return 0
	}

	platforms := float64(len(c.Platforms()))
	posts := float64(len(c.Posts))
	authors := float64(len(c.Authors()))

	score := math.Min(1, platforms/platformSaturation) * platformWeight
	score += math.Min(1, posts/volumeSaturation) * volumeWeight
	score += math.Min(1, authors/authorSaturation) * authorWeight
	score += c.AvgWeight() * exclusivityCoeff

	var hasHigh, hasLow bool
	for _, p := range c.Posts {
		if p.Weight >= extract.ExclusivityHigh {
			hasHigh = true
		}
		if p.Weight <= extract.ExclusivityLow {
			hasLow = true
		}
	}
	if hasHigh && hasLow {
		score += spreadBonus
	}

	if score > 1.0 {
		score = 1.0
	}
	return math.Round(score*1000) / 1000
}

// ScoreAll scores every cluster and returns them sorted by score
// descending, ties broken by cluster key.
func ScoreAll(clusters []*contracts.Cluster) []*contracts.ClusterScore {
	out := make([]*contracts.ClusterScore, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, &contracts.ClusterScore{Cluster: c, Score: Score(c)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Cluster.Key() < out[j].Cluster.Key()
	})
	return out
}
