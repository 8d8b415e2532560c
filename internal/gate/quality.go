package gate

import (
	"math"
	"time"

	"github.com/siftlabs/sift/internal/contracts"
)

// Quality blends intelligence, conviction, platform breadth and cluster
// convergence into a single persistence gate.
func Quality(intelligence int, conviction float64, platformCount int, convergence float64) int {
	q := 0.40*float64(intelligence) +
		0.20*conviction*100 +
		0.20*math.Min(float64(platformCount)*25, 100) +
		0.20*convergence*100
	return clampScore(int(q))
}

// Freshness labels by average source age.
const (
	FreshnessBreaking = "BREAKING"
	FreshnessFresh    = "FRESH"
	FreshnessRecent   = "RECENT"
	FreshnessDated    = "DATED"
)

// Freshness labels a signal by the mean age of its source posts.
func Freshness(sources []contracts.SourceRef, now time.Time) string {
	var ages []float64
	for _, s := range sources {
		if s.PublishedAt == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, s.PublishedAt)
		if err != nil {
			continue
		}
		ages = append(ages, now.Sub(ts).Minutes())
	}
	if len(ages) == 0 {
		return FreshnessRecent
	}
	var sum float64
	for _, a := range ages {
		sum += a
	}
	avg := sum / float64(len(ages))
	switch {
	case avg < 30:
		return FreshnessBreaking
	case avg < 120:
		return FreshnessFresh
	case avg < 1440:
		return FreshnessRecent
	default:
		return FreshnessDated
	}
}
