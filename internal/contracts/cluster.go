package contracts

import (
	"fmt"
	"time"
)

// Cluster groups extracted posts by instrument symbol and event type.
// Posts with no resolvable symbol fall into the MARKET cluster of their
// event type.
type Cluster struct {
	Symbol    string          `json:"symbol"`
	EventType string          `json:"event_type"`
	Posts     []ExtractedPost `json:"posts"`
	Novel     bool            `json:"novel"`
}

// MarketSymbol is the pseudo-symbol for clusters without a resolved instrument.
const MarketSymbol = "MARKET"

// Key returns the canonical cluster key "SYMBOL:event_type".
func (c *Cluster) Key() string {
	return fmt.Sprintf("%s:%s", c.Symbol, c.EventType)
}

// Platforms returns the distinct platforms contributing to the cluster.
func (c *Cluster) Platforms() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.Posts {
		if p.Platform == "" || seen[p.Platform] {
			continue
		}
		seen[p.Platform] = true
		out = append(out, p.Platform)
	}
	return out
}

// Authors returns the distinct authors contributing to the cluster.
func (c *Cluster) Authors() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.Posts {
		if p.Author == "" || seen[p.Author] {
			continue
		}
		seen[p.Author] = true
		out = append(out, p.Author)
	}
	return out
}

// AvgWeight returns the mean exclusivity weight across the cluster posts.
func (c *Cluster) AvgWeight() float64 {
	if len(c.Posts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range c.Posts {
		sum += p.Weight
	}
	return sum / float64(len(c.Posts))
}

// ClusterScore pairs a cluster with its convergence score.
type ClusterScore struct {
	Cluster *Cluster `json:"cluster"`
	Score   float64  `json:"score"`
}

// PromotionState is the hysteresis state of a cluster.
type PromotionState string

const (
	StateNew       PromotionState = "NEW"
	StateCandidate PromotionState = "CANDIDATE"
	StateActive    PromotionState = "ACTIVE"
)

// ClusterState is the persisted promotion state for a cluster key.
type ClusterState struct {
	State        PromotionState `json:"state"`
	Score        float64        `json:"score"`
	FirstSeen    time.Time      `json:"first_seen"`
	LastSeen     time.Time      `json:"last_seen"`
	DwellMinutes float64        `json:"dwell_minutes"`
}
