package cluster

import (
	"context"
	"sort"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/logger"
)

// Clusterer groups extracted posts by instrument symbol and event type.
type Clusterer struct {
	novelty contracts.NoveltyStore
	logger  *logger.Logger
}

// New creates a clusterer. The novelty store may be nil, in which case
// every cluster is treated as novel.
func New(novelty contracts.NoveltyStore, log *logger.Logger) *Clusterer {
	return &Clusterer{novelty: novelty, logger: log}
}

// Build groups posts into clusters. Each (symbol, event type) pair a
// post carries contributes the post to that cluster; posts with no
// symbol land in the MARKET cluster of each of their event types.
func (c *Clusterer) Build(ctx context.Context, posts []contracts.ExtractedPost) ([]*contracts.Cluster, error) {
	byKey := make(map[string]*contracts.Cluster)

	add := func(symbol, eventType string, post contracts.ExtractedPost) {
		cl := &contracts.Cluster{Symbol: symbol, EventType: eventType}
		key := cl.Key()
		if existing, ok := byKey[key]; ok {
			cl = existing
		} else {
			byKey[key] = cl
		}
		cl.Posts = append(cl.Posts, post)
	}

	for _, p := range posts {
		if len(p.Symbols) == 0 {
			for _, ev := range p.EventTypes {
				add(contracts.MarketSymbol, ev, p)
			}
			continue
		}
		for _, sym := range p.Symbols {
			for _, ev := range p.EventTypes {
				add(sym, ev, p)
			}
		}
	}

	out := make([]*contracts.Cluster, 0, len(byKey))
	for _, cl := range byKey {
		novel, err := c.isNovel(ctx, cl)
		if err != nil {
			c.logger.WithError(err).WithField("cluster", cl.Key()).Warn("Novelty check failed, assuming novel")
			novel = true
		}
		cl.Novel = novel
		out = append(out, cl)
	}

	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Posts) != len(out[j].Posts) {
			return len(out[i].Posts) > len(out[j].Posts)
		}
		return out[i].Key() < out[j].Key()
	})

	c.logger.WithFields(map[string]interface{}{
		"posts":    len(posts),
		"clusters": len(out),
	}).Debug("Clustering complete")

	return out, nil
}

func (c *Clusterer) isNovel(ctx context.Context, cl *contracts.Cluster) (bool, error) {
	if c.novelty == nil {
		return true, nil
	}
	seen, err := c.novelty.Seen(ctx, cl.Symbol, cl.EventType)
	if err != nil {
		return true, err
	}
	return !seen, nil
}
