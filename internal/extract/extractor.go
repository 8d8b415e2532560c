package extract

import (
	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/logger"
)

// Extractor annotates raw posts with symbols, event types and platform
// exclusivity weights. It is fully deterministic and makes no network
// or model calls.
type Extractor struct {
	logger *logger.Logger
}

// New creates an extractor.
func New(log *logger.Logger) *Extractor {
	return &Extractor{logger: log}
}

// Extract annotates each post. Posts are never dropped here; posts with
// no resolvable symbol are kept for MARKET-level clustering.
func (e *Extractor) Extract(posts []contracts.Post) []contracts.ExtractedPost {
	out := make([]contracts.ExtractedPost, 0, len(posts))
	symbolCount := 0

	for _, p := range posts {
		ep := contracts.ExtractedPost{
			Post:       p,
			Symbols:    ExtractSymbols(p.Content),
			EventTypes: ClassifyEvents(p.Content),
			Weight:     PlatformWeight(p.Platform),
		}
		symbolCount += len(ep.Symbols)
		out = append(out, ep)
	}

	e.logger.WithFields(map[string]interface{}{
		"posts":   len(posts),
		"symbols": symbolCount,
	}).Debug("Extraction complete")

	return out
}
