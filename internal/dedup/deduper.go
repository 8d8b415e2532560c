package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/logger"
)

const (
	// Window of recent same-symbol signals compared for thesis overlap.
	similarityWindow = 2 * time.Hour
	similarityLimit  = 10
)

// Deduper suppresses duplicate signals. Same-type duplicates merge into
// the stored signal; cross-type duplicates are detected first by
// fingerprint, then by thesis similarity against recent signals for the
// same symbol.
type Deduper struct {
	signals      contracts.SignalRepository
	fingerprints contracts.FingerprintStore
	logger       *logger.Logger

	mergeWindow  time.Duration
	simThreshold float64
	fpTTL        time.Duration
}

// New creates a deduper.
func New(
	signals contracts.SignalRepository,
	fingerprints contracts.FingerprintStore,
	log *logger.Logger,
	mergeWindow time.Duration,
	simThreshold float64,
	fpTTL time.Duration,
) *Deduper {
	return &Deduper{
		signals:      signals,
		fingerprints: fingerprints,
		logger:       log,
		mergeWindow:  mergeWindow,
		simThreshold: simThreshold,
		fpTTL:        fpTTL,
	}
}

// SameTypeMatch returns the stored signal the candidate should merge
// into, or nil when the candidate is the first of its kind inside the
// merge window.
func (d *Deduper) SameTypeMatch(ctx context.Context, cand *contracts.SignalCandidate) (*contracts.ScoredSignal, error) {
	if d.signals == nil {
		return nil, nil
	}
	symbol := cand.PrimarySymbol()
	if symbol == "" {
		return nil, nil
	}
	since := time.Now().Add(-d.mergeWindow)
	existing, err := d.signals.FindSameType(ctx, symbol, cand.SignalType, since)
	if err != nil {
		return nil, fmt.Errorf("same-type lookup failed: %w", err)
	}
	return existing, nil
}

// maxMergedSources bounds how many sources a signal accumulates across
// repeated merges.
const maxMergedSources = 20

// Merge folds the candidate into an existing signal, keeping the higher
// score and conviction and the union of both source lists.
func (d *Deduper) Merge(ctx context.Context, existing *contracts.ScoredSignal, cand *contracts.SignalCandidate, candScore int) error {
	score := existing.Score
	if candScore > score {
		score = candScore
	}
	conviction := existing.Candidate.Conviction
	if cand.Conviction > conviction {
		conviction = cand.Conviction
	}
	sources := unionSources(existing.Candidate.Sources, cand.Sources)

	if err := d.signals.MergeInto(ctx, existing.ID, score, conviction, sources); err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	d.logger.WithFields(map[string]interface{}{
		"signal_id": existing.ID,
		"symbol":    cand.PrimarySymbol(),
		"type":      cand.SignalType,
		"score":     score,
		"sources":   len(sources),
	}).Info("Merged duplicate signal")
	return nil
}

// unionSources appends incoming sources the existing signal has not
// seen, keyed by post ID, capped at maxMergedSources.
func unionSources(existing, incoming []contracts.SourceRef) []contracts.SourceRef {
	seen := make(map[string]bool, len(existing))
	out := make([]contracts.SourceRef, 0, len(existing)+len(incoming))
	for _, lists := range [][]contracts.SourceRef{existing, incoming} {
		for _, s := range lists {
			if s.PostID != "" {
				if seen[s.PostID] {
					continue
				}
				seen[s.PostID] = true
			}
			out = append(out, s)
			if len(out) == maxMergedSources {
				return out
			}
		}
	}
	return out
}

// CrossTypeDuplicate reports whether the candidate duplicates a recent
// signal of a different type. The candidate's fingerprint is stored
// either way so the next occurrence is caught cheaply.
func (d *Deduper) CrossTypeDuplicate(ctx context.Context, cand *contracts.SignalCandidate) (bool, string, error) {
	fp := Fingerprint(cand)

	if d.fingerprints != nil {
		hit, err := d.fingerprints.Exists(ctx, fp)
		if err != nil {
			d.logger.WithError(err).Warn("Fingerprint lookup failed")
		} else if hit {
			d.storeFingerprint(ctx, fp)
			return true, "fingerprint", nil
		}
	}

	dup, err := d.similarDuplicate(ctx, cand)
	if err != nil {
		return false, "", err
	}

	d.storeFingerprint(ctx, fp)
	if dup {
		return true, "thesis_similarity", nil
	}
	return false, "", nil
}

func (d *Deduper) similarDuplicate(ctx context.Context, cand *contracts.SignalCandidate) (bool, error) {
	if d.signals == nil {
		return false, nil
	}
	symbol := cand.PrimarySymbol()
	if symbol == "" {
		return false, nil
	}
	since := time.Now().Add(-similarityWindow)
	recent, err := d.signals.RecentBySymbol(ctx, symbol, since, similarityLimit)
	if err != nil {
		return false, fmt.Errorf("recent signal lookup failed: %w", err)
	}
	for _, s := range recent {
		if s.Candidate.SignalType == cand.SignalType {
			continue
		}
		if ThesisSimilarity(s.Candidate.Thesis, cand.Thesis) >= d.simThreshold {
			return true, nil
		}
	}
	return false, nil
}

func (d *Deduper) storeFingerprint(ctx context.Context, fp string) {
	if d.fingerprints == nil {
		return
	}
	if err := d.fingerprints.Store(ctx, fp, d.fpTTL); err != nil {
		d.logger.WithError(err).Warn("Fingerprint store failed")
	}
}
