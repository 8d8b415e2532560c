package corroborate

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/converge"
	"github.com/siftlabs/sift/internal/evidence"
	"github.com/siftlabs/sift/pkg/config"
	"github.com/siftlabs/sift/pkg/logger"
)

const (
	defaultBatchSize    = 50
	defaultSearchWindow = 72 * time.Hour
	defaultMaxSources   = 5

	nearMissWindow = 48 * time.Hour
	nearMissLimit  = 30

	searchLimit      = 40
	newPlatformBonus = 0.20
	minMatchScore    = 0.15
	maxThesisTerms   = 8
)

// TitleFetcher resolves a source URL to its page title.
type TitleFetcher interface {
	Title(ctx context.Context, url string) (string, error)
}

// Worker enriches thin signals after the fact: stalled candidate
// clusters queued by the promoter and persisted signals whose evidence
// base landed just under the hard-control bar. New corroborating posts
// are attached as sources and the evidence graph is rebuilt.
type Worker struct {
	queue   contracts.QueueStore
	signals contracts.SignalRepository
	posts   contracts.PostRepository
	metrics contracts.MetricsStore
	logger  *logger.Logger
	fetcher TitleFetcher

	batchSize       int
	searchWindow    time.Duration
	maxSources      int
	minIndependence float64
	nowFn           func() time.Time
}

// NewWorker creates a corroboration worker. Zero values in cfg fall
// back to the built-in limits.
func NewWorker(
	queue contracts.QueueStore,
	signals contracts.SignalRepository,
	posts contracts.PostRepository,
	metrics contracts.MetricsStore,
	log *logger.Logger,
	cfg config.CorroborationConfig,
	minIndependence float64,
) *Worker {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.SearchWindow <= 0 {
		cfg.SearchWindow = defaultSearchWindow
	}
	if cfg.MaxAddSources < 1 {
		cfg.MaxAddSources = defaultMaxSources
	}
	return &Worker{
		queue:           queue,
		signals:         signals,
		posts:           posts,
		metrics:         metrics,
		logger:          log,
		batchSize:       cfg.BatchSize,
		searchWindow:    cfg.SearchWindow,
		maxSources:      cfg.MaxAddSources,
		minIndependence: minIndependence,
		nowFn:           time.Now,
	}
}

// WithFetcher enables the page-title probe for newly attached sources.
func (w *Worker) WithFetcher(f TitleFetcher) *Worker {
	w.fetcher = f
	return w
}

// Stats summarizes one worker run.
type Stats struct {
	TasksSeen       int
	ClustersWatched int
	SignalsChecked  int
	SignalsEnriched int
	SourcesAdded    int
}

// Run drains stalled-cluster tasks and sweeps near-miss signals once.
func (w *Worker) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if err := w.drainTasks(ctx, stats); err != nil {
		w.logger.WithError(err).Warn("Corroboration task drain failed")
	}

	signals, err := w.signals.NearMiss(ctx, w.nowFn().Add(-nearMissWindow), nearMissLimit)
	if err != nil {
		return stats, err
	}

	for _, sig := range signals {
		stats.SignalsChecked++
		added, err := w.enrich(ctx, sig)
		if err != nil {
			w.logger.WithError(err).WithField("signal_id", sig.ID).Warn("Corroboration enrich failed")
			continue
		}
		if added > 0 {
			stats.SignalsEnriched++
			stats.SourcesAdded += added
		}
	}

	w.record(ctx, stats)
	return stats, nil
}

// drainTasks consumes stalled-candidate tasks. For each cluster the
// worker checks whether new platforms have picked the story up since
// the promoter queued it, which a later cycle turns into convergence.
func (w *Worker) drainTasks(ctx context.Context, stats *Stats) error {
	if w.queue == nil {
		return nil
	}

	payloads, err := w.queue.Pop(ctx, w.batchSize)
	if err != nil {
		return err
	}
	stats.TasksSeen = len(payloads)

	for _, raw := range payloads {
		var task converge.CorroborationTask
		if err := json.Unmarshal(raw, &task); err != nil {
			w.logger.WithError(err).Warn("Unreadable corroboration task dropped")
			continue
		}
		if task.Symbol == "" || task.Symbol == contracts.MarketSymbol {
			continue
		}

		posts, err := w.posts.SearchMentions(ctx, task.Symbol, []string{task.EventType}, w.searchWindow, searchLimit)
		if err != nil {
			w.logger.WithError(err).WithField("cluster", task.ClusterKey).Warn("Cluster corroboration search failed")
			continue
		}

		known := make(map[string]bool, len(task.Platforms))
		for _, p := range task.Platforms {
			known[p] = true
		}
		var fresh []string
		seen := make(map[string]bool)
		for _, p := range posts {
			if p.Platform != "" && !known[p.Platform] && !seen[p.Platform] {
				seen[p.Platform] = true
				fresh = append(fresh, p.Platform)
			}
		}

		if len(fresh) > 0 {
			stats.ClustersWatched++
			w.logger.WithFields(map[string]interface{}{
				"cluster":       task.ClusterKey,
				"new_platforms": strings.Join(fresh, ","),
			}).Info("Stalled cluster gained platform coverage")
		}
	}
	return nil
}

// enrich searches for corroborating posts the signal has not seen and
// rebuilds its evidence graph with them attached.
func (w *Worker) enrich(ctx context.Context, sig *contracts.ScoredSignal) (int, error) {
	symbol := sig.Candidate.PrimarySymbol()
	if symbol == "" || symbol == contracts.MarketSymbol {
		return 0, nil
	}

	terms := thesisTerms(sig.Candidate.Thesis)
	posts, err := w.posts.SearchMentions(ctx, symbol, terms, w.searchWindow, searchLimit)
	if err != nil {
		return 0, err
	}

	knownIDs := make(map[string]bool, len(sig.Candidate.Sources))
	knownPlatforms := make(map[string]bool)
	for _, s := range sig.Candidate.Sources {
		knownIDs[s.PostID] = true
		if s.Platform != "" {
			knownPlatforms[s.Platform] = true
		}
	}

	type scored struct {
		post  contracts.Post
		score float64
	}
	var matches []scored
	termSet := termSetOf(terms)
	for _, p := range posts {
		if knownIDs[p.ID] {
			continue
		}
		score := termOverlap(termSet, p.Content)
		if score > 0 && !knownPlatforms[p.Platform] {
			score += newPlatformBonus
		}
		if score < minMatchScore {
			continue
		}
		matches = append(matches, scored{post: p, score: score})
	}

	// Highest overlap first; the platform bonus already prefers
	// diversification at equal relevance.
	sort.Slice(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > w.maxSources {
		matches = matches[:w.maxSources]
	}
	if len(matches) == 0 {
		return 0, nil
	}

	sources := sig.Candidate.Sources
	addedPlatformSet := make(map[string]bool)
	for _, m := range matches {
		ref := contracts.SourceRef{
			PostID:    m.post.ID,
			Platform:  m.post.Platform,
			Author:    m.post.Author,
			URL:       m.post.URL,
			Relevance: m.score,
			Snippet:   m.post.Snippet(200),
		}
		if !m.post.PublishedAt.IsZero() {
			ref.PublishedAt = m.post.PublishedAt.UTC().Format(time.RFC3339)
		}
		if w.fetcher != nil && ref.URL != "" {
			if title, err := w.fetcher.Title(ctx, ref.URL); err != nil {
				w.logger.WithError(err).WithField("url", ref.URL).Debug("Source title probe failed")
			} else {
				ref.Headline = title
			}
		}
		sources = append(sources, ref)
		if m.post.Platform != "" && !knownPlatforms[m.post.Platform] && !addedPlatformSet[m.post.Platform] {
			addedPlatformSet[m.post.Platform] = true
		}
	}

	addedPlatforms := make([]string, 0, len(addedPlatformSet))
	for p := range addedPlatformSet {
		addedPlatforms = append(addedPlatforms, p)
	}
	sort.Strings(addedPlatforms)

	graph := evidence.BuildGraph(sources, nil)

	var tradability *contracts.Tradability
	if sig.Research != nil {
		tradability = sig.Research.Tradability
	}
	platforms := make(map[string]bool)
	for _, s := range sources {
		if s.Platform != "" {
			platforms[s.Platform] = true
		}
	}
	controls := evidence.BuildControls(evidence.ControlsInput{
		Tier:            sig.Tier,
		Graph:           graph,
		Tradability:     tradability,
		SourceCount:     len(sources),
		PlatformCount:   len(platforms),
		Novelty:         evidence.NoveltyScore(sig.Convergence),
		MinIndependence: w.minIndependence,
	})

	research := sig.Research
	if research == nil {
		research = &contracts.ResearchBundle{}
	}
	research.Evidence = graph
	research.Controls = controls
	research.Corroboration = &contracts.CorroborationNote{
		UpdatedAt:      w.nowFn().UTC().Format(time.RFC3339),
		AddedSources:   len(matches),
		AddedPlatforms: addedPlatforms,
	}

	if err := w.signals.UpdateResearch(ctx, sig.ID, research); err != nil {
		return 0, err
	}

	w.logger.WithFields(map[string]interface{}{
		"signal_id":     sig.ID,
		"symbol":        symbol,
		"added_sources": len(matches),
		"independence":  graph.IndependenceScore,
	}).Info("Signal corroborated")

	return len(matches), nil
}

func (w *Worker) record(ctx context.Context, stats *Stats) {
	if w.metrics == nil {
		return
	}
	_ = w.metrics.Incr(ctx, "corroboration_runs", 1)
	_ = w.metrics.Incr(ctx, "corroboration_signals_enriched", int64(stats.SignalsEnriched))
	_ = w.metrics.Incr(ctx, "corroboration_sources_added", int64(stats.SourcesAdded))
}

var termRe = regexp.MustCompile(`[a-z0-9]+`)

var termStopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "will": true, "are": true, "has": true,
	"have": true, "was": true, "been": true, "into": true, "over": true,
}

// thesisTerms returns the distinctive thesis words used to find
// corroborating posts, longest first.
func thesisTerms(thesis string) []string {
	words := termRe.FindAllString(strings.ToLower(thesis), -1)
	seen := make(map[string]bool)
	var terms []string
	for _, word := range words {
		if len(word) <= 3 || termStopwords[word] || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
	}
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	if len(terms) > maxThesisTerms {
		terms = terms[:maxThesisTerms]
	}
	return terms
}

func termSetOf(terms []string) map[string]bool {
	set := make(map[string]bool, len(terms))
	for _, t := range terms {
		set[t] = true
	}
	return set
}

// termOverlap is the share of thesis terms the post content mentions.
func termOverlap(terms map[string]bool, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	words := termSetOf(termRe.FindAllString(strings.ToLower(content), -1))
	hits := 0
	for t := range terms {
		if words[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
