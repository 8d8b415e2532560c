package commands

import (
	"context"
	"fmt"

	"github.com/siftlabs/sift/internal/cluster"
	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/internal/converge"
	"github.com/siftlabs/sift/internal/corroborate"
	"github.com/siftlabs/sift/internal/dedup"
	"github.com/siftlabs/sift/internal/extract"
	"github.com/siftlabs/sift/internal/gate"
	"github.com/siftlabs/sift/internal/marketdata"
	"github.com/siftlabs/sift/internal/oracle"
	"github.com/siftlabs/sift/internal/pipeline"
	"github.com/siftlabs/sift/internal/scheduler"
	"github.com/siftlabs/sift/internal/state"
	"github.com/siftlabs/sift/internal/store"
	"github.com/siftlabs/sift/pkg/config"
	"github.com/siftlabs/sift/pkg/database"
	"github.com/siftlabs/sift/pkg/logger"
	"github.com/siftlabs/sift/pkg/redis"
)

// metricsStore is a metrics sink that can also be read back for the
// ops endpoint.
type metricsStore interface {
	contracts.MetricsStore
	All(ctx context.Context) (map[string]string, error)
}

// runtime holds the wired application graph shared by the daemon and
// the one-shot commands.
type runtime struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	cache *redis.Client

	metrics  metricsStore
	pipeline *pipeline.Pipeline
	worker   *corroborate.Worker
	sched    *scheduler.Scheduler
}

// buildRuntime loads configuration and wires every component.
// A Redis outage degrades to in-memory state instead of failing.
func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	cache, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, state falls back to in-memory")
		disabled := *cfg
		disabled.Redis.Enabled = false
		cache, _ = redis.New(&disabled)
	}

	// State stores. Redis keeps promotion state, novelty and the
	// corroboration queue across processes; local memory covers a
	// single-process deployment.
	var (
		clusterState contracts.ClusterStateStore
		novelty      contracts.NoveltyStore
		fingerprints contracts.FingerprintStore
		queue        contracts.QueueStore
		metrics      metricsStore
	)
	if cache.Enabled() {
		clusterState = state.NewClusterStateStore(cache)
		novelty = state.NewNoveltyStore(cache)
		fingerprints = state.NewFingerprintStore(cache)
		queue = state.NewQueueStore(cache)
		metrics = state.NewMetricsStore(cache)
	} else {
		clusterState = state.NewMemClusterStateStore()
		novelty = state.NewMemNoveltyStore()
		fingerprints = state.NewMemFingerprintStore()
		queue = state.NewMemQueueStore()
		metrics = state.NewMemMetricsStore()
	}

	// Repositories
	signals := store.NewSignalRepository(db.Pool)
	drops := store.NewDropRepository(db.Pool)
	posts := store.NewPostRepository(db.Pool)
	accuracy := store.NewAccuracyRepository(db.Pool)

	market := marketdata.NewGateway(cache, db.Pool, log)

	// Pipeline stages
	extractor := extract.New(log)
	clusterer := cluster.New(novelty, log)
	promoter := converge.NewPromoter(
		clusterState, metrics, queue, log,
		cfg.Pipeline.PromoteHigh, cfg.Pipeline.PromoteLow,
		cfg.Pipeline.CandidateDwell, cfg.Pipeline.ClusterStateTTL,
	)
	deduper := dedup.New(
		signals, fingerprints, log,
		cfg.Pipeline.MergeWindow, cfg.Pipeline.SimilarityThreshold, cfg.Pipeline.FingerprintTTL,
	)

	synth, err := oracle.NewAnthropic(&cfg.Oracle, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	if cache.Enabled() {
		synth = synth.WithSharedLimiter(redis.NewRateLimiter(cache, "sift"))
	}

	g := gate.New(deduper, market, accuracy, novelty, signals, drops, log, gate.Config{
		MinConviction:    cfg.Pipeline.MinConviction,
		MinConvergence:   cfg.Pipeline.MinConvergence,
		NoiseThreshold:   int(cfg.Pipeline.NoiseThreshold),
		QualityMin:       int(cfg.Pipeline.QualityMin),
		MinIndependence:  cfg.Pipeline.MinIndependence,
		NoveltyTTL:       cfg.Pipeline.NoveltyTTL,
		GuardrailEnabled: cfg.Pipeline.GuardrailEnabled,
		ConvergenceAlert: cfg.Pipeline.ConvergenceAlert,
	})

	p := pipeline.New(
		posts, extractor, clusterer, promoter, synth, g,
		signals, accuracy, metrics, log,
		pipeline.Config{
			PostWindow:      cfg.Pipeline.PostWindow,
			PostLimit:       cfg.Pipeline.PostLimit,
			EvidenceWorkers: cfg.Pipeline.EvidenceWorkers,
		},
	)

	worker := corroborate.NewWorker(
		queue, signals, posts, metrics, log,
		cfg.Corroboration, cfg.Pipeline.MinIndependence,
	)
	if cfg.Corroboration.FetchEnabled {
		worker = worker.WithFetcher(corroborate.NewHTTPFetcher(cfg, log, redis.NewRateLimiter(cache, "sift")))
	}

	return &runtime{
		cfg:      cfg,
		log:      log,
		db:       db,
		cache:    cache,
		metrics:  metrics,
		pipeline: p,
		worker:   worker,
		sched:    scheduler.New(log),
	}, nil
}

// Close releases the database and Redis connections.
func (r *runtime) Close() {
	if r.db != nil {
		r.db.Close()
	}
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			r.log.WithError(err).Warn("Redis close failed")
		}
	}
}
