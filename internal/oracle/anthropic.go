package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/config"
	"github.com/siftlabs/sift/pkg/logger"
	"github.com/siftlabs/sift/pkg/redis"
)

// Anthropic is the synthesis oracle backed by the Claude Messages API.
// Requests are paced client-side so bursty cycles cannot exhaust the
// account rate limit.
type Anthropic struct {
	client      anthropic.Client
	logger      *logger.Logger
	limiter     *rate.Limiter
	shared      *redis.RateLimiter
	model       string
	maxTokens   int64
	timeout     time.Duration
	maxClusters int
}

// NewAnthropic creates the oracle from configuration.
func NewAnthropic(cfg *config.OracleConfig, log *logger.Logger) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle: ANTHROPIC_API_KEY is required")
	}

	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}

	return &Anthropic{
		client:      anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		logger:      log,
		limiter:     rate.NewLimiter(rate.Limit(perMinute/60), 1),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		timeout:     cfg.Timeout,
		maxClusters: cfg.MaxClusters,
	}, nil
}

// WithSharedLimiter adds a Redis-backed limiter so multiple processes
// share one API budget. The local limiter still applies.
func (a *Anthropic) WithSharedLimiter(limiter *redis.RateLimiter) *Anthropic {
	a.shared = limiter
	return a
}

// Synthesize sends the promoted clusters to the model and parses the
// returned candidate array.
func (a *Anthropic) Synthesize(ctx context.Context, req *contracts.OracleRequest) ([]contracts.SignalCandidate, error) {
	if len(req.Clusters) == 0 {
		return nil, nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("oracle: rate limit wait: %w", err)
	}
	if a.shared != nil {
		if err := a.shared.Wait(ctx, redis.OracleRateLimit); err != nil {
			return nil, fmt.Errorf("oracle: shared rate limit wait: %w", err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	prompt := BuildPrompt(req, a.maxClusters)
	start := time.Now()

	resp, err := a.client.Messages.New(callCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: messages call: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	candidates, err := ParseCandidates(text.String())
	if err != nil {
		a.logger.WithError(err).WithField("response_length", text.Len()).Warn("Oracle response had no parsable candidates")
		return nil, nil
	}

	a.logger.WithFields(map[string]interface{}{
		"clusters":   len(req.Clusters),
		"candidates": len(candidates),
		"duration":   time.Since(start).String(),
	}).Info("Oracle synthesis completed")

	return candidates, nil
}
