package corroborate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/siftlabs/sift/pkg/config"
	"github.com/siftlabs/sift/pkg/httputil"
	"github.com/siftlabs/sift/pkg/logger"
	"github.com/siftlabs/sift/pkg/redis"
)

// HTTPFetcher probes source URLs for a page title, used to confirm that
// a verification hit still resolves to real content.
type HTTPFetcher struct {
	client *httputil.Client
}

// NewHTTPFetcher creates a rate-limited page fetcher.
func NewHTTPFetcher(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter) *HTTPFetcher {
	timeout := cfg.Corroboration.FetchTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := httputil.NewWithTimeout(cfg, log, timeout).WithRetry(2, time.Second)
	if limiter != nil {
		client = client.WithRateLimiter(limiter, redis.FetchRateLimit)
	}
	return &HTTPFetcher{client: client}
}

// Title fetches the page and returns its <title> text.
func (f *HTTPFetcher) Title(ctx context.Context, url string) (string, error) {
	resp, err := f.client.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "", fmt.Errorf("fetch %s: no title", url)
	}
	return title, nil
}
