package redis

import (
	"testing"

	"github.com/siftlabs/sift/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	limiter := NewRateLimiter(client, "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(nil, OracleRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != OracleRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", OracleRateLimit.Limit, remaining)
	}
}

func TestCache_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, _ := New(cfg)
	cache := NewCache(client, "test")

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(nil, "key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{
			name:     "PriceKey",
			fn:       func() string { return PriceKey("NVDA") },
			expected: "price:NVDA",
		},
		{
			name:     "NoveltyKey",
			fn:       func() string { return NoveltyKey("NVDA", "earnings") },
			expected: "pipeline:dedup:NVDA:earnings",
		},
		{
			name:     "ClusterStateKey",
			fn:       func() string { return ClusterStateKey("NVDA:earnings") },
			expected: "pipeline:cluster_state:NVDA:earnings",
		},
		{
			name:     "FingerprintKey",
			fn:       func() string { return FingerprintKey("ab12cd34ef56ab78") },
			expected: "pipeline:fingerprint:ab12cd34ef56ab78",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}
