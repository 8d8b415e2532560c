package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/siftlabs/sift/internal/contracts"
	"github.com/siftlabs/sift/pkg/redis"
)

const (
	metricsKey = "pipeline:metrics"
	queueKey   = "pipeline:corroboration:queue"
)

// RedisClusterStateStore keeps promotion state in Redis hashes.
type RedisClusterStateStore struct {
	client *redis.Client
}

// NewClusterStateStore creates a Redis-backed cluster state store.
func NewClusterStateStore(client *redis.Client) *RedisClusterStateStore {
	return &RedisClusterStateStore{client: client}
}

// Enabled reports whether Redis is reachable.
func (s *RedisClusterStateStore) Enabled() bool {
	return s.client.Enabled()
}

// Get returns the stored state for a cluster key, or nil.
func (s *RedisClusterStateStore) Get(ctx context.Context, key string) (*contracts.ClusterState, error) {
	if !s.client.Enabled() {
		return nil, nil
	}
	data, err := s.client.Redis().Get(ctx, redis.ClusterStateKey(key)).Bytes()
	if err != nil {
		// Missing key is not an error.
		return nil, nil
	}
	var st contracts.ClusterState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("cluster state unmarshal failed: %w", err)
	}
	return &st, nil
}

// Put stores the state with a TTL.
func (s *RedisClusterStateStore) Put(ctx context.Context, key string, st *contracts.ClusterState, ttl time.Duration) error {
	if !s.client.Enabled() {
		return nil
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("cluster state marshal failed: %w", err)
	}
	return s.client.Redis().Set(ctx, redis.ClusterStateKey(key), data, ttl).Err()
}

// Delete clears the state for a cluster key.
func (s *RedisClusterStateStore) Delete(ctx context.Context, key string) error {
	if !s.client.Enabled() {
		return nil
	}
	return s.client.Redis().Del(ctx, redis.ClusterStateKey(key)).Err()
}

// RedisNoveltyStore tracks recently emitted symbol/event pairs.
type RedisNoveltyStore struct {
	client *redis.Client
}

// NewNoveltyStore creates a Redis-backed novelty store.
func NewNoveltyStore(client *redis.Client) *RedisNoveltyStore {
	return &RedisNoveltyStore{client: client}
}

// Seen reports whether the pair was marked within its TTL.
func (s *RedisNoveltyStore) Seen(ctx context.Context, symbol, eventType string) (bool, error) {
	if !s.client.Enabled() {
		return false, nil
	}
	n, err := s.client.Redis().Exists(ctx, redis.NoveltyKey(symbol, eventType)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Mark records the pair for the TTL window.
func (s *RedisNoveltyStore) Mark(ctx context.Context, symbol, eventType string, ttl time.Duration) error {
	if !s.client.Enabled() {
		return nil
	}
	return s.client.Redis().Set(ctx, redis.NoveltyKey(symbol, eventType), "1", ttl).Err()
}

// RedisFingerprintStore tracks thesis fingerprints for cross-type dedup.
type RedisFingerprintStore struct {
	client *redis.Client
}

// NewFingerprintStore creates a Redis-backed fingerprint store.
func NewFingerprintStore(client *redis.Client) *RedisFingerprintStore {
	return &RedisFingerprintStore{client: client}
}

// Exists reports whether the fingerprint was stored within its TTL.
func (s *RedisFingerprintStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	if !s.client.Enabled() {
		return false, nil
	}
	n, err := s.client.Redis().Exists(ctx, redis.FingerprintKey(fingerprint)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Store records the fingerprint for the TTL window.
func (s *RedisFingerprintStore) Store(ctx context.Context, fingerprint string, ttl time.Duration) error {
	if !s.client.Enabled() {
		return nil
	}
	return s.client.Redis().Set(ctx, redis.FingerprintKey(fingerprint), "1", ttl).Err()
}

// RedisMetricsStore accumulates pipeline counters in a single hash.
type RedisMetricsStore struct {
	client *redis.Client
}

// NewMetricsStore creates a Redis-backed metrics store.
func NewMetricsStore(client *redis.Client) *RedisMetricsStore {
	return &RedisMetricsStore{client: client}
}

// Incr increments a counter field.
func (s *RedisMetricsStore) Incr(ctx context.Context, field string, delta int64) error {
	if !s.client.Enabled() {
		return nil
	}
	return s.client.Redis().HIncrBy(ctx, metricsKey, field, delta).Err()
}

// Snapshot overwrites snapshot fields in the metrics hash.
func (s *RedisMetricsStore) Snapshot(ctx context.Context, fields map[string]interface{}) error {
	if !s.client.Enabled() || len(fields) == 0 {
		return nil
	}
	flat := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		flat = append(flat, k, fmt.Sprintf("%v", v))
	}
	return s.client.Redis().HSet(ctx, metricsKey, flat...).Err()
}

// All returns the current metrics hash for the status endpoint.
func (s *RedisMetricsStore) All(ctx context.Context) (map[string]string, error) {
	if !s.client.Enabled() {
		return map[string]string{}, nil
	}
	return s.client.Redis().HGetAll(ctx, metricsKey).Result()
}

// RedisQueueStore is a capped list used for corroboration handoff.
type RedisQueueStore struct {
	client *redis.Client
}

// NewQueueStore creates a Redis-backed queue store.
func NewQueueStore(client *redis.Client) *RedisQueueStore {
	return &RedisQueueStore{client: client}
}

// Push prepends a payload and trims the list to maxLen entries.
func (s *RedisQueueStore) Push(ctx context.Context, payload []byte, maxLen int64) error {
	if !s.client.Enabled() {
		return nil
	}
	pipe := s.client.Redis().TxPipeline()
	pipe.LPush(ctx, queueKey, payload)
	if maxLen > 0 {
		pipe.LTrim(ctx, queueKey, 0, maxLen-1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Pop removes up to max payloads from the tail of the queue.
func (s *RedisQueueStore) Pop(ctx context.Context, max int) ([][]byte, error) {
	if !s.client.Enabled() {
		return nil, nil
	}
	var out [][]byte
	for i := 0; i < max; i++ {
		data, err := s.client.Redis().RPop(ctx, queueKey).Bytes()
		if err != nil {
			// Empty queue ends the drain.
			break
		}
		out = append(out, data)
	}
	return out, nil
}
