package state

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/siftlabs/sift/internal/contracts"
)

// In-memory store implementations. Used when Redis is disabled and in
// tests; TTLs are enforced lazily on read.

type memEntry struct {
	state     *contracts.ClusterState
	expiresAt time.Time
}

// MemClusterStateStore is an in-process ClusterStateStore.
type MemClusterStateStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

// NewMemClusterStateStore creates an empty in-memory state store.
func NewMemClusterStateStore() *MemClusterStateStore {
	return &MemClusterStateStore{entries: make(map[string]memEntry)}
}

func (s *MemClusterStateStore) Enabled() bool { return true }

func (s *MemClusterStateStore) Get(ctx context.Context, key string) (*contracts.ClusterState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.entries, key)
		return nil, nil
	}
	cp := *e.state
	return &cp, nil
}

func (s *MemClusterStateStore) Put(ctx context.Context, key string, st *contracts.ClusterState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.entries[key] = memEntry{state: &cp, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemClusterStateStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// MemNoveltyStore is an in-process NoveltyStore.
type MemNoveltyStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemNoveltyStore creates an empty in-memory novelty store.
func NewMemNoveltyStore() *MemNoveltyStore {
	return &MemNoveltyStore{entries: make(map[string]time.Time)}
}

func (s *MemNoveltyStore) Seen(ctx context.Context, symbol, eventType string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := symbol + ":" + eventType
	exp, ok := s.entries[key]
	if !ok || time.Now().After(exp) {
		delete(s.entries, key)
		return false, nil
	}
	return true, nil
}

func (s *MemNoveltyStore) Mark(ctx context.Context, symbol, eventType string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[symbol+":"+eventType] = time.Now().Add(ttl)
	return nil
}

// MemFingerprintStore is an in-process FingerprintStore.
type MemFingerprintStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemFingerprintStore creates an empty in-memory fingerprint store.
func NewMemFingerprintStore() *MemFingerprintStore {
	return &MemFingerprintStore{entries: make(map[string]time.Time)}
}

func (s *MemFingerprintStore) Exists(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.entries[fingerprint]
	if !ok || time.Now().After(exp) {
		delete(s.entries, fingerprint)
		return false, nil
	}
	return true, nil
}

func (s *MemFingerprintStore) Store(ctx context.Context, fingerprint string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[fingerprint] = time.Now().Add(ttl)
	return nil
}

// MemMetricsStore is an in-process MetricsStore.
type MemMetricsStore struct {
	mu       sync.Mutex
	counters map[string]int64
	snapshot map[string]interface{}
}

// NewMemMetricsStore creates an empty in-memory metrics store.
func NewMemMetricsStore() *MemMetricsStore {
	return &MemMetricsStore{
		counters: make(map[string]int64),
		snapshot: make(map[string]interface{}),
	}
}

func (s *MemMetricsStore) Incr(ctx context.Context, field string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[field] += delta
	return nil
}

func (s *MemMetricsStore) Snapshot(ctx context.Context, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range fields {
		s.snapshot[k] = v
	}
	return nil
}

// Counter returns the current value of a counter field.
func (s *MemMetricsStore) Counter(field string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[field]
}

// SnapshotValue returns the last snapshotted value for a field.
func (s *MemMetricsStore) SnapshotValue(field string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.snapshot[field]
	return v, ok
}

// All returns every counter and snapshot field as strings.
func (s *MemMetricsStore) All(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.counters)+len(s.snapshot))
	for k, v := range s.counters {
		out[k] = strconv.FormatInt(v, 10)
	}
	for k, v := range s.snapshot {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out, nil
}

// MemQueueStore is an in-process QueueStore.
type MemQueueStore struct {
	mu    sync.Mutex
	items [][]byte
}

// NewMemQueueStore creates an empty in-memory queue.
func NewMemQueueStore() *MemQueueStore {
	return &MemQueueStore{}
}

func (s *MemQueueStore) Push(ctx context.Context, payload []byte, maxLen int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([][]byte{payload}, s.items...)
	if maxLen > 0 && int64(len(s.items)) > maxLen {
		s.items = s.items[:maxLen]
	}
	return nil
}

func (s *MemQueueStore) Pop(ctx context.Context, max int) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [][]byte
	for len(s.items) > 0 && len(out) < max {
		last := len(s.items) - 1
		out = append(out, s.items[last])
		s.items = s.items[:last]
	}
	return out, nil
}

// Len returns the number of queued payloads.
func (s *MemQueueStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
