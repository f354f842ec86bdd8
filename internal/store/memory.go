package store

import (
	"context"
	"hash/fnv"
	"sync"

	"quote-tracker/internal/models"
)

// DefaultShards is the shard count used by New for the memory backend.
const DefaultShards = 16

type shard struct {
	mu    sync.RWMutex
	items map[string]models.Observation
}

// MemoryStore implements ValuationStore with a sharded in-process map.
// Keys hash to a shard; commits to keys on different shards never contend.
type MemoryStore struct {
	shards []*shard
}

// NewMemoryStore creates a memory store with n shards (minimum 1).
func NewMemoryStore(n int) *MemoryStore {
	if n < 1 {
		n = 1
	}
	s := &MemoryStore{shards: make([]*shard, n)}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[string]models.Observation)}
	}
	return s
}

func (s *MemoryStore) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Previous returns the last committed observation for key.
func (s *MemoryStore) Previous(_ context.Context, key string) (models.Observation, bool, error) {
	sh := s.shardFor(key)
	sh.mu.RLock()
	obs, ok := sh.items[key]
	sh.mu.RUnlock()
	return obs, ok, nil
}

// Commit replaces the observation stored for key.
func (s *MemoryStore) Commit(_ context.Context, key string, obs models.Observation) error {
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.items[key] = obs
	sh.mu.Unlock()
	return nil
}

// Len returns the number of distinct keys held.
func (s *MemoryStore) Len(_ context.Context) (int, error) {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.items)
		sh.mu.RUnlock()
	}
	return n, nil
}

// Snapshot returns a copy of every stored observation.
func (s *MemoryStore) Snapshot(_ context.Context) (map[string]models.Observation, error) {
	out := make(map[string]models.Observation)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for k, v := range sh.items {
			out[k] = v
		}
		sh.mu.RUnlock()
	}
	return out, nil
}

// Close is a no-op; entries live for the process lifetime.
func (s *MemoryStore) Close() error {
	return nil
}
