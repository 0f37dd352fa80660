package resultcache

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/objones25/winnow/internal/prune"
)

const defaultMemorySize = 128

// Memory is a small in-process LRU in front of (or instead of) Redis,
// useful when pruning several parameter combinations of the same
// checkpoint in one run.
type Memory struct {
	cache *lru.Cache
}

// NewMemory creates an LRU result cache holding up to size entries.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = defaultMemorySize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Memory{cache: cache}, nil
}

// Set stores a result. The zero-cost counterpart of Redis.Set.
func (m *Memory) Set(fingerprint string, cfg prune.Config, res *prune.Result) error {
	if fingerprint == "" {
		return ErrEmptyKey
	}
	if res == nil {
		return ErrNilResult
	}
	m.cache.Add(Key(fingerprint, cfg), res)
	return nil
}

// Get retrieves a cached result; a miss returns nil.
func (m *Memory) Get(fingerprint string, cfg prune.Config) *prune.Result {
	v, ok := m.cache.Get(Key(fingerprint, cfg))
	if !ok {
		return nil
	}
	return v.(*prune.Result)
}

// Len reports how many results are currently cached.
func (m *Memory) Len() int {
	return m.cache.Len()
}
