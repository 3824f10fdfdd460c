package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Memory is a Store backed by an in-process ristretto cache. It is suitable
// for single-instance deployments and for tests; multi-instance deployments
// should prefer the redis Store.
type Memory struct {
	cache *ristretto.Cache
}

func NewMemory() (*Memory, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     64 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{cache: c}, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return nil, false, nil
	}
	return raw, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	cost := int64(len(value))
	if cost == 0 {
		cost = 1
	}
	if ttl > 0 {
		m.cache.SetWithTTL(key, value, cost, ttl)
	} else {
		m.cache.Set(key, value, cost)
	}
	// Ristretto applies writes asynchronously; wait so a subsequent Get on
	// the same process observes the entry.
	m.cache.Wait()
	return nil
}

func (m *Memory) Close() {
	m.cache.Close()
}
