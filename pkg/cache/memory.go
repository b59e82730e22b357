package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultCapacity bounds the number of entries NewMemory keeps. The least
// recently used entry is evicted first.
const DefaultCapacity = 10_000

// Memory is a process-local cache used when Redis is not configured.
type Memory struct {
	c *ttlcache.Cache[string, []byte]
}

func NewMemory() *Memory {
	return NewMemoryWithCapacity(DefaultCapacity)
}

func NewMemoryWithCapacity(capacity uint64) *Memory {
	return &Memory{c: ttlcache.New[string, []byte](
		ttlcache.WithCapacity[string, []byte](capacity),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)}
}

// Run sweeps expired entries until ctx is done.
func (m *Memory) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		m.c.Stop()
	}()
	m.c.Start()
}

func (m *Memory) Len() int { return m.c.Len() }

// DeleteExpired drops every expired entry now.
func (m *Memory) DeleteExpired() { m.c.DeleteExpired() }

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	item := m.c.Get(key)
	if item == nil || item.IsExpired() {
		return false, nil
	}
	if err := json.Unmarshal(item.Value(), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.c.Set(key, data, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}
