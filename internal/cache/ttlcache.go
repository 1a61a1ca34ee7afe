// Package cache implements the process-wide, read-mostly TTL caches
// spec.md §5 requires for ROR lookups and Metax fields-of-science. The
// in-memory TTLCache backs both (their clients take *TTLCache). A
// github.com/redis/go-redis/v9 backed cache with the same GetOrLoad
// method (RedisBackedCache) serves only the project-membership cache,
// matching the teacher's own miniredis/go-redis usage in db/dragonflydb.go.
package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   interface{}
	expires time.Time
}

// TTLCache is a simple in-memory TTL cache with single-flight collapsing
// of concurrent misses for the same key, satisfying spec.md's invariant
// "two concurrent lookups for the same unknown name issue at most one
// upstream request after the first resolves" (§8 property 9).
type TTLCache struct {
	mu      sync.Mutex
	entries map[string]entry
	inFlight map[string]*sync.WaitGroup
}

func New() *TTLCache {
	return &TTLCache{
		entries:  make(map[string]entry),
		inFlight: make(map[string]*sync.WaitGroup),
	}
}

func (c *TTLCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		return nil, false
	}
	return e.value, true
}

func (c *TTLCache) Set(key string, value interface{}, ttlSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expires: time.Now().Add(time.Duration(ttlSeconds) * time.Second)}
}

// GetOrLoad returns the cached value for key, or calls load at most once
// across all concurrent callers racing on the same miss, caching the
// result for ttlSeconds.
func (c *TTLCache) GetOrLoad(ctx context.Context, key string, ttlSeconds int, load func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	c.mu.Lock()
	if wg, loading := c.inFlight[key]; loading {
		c.mu.Unlock()
		wg.Wait()
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		return load(ctx)
	}
	wg := &sync.WaitGroup{}
	wg.Add(1)
	c.inFlight[key] = wg
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, key)
		c.mu.Unlock()
		wg.Done()
	}()

	value, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(key, value, ttlSeconds)
	return value, nil
}
