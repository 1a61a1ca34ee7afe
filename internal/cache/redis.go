package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackedCache mirrors TTLCache's Get/Set contract over
// github.com/redis/go-redis/v9 for the project-membership cache
// (internal/integrations/projectservice), which needs to survive process
// restarts across replicas.
type RedisBackedCache struct {
	client *redis.Client
	prefix string

	mu       sync.Mutex
	inFlight map[string]*sync.WaitGroup
}

func NewRedisBacked(client *redis.Client, prefix string) *RedisBackedCache {
	return &RedisBackedCache{client: client, prefix: prefix, inFlight: make(map[string]*sync.WaitGroup)}
}

func (c *RedisBackedCache) Get(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisBackedCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, raw, ttl).Err()
}

// GetOrLoad mirrors TTLCache.GetOrLoad's single-flight-per-process
// contract, storing the resolved value in Redis so it survives restarts
// and is shared across replicas; concurrent callers within one process
// still collapse to a single load.
func (c *RedisBackedCache) GetOrLoad(ctx context.Context, key string, ttlSeconds int, load func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	var out []string
	if ok, err := c.Get(ctx, key, &out); err == nil && ok {
		return out, nil
	}

	c.mu.Lock()
	if wg, loading := c.inFlight[key]; loading {
		c.mu.Unlock()
		wg.Wait()
		if ok, err := c.Get(ctx, key, &out); err == nil && ok {
			return out, nil
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
	if err := c.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second); err != nil {
		return nil, err
	}
	return value, nil
}
