package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetOrLoad_CollapsesConcurrentMisses(t *testing.T) {
	c := New()
	var loads int32

	var wg sync.WaitGroup
	results := make([]interface{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "ror:unknown-name", 60, func(ctx context.Context) (interface{}, error) {
				atomic.AddInt32(&loads, 1)
				time.Sleep(10 * time.Millisecond)
				return "Resolved Name", nil
			})
			assert.NoError(t, err)
			results[idx] = v
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&loads), int32(1))
	for _, r := range results {
		assert.Equal(t, "Resolved Name", r)
	}
}

func TestGetOrLoad_CachesAcrossTTL(t *testing.T) {
	c := New()
	var loads int32
	load := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return 42, nil
	}
	v1, _ := c.GetOrLoad(context.Background(), "k", 60, load)
	v2, _ := c.GetOrLoad(context.Background(), "k", 60, load)
	assert.Equal(t, v1, v2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
}
