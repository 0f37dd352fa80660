package resultcache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objones25/winnow/internal/prune"
	"github.com/objones25/winnow/internal/resultcache"
)

func newTestRedis(t *testing.T) (*resultcache.Redis, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	cache, err := resultcache.NewRedis(resultcache.Config{
		Host:       s.Host(),
		Port:       s.Port(),
		DefaultTTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	return cache, s
}

func TestRedisSetGet(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()
	cfg := prune.Config{TopK: 16, DropNumber: 8}

	res := &prune.Result{
		Kept:      []int{0, 2, 5},
		DropOrder: []int{1, 4},
		Scores:    []int{3, -1, 2, 0, -1, 1},
	}

	// Miss before set.
	got, err := cache.Get(ctx, "fp-abc", cfg)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, "fp-abc", cfg, res))

	got, err = cache.Get(ctx, "fp-abc", cfg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.Kept, got.Kept)
	assert.Equal(t, res.DropOrder, got.DropOrder)
	assert.Equal(t, res.Scores, got.Scores)
}

func TestRedisKeyIncludesParameters(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()

	res := &prune.Result{Kept: []int{0}, DropOrder: []int{1}, Scores: []int{1, -1}}
	require.NoError(t, cache.Set(ctx, "fp", prune.Config{TopK: 4, DropNumber: 1}, res))

	// Same matrix, different parameters: must miss.
	got, err := cache.Get(ctx, "fp", prune.Config{TopK: 8, DropNumber: 1})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCompressedPayload(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()
	cfg := prune.Config{TopK: 128, DropNumber: 512}

	// Large enough to cross the compression threshold.
	res := &prune.Result{
		Kept:      make([]int, 0, 2048),
		DropOrder: make([]int, 0, 512),
		Scores:    make([]int, 4096),
	}
	for i := 0; i < 2048; i++ {
		res.Kept = append(res.Kept, i)
	}
	for i := 0; i < 512; i++ {
		res.DropOrder = append(res.DropOrder, 2048+i)
	}
	for i := range res.Scores {
		res.Scores[i] = i % 7
	}

	require.NoError(t, cache.Set(ctx, "fp-big", cfg, res))

	got, err := cache.Get(ctx, "fp-big", cfg)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.Kept, got.Kept)
	assert.Equal(t, res.Scores, got.Scores)
}

func TestRedisDelete(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()
	cfg := prune.Config{TopK: 2, DropNumber: 1}

	res := &prune.Result{Kept: []int{0}, DropOrder: []int{1}, Scores: []int{1, -1}}
	require.NoError(t, cache.Set(ctx, "fp", cfg, res))
	require.NoError(t, cache.Delete(ctx, "fp", cfg))

	got, err := cache.Get(ctx, "fp", cfg)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisTTLExpiry(t *testing.T) {
	cache, s := newTestRedis(t)
	ctx := context.Background()
	cfg := prune.Config{TopK: 2, DropNumber: 1}

	res := &prune.Result{Kept: []int{0}, DropOrder: []int{1}, Scores: []int{1, -1}}
	require.NoError(t, cache.Set(ctx, "fp", cfg, res))

	s.FastForward(2 * time.Hour)

	got, err := cache.Get(ctx, "fp", cfg)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisValidation(t *testing.T) {
	cache, _ := newTestRedis(t)
	ctx := context.Background()
	cfg := prune.Config{TopK: 2, DropNumber: 1}

	err := cache.Set(ctx, "", cfg, &prune.Result{})
	assert.ErrorIs(t, err, resultcache.ErrEmptyKey)

	err = cache.Set(ctx, "fp", cfg, nil)
	assert.ErrorIs(t, err, resultcache.ErrNilResult)

	_, err = cache.Get(ctx, "", cfg)
	assert.ErrorIs(t, err, resultcache.ErrEmptyKey)
}
