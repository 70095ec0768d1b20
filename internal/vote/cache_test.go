package vote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCountPopulatesAndServesFromCache(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (int, error) {
		calls++
		return 7, nil
	}

	count, err := cache.Count(ctx, "col-1", "2025-03", loader)
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.Equal(t, 1, calls)

	count, err = cache.Count(ctx, "col-1", "2025-03", loader)
	require.NoError(t, err)
	require.Equal(t, 7, count)
	require.Equal(t, 1, calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	value := 1
	loader := func(context.Context) (int, error) { return value, nil }

	count, err := cache.Count(ctx, "col-1", "2025-03", loader)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	value = 2
	cache.Invalidate(ctx, "col-1", "2025-03")
	count, err = cache.Count(ctx, "col-1", "2025-03", loader)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestStaleFillCannotResurrectOldCount(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	count, err := cache.Count(ctx, "col-1", "2025-03",
		func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	require.Equal(t, 3, count)

	// A toggle commits and bumps the version.
	cache.Invalidate(ctx, "col-1", "2025-03")

	// A fill that raced the toggle writes its pre-commit aggregate under
	// the old version key.
	require.NoError(t, mr.Set("votes:count:2025-03:col-1:v0", "3"))

	count, err = cache.Count(ctx, "col-1", "2025-03",
		func(context.Context) (int, error) { return 4, nil })
	require.NoError(t, err)
	require.Equal(t, 4, count)
}

func TestCountDegradesWhenRedisDown(t *testing.T) {
	cache, mr := newTestCache(t)
	mr.Close()

	count, err := cache.Count(context.Background(), "col-1", "2025-03",
		func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestCountKeysScopedByPeriod(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	count, err := cache.Count(ctx, "col-1", "2025-03",
		func(context.Context) (int, error) { return 5, nil })
	require.NoError(t, err)
	require.Equal(t, 5, count)

	count, err = cache.Count(ctx, "col-1", "2025-04",
		func(context.Context) (int, error) { return 9, nil })
	require.NoError(t, err)
	require.Equal(t, 9, count)
}

func TestNilCacheFallsThrough(t *testing.T) {
	var cache *Cache
	count, err := cache.Count(context.Background(), "col-1", "2025-03",
		func(context.Context) (int, error) { return 4, nil })
	require.NoError(t, err)
	require.Equal(t, 4, count)
	cache.Invalidate(context.Background(), "col-1", "2025-03")
}

func TestCountLoaderErrorPropagates(t *testing.T) {
	cache, _ := newTestCache(t)
	wantErr := errors.New("aggregate failed")

	_, err := cache.Count(context.Background(), "col-1", "2025-03",
		func(context.Context) (int, error) { return 0, wantErr })
	require.ErrorIs(t, err, wantErr)
}
