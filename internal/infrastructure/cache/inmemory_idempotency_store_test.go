package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clinicpos/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*InMemoryIdempotencyStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	store := NewInMemoryIdempotencyStore(time.Hour)
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "recovery:a", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "recovery:a", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired key can be claimed again", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "recovery:b", time.Minute)
		require.NoError(t, err)
		require.True(t, isNew)

		clock.Advance(time.Minute)

		isNew, err = store.MarkProcessed(ctx, "recovery:b", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "recovery:c")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "recovery:c", time.Minute)
	require.NoError(t, err)
	processed, err = store.IsProcessed(ctx, "recovery:c")
	require.NoError(t, err)
	assert.True(t, processed)

	clock.Advance(2 * time.Minute)
	processed, err = store.IsProcessed(ctx, "recovery:c")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_Release(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "recovery:d", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "recovery:d"))

	isNew, err := store.MarkProcessed(ctx, "recovery:d", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	assert.NoError(t, store.Release(ctx, "never-claimed"))
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store, clock := newTestStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short", time.Minute)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	require.Equal(t, 2, store.Size())

	clock.Advance(10 * time.Minute)
	store.sweep()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 50
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "recovery:race", time.Hour)
			if err == nil && isNew {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	for i := 0; i < 10; i++ {
		_, _ = store.MarkProcessed(ctx, fmt.Sprintf("k-%d", i), time.Hour)
	}
	assert.Equal(t, 11, store.Size())
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore(0)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewIdempotencyStore_RedisDisabled(t *testing.T) {
	store, err := NewIdempotencyStore(context.Background(), config.RedisConfig{Enabled: false}, time.Minute, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)
}

func TestNewIdempotencyStore_FallbackWhenUnreachable(t *testing.T) {
	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1, AllowInMemoryFallback: true}
	store, err := NewIdempotencyStore(context.Background(), cfg, 0, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	_, ok := store.(*InMemoryIdempotencyStore)
	assert.True(t, ok)

	cfg.AllowInMemoryFallback = false
	_, err = NewIdempotencyStore(context.Background(), cfg, 0, zap.NewNop())
	assert.Error(t, err)
}
