package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nulzo/vision-grader/internal/payload"
	"github.com/nulzo/vision-grader/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sample() *Strategy {
	return New(provider.Lookup(provider.Volcengine), "https://ark.example.com/api/v3/chat/completions", payload.DataURI, "fp-1")
}

func setupRedis(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisCache) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	cache, err := NewRedisCache(context.Background(), RedisConfig{Addr: mr.Addr(), TTL: ttl}, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = cache.Close()
		mr.Close()
	})
	return mr, cache
}

func TestParseSlot(t *testing.T) {
	s, err := ParseSlot("first")
	require.NoError(t, err)
	assert.Equal(t, First, s)

	s, err = ParseSlot("second")
	require.NoError(t, err)
	assert.Equal(t, Second, s)

	_, err = ParseSlot("third")
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestStrategy_Helpers(t *testing.T) {
	s := sample()
	assert.Equal(t, provider.Volcengine, s.Provider)
	assert.Equal(t, payload.TemplateVisionNoThinking, s.TemplateType)
	assert.Equal(t, payload.Options{ImageFormat: payload.DataURI}, s.PayloadOptions())
	assert.Equal(t, "Bearer key", s.Headers("key")["Authorization"])
	assert.False(t, s.CreatedAt.IsZero())
}

func TestCaches(t *testing.T) {
	_, redisCache := setupRedis(t, 0)

	backends := map[string]Cache{
		"memory": NewMemoryCache(),
		"redis":  redisCache,
	}

	for name, cache := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := cache.Get(ctx, First)
			assert.ErrorIs(t, err, ErrNotFound)

			want := sample()
			require.NoError(t, cache.Put(ctx, First, want))

			got, err := cache.Get(ctx, First)
			require.NoError(t, err)
			assert.Equal(t, want.URL, got.URL)
			assert.Equal(t, want.ImageFormat, got.ImageFormat)
			assert.Equal(t, want.Fingerprint, got.Fingerprint)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt))

			// slots are independent
			_, err = cache.Get(ctx, Second)
			assert.ErrorIs(t, err, ErrNotFound)

			// returned values are copies
			got.URL = "mutated"
			again, err := cache.Get(ctx, First)
			require.NoError(t, err)
			assert.Equal(t, want.URL, again.URL)

			require.NoError(t, cache.Invalidate(ctx, First))
			_, err = cache.Get(ctx, First)
			assert.ErrorIs(t, err, ErrNotFound)

			// invalidating an empty slot is a no-op
			require.NoError(t, cache.Invalidate(ctx, First))

			require.NoError(t, cache.Put(ctx, First, want))
			require.NoError(t, cache.Put(ctx, Second, want))
			require.NoError(t, cache.Reset(ctx))
			for _, slot := range Slots {
				_, err = cache.Get(ctx, slot)
				assert.ErrorIs(t, err, ErrNotFound)
			}
		})
	}
}

func TestRedisCache_TTL(t *testing.T) {
	mr, cache := setupRedis(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Put(ctx, Second, sample()))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"second"))

	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, Second)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	mr, cache := setupRedis(t, 0)
	require.NoError(t, mr.Set(DefaultKeyPrefix+"first", "{not json"))

	_, err := cache.Get(context.Background(), First)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(DefaultKeyPrefix+"first"))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisCache(context.Background(), RedisConfig{Addr: addr}, zap.NewNop())
	assert.Error(t, err)
}
