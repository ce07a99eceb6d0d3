package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitten/prosemd-lsp/internal/cache/store"
	"github.com/kitten/prosemd-lsp/internal/cache/store/redis"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

func setupTestRedis(t *testing.T, ttl time.Duration) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	m := miniredis.RunT(t)
	s, err := redis.New(context.Background(), "redis://"+m.Addr(), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, m
}

func TestSaveLoad(t *testing.T) {
	s, m := setupTestRedis(t, 0)
	ctx := context.Background()

	_, err := s.Load(ctx, "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)

	want := []suggest.Suggestion{{Start: 2, End: 5, Replacements: []string{"its"}, Rule: "IT_IS"}}
	require.NoError(t, s.Save(ctx, "abc", want))
	assert.True(t, m.Exists("prosemd:suggestions:abc"))

	got, err := s.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTTL(t *testing.T) {
	s, m := setupTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "abc", nil))
	assert.Equal(t, time.Hour, m.TTL("prosemd:suggestions:abc"))

	m.FastForward(2 * time.Hour)
	_, err := s.Load(ctx, "abc")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConnectFailure(t *testing.T) {
	m := miniredis.RunT(t)
	addr := m.Addr()
	m.Close()

	_, err := redis.New(context.Background(), "redis://"+addr, 0)
	assert.Error(t, err)

	_, err = redis.New(context.Background(), "not a url", 0)
	assert.Error(t, err)
}
