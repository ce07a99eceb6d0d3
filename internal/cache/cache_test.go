package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitten/prosemd-lsp/internal/cache"
	"github.com/kitten/prosemd-lsp/internal/cache/store"
	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

// countingEngine reports one suggestion per call, echoing the text.
type countingEngine struct {
	calls atomic.Int32
	err   error
}

func (e *countingEngine) Suggest(_ context.Context, text string) ([]suggest.Suggestion, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return []suggest.Suggestion{{Start: 0, End: len(text), Replacements: []string{"x"}, Message: text}}, nil
}

// memStore is an in-memory store.Store.
type memStore struct {
	mu      sync.Mutex
	entries map[string][]suggest.Suggestion
	loadErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{entries: map[string][]suggest.Suggestion{}}
}

func (m *memStore) Load(_ context.Context, key string) ([]suggest.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	s, ok := m.entries[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

func (m *memStore) Save(_ context.Context, key string, s []suggest.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = s
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func TestHitAvoidsEngine(t *testing.T) {
	e := &countingEngine{}
	c := cache.New(e)

	first, err := c.Suggest(context.Background(), "hello")
	require.NoError(t, err)
	second, err := c.Suggest(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), e.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	c := cache.New(&countingEngine{})

	got, err := c.Suggest(context.Background(), "hello")
	require.NoError(t, err)
	got[0].Replacements[0] = "mutated"
	got[0].Message = "mutated"

	again, err := c.Suggest(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "x", again[0].Replacements[0])
	assert.Equal(t, "hello", again[0].Message)
}

func TestEviction(t *testing.T) {
	e := &countingEngine{}
	c := cache.New(e, cache.WithSize(2))
	ctx := context.Background()

	for _, text := range []string{"a", "b", "a", "c", "b"} {
		_, err := c.Suggest(ctx, text)
		require.NoError(t, err)
	}
	// "b" was the least recently used entry when "c" arrived.
	assert.Equal(t, int32(4), e.calls.Load())
	assert.Equal(t, 2, c.Len())
}

func TestErrorsAreNotCached(t *testing.T) {
	e := &countingEngine{err: errors.New("engine down")}
	c := cache.New(e)

	_, err := c.Suggest(context.Background(), "hello")
	assert.Error(t, err)
	_, err = c.Suggest(context.Background(), "hello")
	assert.Error(t, err)
	assert.Equal(t, int32(2), e.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestConcurrentMissesShareOneCall(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	e := engine.Func(func(context.Context, string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		<-release
		return []suggest.Suggestion{{Rule: "R"}}, nil
	})
	c := cache.New(e)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Suggest(context.Background(), "same text")
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestPersistentStore(t *testing.T) {
	st := newMemStore()
	e := &countingEngine{}
	ctx := context.Background()

	c := cache.New(e, cache.WithStore(st, "en-US"))
	_, err := c.Suggest(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, st.saves)
	assert.Contains(t, st.entries, store.Key("en-US", "hello"))

	// A fresh cache (new process) is served from the store.
	warm := cache.New(e, cache.WithStore(st, "en-US"))
	got, err := warm.Suggest(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got[0].Message)
	assert.Equal(t, int32(1), e.calls.Load())

	// Another language does not share entries.
	other := cache.New(e, cache.WithStore(st, "de-DE"))
	_, err = other.Suggest(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, int32(2), e.calls.Load())
}

func TestStoreFailuresFallBackToEngine(t *testing.T) {
	st := newMemStore()
	st.loadErr = errors.New("disk on fire")
	e := &countingEngine{}

	c := cache.New(e, cache.WithStore(st, "en-US"))
	got, err := c.Suggest(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(1), e.calls.Load())
}

func TestPurge(t *testing.T) {
	e := &countingEngine{}
	c := cache.New(e)
	ctx := context.Background()

	_, _ = c.Suggest(ctx, "hello")
	c.Purge()
	assert.Equal(t, 0, c.Len())
	_, _ = c.Suggest(ctx, "hello")
	assert.Equal(t, int32(2), e.calls.Load())
}
