// Package cache memoizes grammar engine results by clean text.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/singleflight"

	"github.com/kitten/prosemd-lsp/internal/cache/store"
	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

var log = commonlog.GetLogger("prosemd.cache")

// DefaultSize is the number of clean texts kept in memory.
const DefaultSize = 1000

// SuggestionCache sits in front of an engine. Lookups go to the in-memory
// LRU first, then to the optional persistent store, and only then to the
// engine. Concurrent misses for the same text share a single engine call.
//
// SuggestionCache itself implements engine.Engine.
type SuggestionCache struct {
	engine   engine.Engine
	store    store.Store
	language string

	mu    sync.Mutex
	lru   *lru.Cache
	group singleflight.Group
}

type Option func(*SuggestionCache)

// WithSize bounds the in-memory LRU.
func WithSize(n int) Option {
	return func(c *SuggestionCache) {
		if n > 0 {
			c.lru = lru.New(n)
		}
	}
}

// WithStore adds a persistent store. Keys are scoped by language.
func WithStore(s store.Store, language string) Option {
	return func(c *SuggestionCache) {
		c.store = s
		c.language = language
	}
}

func New(e engine.Engine, opts ...Option) *SuggestionCache {
	c := &SuggestionCache{engine: e, lru: lru.New(DefaultSize)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Suggest returns the suggestions for text. Callers own the returned slice.
func (c *SuggestionCache) Suggest(ctx context.Context, text string) ([]suggest.Suggestion, error) {
	if s, ok := c.get(text); ok {
		return suggest.CloneAll(s), nil
	}

	v, err, shared := c.group.Do(text, func() (any, error) {
		if s, ok := c.get(text); ok {
			return s, nil
		}
		if s, ok := c.load(ctx, text); ok {
			c.add(text, s)
			return s, nil
		}

		s, err := c.engine.Suggest(ctx, text)
		if err != nil {
			return nil, err
		}
		s = suggest.CloneAll(s)
		c.add(text, s)
		c.save(ctx, text, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debugf("shared engine call for %d bytes", len(text))
	}
	return suggest.CloneAll(v.([]suggest.Suggestion)), nil
}

func (c *SuggestionCache) Ping(ctx context.Context) error {
	return engine.Ping(ctx, c.engine)
}

// Len returns the number of entries held in memory.
func (c *SuggestionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge empties the in-memory LRU. The persistent store is left alone.
func (c *SuggestionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Clear()
}

func (c *SuggestionCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *SuggestionCache) get(text string) ([]suggest.Suggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(text)
	if !ok {
		return nil, false
	}
	return v.([]suggest.Suggestion), true
}

func (c *SuggestionCache) add(text string, s []suggest.Suggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(text, s)
}

func (c *SuggestionCache) load(ctx context.Context, text string) ([]suggest.Suggestion, bool) {
	if c.store == nil {
		return nil, false
	}
	s, err := c.store.Load(ctx, store.Key(c.language, text))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warningf("failed to read persistent cache: %v", err)
		}
		return nil, false
	}
	return s, true
}

func (c *SuggestionCache) save(ctx context.Context, text string, s []suggest.Suggestion) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, store.Key(c.language, text), s); err != nil {
		log.Warningf("failed to write persistent cache: %v", err)
	}
}
