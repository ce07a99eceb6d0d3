// Package redis stores engine results in Redis so several editors (or CI
// runs) can share them.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kitten/prosemd-lsp/internal/cache/store"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

const defaultPrefix = "prosemd:suggestions:"

// Store implements store.Store on a Redis server.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// New connects to redisURL and checks the connection. A zero ttl keeps
// entries until Redis evicts them.
func New(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewWithClient(client, ttl), nil
}

// NewWithClient creates a store from an existing client.
func NewWithClient(client *goredis.Client, ttl time.Duration) *Store {
	return &Store{client: client, prefix: defaultPrefix, ttl: ttl}
}

func (s *Store) key(k string) string {
	return s.prefix + k
}

func (s *Store) Load(ctx context.Context, key string) ([]suggest.Suggestion, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}
	return store.Decode(data)
}

func (s *Store) Save(ctx context.Context, key string, suggestions []suggest.Suggestion) error {
	data, err := store.Encode(suggestions)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save suggestions: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
