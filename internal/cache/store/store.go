// Package store defines persistent backends for engine results.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/kitten/prosemd-lsp/internal/suggest"
)

// SchemaVersion is bumped whenever the encoded payload changes shape. Entries
// written under another version read as missing.
const SchemaVersion uint16 = 1

var ErrNotFound = errors.New("store: entry not found")

// Store persists suggestions by key.
type Store interface {
	// Load returns ErrNotFound when key is absent or stale.
	Load(ctx context.Context, key string) ([]suggest.Suggestion, error)
	Save(ctx context.Context, key string, suggestions []suggest.Suggestion) error
	Close() error
}

// Key derives the storage key for text checked in language.
func Key(language, text string) string {
	h := sha256.New()
	h.Write([]byte(language))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Payload is the encoded form of a stored entry.
type Payload struct {
	Schema      uint16
	Suggestions []suggest.Suggestion
}

func Encode(suggestions []suggest.Suggestion) ([]byte, error) {
	data, err := msgpack.Marshal(&Payload{Schema: SchemaVersion, Suggestions: suggestions})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

func Decode(data []byte) ([]suggest.Suggestion, error) {
	var p Payload
	if err := msgpack.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if p.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: schema %d", ErrNotFound, p.Schema)
	}
	if p.Suggestions == nil {
		p.Suggestions = []suggest.Suggestion{}
	}
	return p.Suggestions, nil
}
