package sqlite_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitten/prosemd-lsp/internal/cache/store"
	"github.com/kitten/prosemd-lsp/internal/cache/store/sqlite"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

func newTestStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "suggestions.db")
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSaveLoad(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Load(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	want := []suggest.Suggestion{{Start: 0, End: 3, Replacements: []string{"The"}, Rule: "UPPERCASE"}}
	require.NoError(t, s.Save(ctx, "k", want))

	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Overwrite
	require.NoError(t, s.Save(ctx, "k", nil))
	got, err = s.Load(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPersistsAcrossOpen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "k", []suggest.Suggestion{{Rule: "R"}}))
	require.NoError(t, s.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "R", got[0].Rule)
}

func TestPrune(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Save(ctx, fmt.Sprintf("k%d", i), nil))
	}
	removed, err := s.Prune(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	_, err = s.Load(ctx, "k4")
	assert.NoError(t, err)
	_, err = s.Load(ctx, "k0")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
