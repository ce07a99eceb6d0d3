package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/kitten/prosemd-lsp/internal/cache/store"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

func TestKey(t *testing.T) {
	a := store.Key("en-US", "some text")
	assert.Len(t, a, 64)
	assert.Equal(t, a, store.Key("en-US", "some text"))
	assert.NotEqual(t, a, store.Key("de-DE", "some text"))
	assert.NotEqual(t, store.Key("en", "-US"), store.Key("en-", "US"))
}

func TestEncodeDecode(t *testing.T) {
	in := []suggest.Suggestion{{
		Start: 1, End: 4, Replacements: []string{"a", "b"},
		Rule: "R", Message: "m", Category: "GRAMMAR", IssueType: "grammar",
	}}
	data, err := store.Encode(in)
	require.NoError(t, err)

	out, err := store.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := store.Encode(nil)
	require.NoError(t, err)
	out, err = store.Decode(empty)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestDecodeSchemaMismatch(t *testing.T) {
	data, err := msgpack.Marshal(&store.Payload{Schema: store.SchemaVersion + 1})
	require.NoError(t, err)

	_, err = store.Decode(data)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = store.Decode([]byte("garbage"))
	assert.Error(t, err)
}
