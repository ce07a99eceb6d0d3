package engine_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

func TestLanguageToolSuggest(t *testing.T) {
	// "😀" is two UTF-16 units, so "are" starts at unit 8 but rune 7.
	const text = "😀 They are here"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/check", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, text, r.PostForm.Get("text"))
		assert.Equal(t, "en-US", r.PostForm.Get("language"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"matches":[
			{"message":"Agreement","offset":8,"length":3,
			 "replacements":[{"value":"were"},{"value":"is"}],
			 "rule":{"id":"AGREEMENT","subId":"2","issueType":"grammar","category":{"id":"GRAMMAR","name":"Grammar"}}},
			{"message":"Out of range","offset":40,"length":3,"replacements":[],
			 "rule":{"id":"BROKEN","issueType":"other","category":{"id":"MISC"}}}
		]}`)
	}))
	defer srv.Close()

	lt := engine.NewLanguageTool(srv.URL+"/", "en-US", srv.Client())
	got, err := lt.Suggest(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, []suggest.Suggestion{{
		Start:        7,
		End:          10,
		Replacements: []string{"were", "is"},
		Rule:         "AGREEMENT[2]",
		Message:      "Agreement",
		Category:     "GRAMMAR",
		IssueType:    "grammar",
	}}, got)
}

func TestLanguageToolErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad language", http.StatusBadRequest)
	}))
	defer srv.Close()

	lt := engine.NewLanguageTool(srv.URL, "xx", srv.Client())
	_, err := lt.Suggest(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad language")
	assert.Error(t, lt.Ping(context.Background()))
}

func TestLanguageToolPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/languages", r.URL.Path)
		fmt.Fprint(w, `[{"name":"English (US)","code":"en","longCode":"en-US"}]`)
	}))
	lt := engine.NewLanguageTool(srv.URL, "en-US", srv.Client())
	assert.NoError(t, engine.Ping(context.Background(), lt))

	srv.Close()
	assert.Error(t, lt.Ping(context.Background()))
}

func TestFilter(t *testing.T) {
	base := engine.Func(func(context.Context, string) ([]suggest.Suggestion, error) {
		return []suggest.Suggestion{
			{Rule: "TO_DO_HYPHEN", Category: "MISC"},
			{Rule: "TO_DO_HYPHEN[3]", Category: "MISC"},
			{Rule: "MORFOLOGIK_RULE_EN_US", Category: "TYPOS"},
			{Rule: "WIKI_RULE", Category: "Wikipedia"},
			{Rule: "DASH_RULE", Category: "TYPOGRAPHY"},
		}, nil
	})

	f := engine.NewFilter(base, []string{"to_do_hyphen"}, []string{"WIKIPEDIA", "TYPOGRAPHY"})
	got, err := f.Suggest(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "MORFOLOGIK_RULE_EN_US", got[0].Rule)
	assert.NoError(t, f.Ping(context.Background()))
}

func TestFilterPassesErrors(t *testing.T) {
	boom := errors.New("boom")
	f := engine.NewFilter(engine.Func(func(context.Context, string) ([]suggest.Suggestion, error) {
		return nil, boom
	}), nil, nil)
	_, err := f.Suggest(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}
