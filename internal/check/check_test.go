package check

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitten/prosemd-lsp/internal/cache"
	"github.com/kitten/prosemd-lsp/internal/document"
	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/parser"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

// typoEngine flags every "teh" in the text.
var typoEngine = engine.Func(func(_ context.Context, text string) ([]suggest.Suggestion, error) {
	var out []suggest.Suggestion
	offset := 0
	for {
		i := strings.Index(text[offset:], "teh")
		if i < 0 {
			return out, nil
		}
		start := utf8.RuneCountInString(text[:offset+i])
		out = append(out, suggest.Suggestion{
			Start:        start,
			End:          start + 3,
			Replacements: []string{"the", "tea"},
			Rule:         "TYPO",
			Message:      "Possible typo",
			IssueType:    "misspelling",
		})
		offset += i + 3
	}
})

func apply(text string, reps []suggest.Replacement) string {
	reps = append([]suggest.Replacement(nil), reps...)
	sort.Slice(reps, func(i, j int) bool { return reps[i].Start > reps[j].Start })
	for _, r := range reps {
		text = text[:r.Start] + r.Replacement + text[r.End:]
	}
	return text
}

func open(t *testing.T, text string) *document.Document {
	t.Helper()
	doc, err := document.Open(context.Background(), parser.NewParser(), 0, text)
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestCheck(t *testing.T) {
	text := "# Title\n\nI saw teh cat.\n\n```\nteh code\n```\n\nAnd *teh* dog.\n"
	doc := open(t, text)

	got, err := NewChecker(typoEngine, 1).Check(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, got, 2, "fenced code is not checked")

	first := got[0]
	assert.Equal(t, 15, first.Start)
	assert.Equal(t, 18, first.End)
	assert.Equal(t, "TYPO", first.Source)
	assert.Equal(t, "misspelling", first.Category)
	assert.Equal(t, "the", first.Label)
	assert.Contains(t, apply(text, first.Replacements), "I saw the cat.")
	require.Len(t, first.Alternatives, 1)
	assert.Contains(t, apply(text, first.Alternatives[0].Replacements), "I saw tea cat.")

	second := got[1]
	assert.Equal(t, "teh", text[second.Start:second.End])
	assert.Contains(t, apply(text, second.Replacements), "And *the* dog.")
}

func TestTransposedLetters(t *testing.T) {
	text := "Teh cat sat.\n"
	var checked []string
	e := engine.Func(func(_ context.Context, clean string) ([]suggest.Suggestion, error) {
		checked = append(checked, clean)
		return []suggest.Suggestion{{Start: 0, End: 3, Replacements: []string{"The"}, Rule: "TYPO"}}, nil
	})

	got, err := NewChecker(e, 0).Check(context.Background(), open(t, text))
	require.NoError(t, err)
	assert.Equal(t, []string{"Teh cat sat."}, checked)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 3, got[0].End)
	assert.Equal(t, "The cat sat.\n", apply(text, got[0].Replacements))
}

func TestPunctuationReachesEngine(t *testing.T) {
	text := "I said, hello! Isn't it (great)? See [the docs](https://example.com) and `go vet`.\n"
	var checked []string
	e := engine.Func(func(_ context.Context, clean string) ([]suggest.Suggestion, error) {
		checked = append(checked, clean)
		return nil, nil
	})

	_, err := NewChecker(e, 0).Check(context.Background(), open(t, text))
	require.NoError(t, err)
	assert.Equal(t, []string{"I said, hello! Isn't it (great)? See the docs and [code]."}, checked)
}

func TestIdenticalProseSharesEngineCall(t *testing.T) {
	var calls atomic.Int32
	counting := engine.Func(func(ctx context.Context, text string) ([]suggest.Suggestion, error) {
		calls.Add(1)
		return typoEngine(ctx, text)
	})
	checker := NewChecker(cache.New(counting), 0)

	first, second := "I saw teh cat.\n", "\n\nI saw teh cat.\n"
	a, err := checker.Check(context.Background(), open(t, first))
	require.NoError(t, err)
	b, err := checker.Check(context.Background(), open(t, second))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "I saw the cat.\n", apply(first, a[0].Replacements))
	assert.Equal(t, "\n\nI saw the cat.\n", apply(second, b[0].Replacements))
}

func TestCheckPropagatesEngineErrors(t *testing.T) {
	failing := engine.Func(func(context.Context, string) ([]suggest.Suggestion, error) {
		return nil, errors.New("connection refused")
	})
	_, err := NewChecker(failing, 0).Check(context.Background(), open(t, "Some text.\n"))
	assert.ErrorContains(t, err, "connection refused")
}

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 0, 4)
	for i, content := range []string{"Nothing wrong.\n", "teh\n", "A\n\nteh teh\n", "# teh\n"} {
		path := filepath.Join(dir, string(rune('a'+i))+".md")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		paths = append(paths, path)
	}

	results, err := NewChecker(typoEngine, 0).CheckFiles(context.Background(), paths, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)

	counts := make([]int, len(results))
	for i, res := range results {
		assert.Equal(t, paths[i], res.Path)
		counts[i] = len(res.Findings)
	}
	assert.Equal(t, []int{0, 1, 2, 1}, counts)

	f := results[2].Findings[1]
	assert.Equal(t, 3, f.Line)
	assert.Equal(t, 5, f.Column)
}

func TestCheckFilesMissingFile(t *testing.T) {
	_, err := NewChecker(typoEngine, 0).CheckFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.md")}, 1)
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	results := []FileResult{
		{Path: "a.md", Findings: []Finding{{
			Line: 3, Column: 7,
			Suggestion: suggest.TextSuggestion{Source: "TYPO", Message: "Possible typo", Category: "misspelling"},
		}}},
		{Path: "b.md"},
		{Path: "c.md", Findings: []Finding{{
			Line: 1, Column: 1,
			Suggestion: suggest.TextSuggestion{Message: "Agreement", Category: "grammar"},
		}}},
	}

	var buf bytes.Buffer
	n := Report(&buf, results)
	assert.Equal(t, 2, n)
	assert.Equal(t,
		"a.md:3:7: [misspelling] Possible typo (TYPO)\n"+
			"c.md:1:1: [grammar] Agreement\n"+
			"2 suggestion(s) in 2 file(s)\n",
		buf.String())

	buf.Reset()
	assert.Zero(t, Report(&buf, []FileResult{{Path: "ok.md"}}))
	assert.Empty(t, buf.String())
}

func TestIsError(t *testing.T) {
	assert.True(t, IsError("grammar"))
	assert.True(t, IsError("inconsistency"))
	assert.False(t, IsError("misspelling"))
	assert.False(t, IsError(""))
}
