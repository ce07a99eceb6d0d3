// Package check runs the prose pipeline over whole documents: extract the
// checkable regions, ask the engine, and locate its suggestions.
package check

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kitten/prosemd-lsp/internal/document"
	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/extract"
	"github.com/kitten/prosemd-lsp/internal/parser"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

type Checker struct {
	engine          engine.Engine
	maxAlternatives int
}

func NewChecker(e engine.Engine, maxAlternatives int) *Checker {
	return &Checker{engine: e, maxAlternatives: maxAlternatives}
}

// Check returns the located suggestions for doc, ordered by position.
func (c *Checker) Check(ctx context.Context, doc *document.Document) ([]suggest.TextSuggestion, error) {
	var out []suggest.TextSuggestion
	for _, tr := range extract.Ranges(doc.Root(), doc.Text()) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		suggestions, err := c.engine.Suggest(ctx, tr.CleanText)
		if err != nil {
			return nil, fmt.Errorf("failed to check text: %w", err)
		}
		for _, s := range suggestions {
			if ts, ok := suggest.Reconcile(tr, s, c.maxAlternatives); ok {
				out = append(out, ts)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

// Finding is a suggestion with its editor position. Line and Column are
// 1-based; Column counts UTF-16 code units like the language server does.
type Finding struct {
	Line       int
	Column     int
	Suggestion suggest.TextSuggestion
}

type FileResult struct {
	Path     string
	Findings []Finding
}

// CheckFile reads, parses and checks a single file.
func (c *Checker) CheckFile(ctx context.Context, path string) (FileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := document.Open(ctx, parser.NewParser(), 0, string(data))
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer doc.Close()

	suggestions, err := c.Check(ctx, doc)
	if err != nil {
		return FileResult{}, fmt.Errorf("%s: %w", path, err)
	}

	res := FileResult{Path: path}
	for _, ts := range suggestions {
		pos := doc.Position(ts.Start)
		res.Findings = append(res.Findings, Finding{
			Line:       int(pos.Line) + 1,
			Column:     int(pos.Character) + 1,
			Suggestion: ts,
		})
	}
	return res, nil
}

// CheckFiles checks paths with up to jobs files in flight. Results keep the
// order of paths. The first failure cancels the remaining files.
func (c *Checker) CheckFiles(ctx context.Context, paths []string, jobs int) ([]FileResult, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Indexes are unique per goroutine, so no mutex is needed.
	results := make([]FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			res, err := c.CheckFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
