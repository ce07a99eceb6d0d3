// Package engine talks to grammar checking engines.
package engine

import (
	"context"
	"strings"

	"github.com/kitten/prosemd-lsp/internal/suggest"
)

// Engine checks clean text and reports suggestions with rune offsets.
type Engine interface {
	Suggest(ctx context.Context, text string) ([]suggest.Suggestion, error)
}

// Pinger is implemented by engines that can report whether they are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Func adapts a plain function to Engine.
type Func func(ctx context.Context, text string) ([]suggest.Suggestion, error)

func (f Func) Suggest(ctx context.Context, text string) ([]suggest.Suggestion, error) {
	return f(ctx, text)
}

// Ping checks e if it supports it.
func Ping(ctx context.Context, e Engine) error {
	if p, ok := e.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Filter drops suggestions from disabled rules and categories. A disabled rule
// matches both the rule itself and all of its sub-rules ("RULE[2]").
type Filter struct {
	next       Engine
	rules      map[string]bool
	categories map[string]bool
}

func NewFilter(next Engine, disabledRules, disabledCategories []string) *Filter {
	f := &Filter{
		next:       next,
		rules:      make(map[string]bool, len(disabledRules)),
		categories: make(map[string]bool, len(disabledCategories)),
	}
	for _, r := range disabledRules {
		f.rules[strings.ToUpper(r)] = true
	}
	for _, c := range disabledCategories {
		f.categories[strings.ToUpper(c)] = true
	}
	return f
}

func (f *Filter) Suggest(ctx context.Context, text string) ([]suggest.Suggestion, error) {
	all, err := f.next.Suggest(ctx, text)
	if err != nil {
		return nil, err
	}
	kept := all[:0:0]
	for _, s := range all {
		if f.disabled(s) {
			continue
		}
		kept = append(kept, s)
	}
	return kept, nil
}

func (f *Filter) Ping(ctx context.Context) error {
	return Ping(ctx, f.next)
}

func (f *Filter) disabled(s suggest.Suggestion) bool {
	if f.categories[strings.ToUpper(s.Category)] {
		return true
	}
	rule := strings.ToUpper(s.Rule)
	if f.rules[rule] {
		return true
	}
	if base, _, ok := strings.Cut(rule, "["); ok {
		return f.rules[base]
	}
	return false
}
