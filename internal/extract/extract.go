// Package extract projects Markdown prose into markup-free clean text while
// recording where every piece of that text came from.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/kitten/prosemd-lsp/internal/parser"
)

// ChunkKind tells how a chunk's clean text relates to its source bytes.
type ChunkKind int

const (
	// Text chunks are verbatim: their clean text equals their source bytes.
	Text ChunkKind = iota
	// Break chunks are line breaks rendered as a single space.
	Break
	// Placeholder chunks stand in for content the checker must not see.
	Placeholder
	// Escape chunks are backslash escapes rendered as the escaped character.
	Escape
)

func (k ChunkKind) String() string {
	switch k {
	case Text:
		return "text"
	case Break:
		return "break"
	case Placeholder:
		return "placeholder"
	case Escape:
		return "escape"
	}
	return "unknown"
}

// CodePlaceholder replaces inline code in the clean text.
const CodePlaceholder = "[code]"

// TextChunk maps a run of clean text back to [Start, End) in the document.
type TextChunk struct {
	Start       int
	End         int
	CleanLength int // in runes
	Kind        ChunkKind
}

// Verbatim reports whether the chunk's clean text is a copy of its source.
func (c TextChunk) Verbatim() bool { return c.Kind == Text }

// TextRange is the clean text of one region and the chunks it is made of.
type TextRange struct {
	CleanText string
	Chunks    []TextChunk
}

// Source is the document text nodes refer to.
type Source interface {
	Slice(start, end int) string
}

var (
	regionKinds = map[string]bool{
		"paragraph":       true,
		"atx_heading":     true,
		"pipe_table_cell": true,
	}
	skippedKinds = map[string]bool{
		"minus_metadata": true,
		"plus_metadata":  true,
	}
	verbatimKinds = map[string]bool{
		parser.KindText:               true,
		"entity_reference":            true,
		"numeric_character_reference": true,
	}
	breakKinds = map[string]bool{
		parser.KindSoftLineBreak: true,
		"hard_line_break":        true,
	}
	opaqueKinds = map[string]bool{
		"link_destination":    true,
		"link_title":          true,
		"link_label":          true,
		"image":               true,
		"image_description":   true,
		"fenced_code_block":   true,
		"indented_code_block": true,
		"html_block":          true,
		"html_tag":            true,
		"uri_autolink":        true,
		"email_autolink":      true,
		"latex_block":         true,
	}
)

// Regions returns the nodes holding checkable prose, in document order.
func Regions(root *parser.Node) []*parser.Node {
	var out []*parser.Node
	var visit func(*parser.Node)
	visit = func(n *parser.Node) {
		switch {
		case skippedKinds[n.Kind]:
			return
		case regionKinds[n.Kind]:
			out = append(out, n)
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(root)
	return out
}

// Extract builds the clean text of a single region.
func Extract(region *parser.Node, src Source) TextRange {
	var b builder
	b.src = src
	b.visit(region)
	return TextRange{CleanText: b.clean.String(), Chunks: b.chunks}
}

// Ranges extracts every region under root, skipping regions without text.
func Ranges(root *parser.Node, src Source) []TextRange {
	var out []TextRange
	for _, region := range Regions(root) {
		if r := Extract(region, src); r.CleanText != "" {
			out = append(out, r)
		}
	}
	return out
}

type builder struct {
	src    Source
	clean  strings.Builder
	chunks []TextChunk
}

func (b *builder) emit(n *parser.Node, text string, kind ChunkKind) {
	if text == "" {
		return
	}
	b.clean.WriteString(text)
	b.chunks = append(b.chunks, TextChunk{
		Start:       n.StartByte,
		End:         n.EndByte,
		CleanLength: utf8.RuneCountInString(text),
		Kind:        kind,
	})
}

func (b *builder) visit(n *parser.Node) {
	switch {
	case verbatimKinds[n.Kind]:
		b.emit(n, b.src.Slice(n.StartByte, n.EndByte), Text)
	case breakKinds[n.Kind]:
		b.emit(n, " ", Break)
	case n.Kind == "code_span":
		if n.EndByte > n.StartByte {
			b.emit(n, CodePlaceholder, Placeholder)
		}
	case n.Kind == "backslash_escape":
		b.emit(n, strings.TrimPrefix(b.src.Slice(n.StartByte, n.EndByte), `\`), Escape)
	case opaqueKinds[n.Kind]:
	default:
		for _, c := range n.Children {
			b.visit(c)
		}
	}
}
