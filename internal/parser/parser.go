package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	markdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
	markdowninline "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown-inline"
	"github.com/tliron/commonlog"
)

var (
	log = commonlog.GetLogger("prosemd.parser")

	blockLang  = markdown.GetLanguage()
	inlineLang = markdowninline.GetLanguage()
)

// ErrClosed is returned by Parse after Close.
var ErrClosed = errors.New("parser is closed")

// Source is the text a syntax tree is built from. *buffer.Rope satisfies it.
type Source interface {
	Len() int
	// Chunk returns a non-empty run of bytes starting at offset, or "" at the end.
	Chunk(offset int) string
	Slice(start, end int) string
}

// Parser wraps the block and inline Markdown parsers. A Parser may only run one
// parse at a time; it serializes callers.
type Parser struct {
	block  *sitter.Parser
	inline *sitter.Parser
	mu     sync.Mutex
}

// NewParser creates a Parser for Markdown documents.
func NewParser() *Parser {
	block := sitter.NewParser()
	block.SetLanguage(blockLang)
	inline := sitter.NewParser()
	inline.SetLanguage(inlineLang)
	return &Parser{block: block, inline: inline}
}

// Parse builds the syntax tree for src. When old is non-nil it must already
// have been edited to match src; unchanged subtrees are reused from it.
func (p *Parser) Parse(ctx context.Context, src Source, old *Tree) (*Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.block == nil {
		return nil, ErrClosed
	}

	input := sitter.Input{
		Read: func(offset uint32, _ sitter.Point) []byte {
			return []byte(src.Chunk(int(offset)))
		},
		Encoding: sitter.InputEncodingUTF8,
	}

	var oldBlock *sitter.Tree
	if old != nil {
		oldBlock = old.block
	}
	block, err := p.block.ParseInputCtx(ctx, oldBlock, input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse blocks: %w", err)
	}

	tree := &Tree{block: block, inlines: make(map[uint32]*inlineTree)}
	var hosts []*sitter.Node
	collectInlineHosts(block.RootNode(), &hosts)
	for _, host := range hosts {
		ranges := includedRanges(host)
		if len(ranges) == 0 {
			continue
		}
		// An old inline tree is only a valid starting point when it was
		// parsed over the same included ranges.
		var oldInline *sitter.Tree
		if old != nil {
			if prev, ok := old.inlines[host.StartByte()]; ok && sameRanges(prev.ranges, ranges) {
				oldInline = prev.tree
			}
		}
		p.inline.SetIncludedRanges(ranges)
		it, err := p.inline.ParseInputCtx(ctx, oldInline, input)
		if err != nil {
			return nil, fmt.Errorf("failed to parse inline content at byte %d: %w", host.StartByte(), err)
		}
		tree.inlines[host.StartByte()] = &inlineTree{tree: it, ranges: ranges}
	}

	log.Debugf("parsed %d bytes, %d inline regions, reused=%t", src.Len(), len(tree.inlines), old != nil)
	return tree, nil
}

// Close frees the underlying parsers. Trees produced earlier stay usable.
func (p *Parser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.block != nil {
		p.block.Close()
		p.block = nil
	}
	if p.inline != nil {
		p.inline.Close()
		p.inline = nil
	}
	return nil
}

func isInlineHost(kind string) bool {
	return kind == "inline" || kind == "pipe_table_cell"
}

func collectInlineHosts(n *sitter.Node, out *[]*sitter.Node) {
	if isInlineHost(n.Type()) {
		*out = append(*out, n)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		collectInlineHosts(n.NamedChild(i), out)
	}
}

// includedRanges returns the parts of an inline host not covered by its named
// block children (block continuations such as quote markers and list
// indentation). Anonymous children are the host's own words and punctuation.
func includedRanges(n *sitter.Node) []sitter.Range {
	var ranges []sitter.Range
	start, startPoint := n.StartByte(), n.StartPoint()
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.StartByte() > start {
			ranges = append(ranges, sitter.Range{
				StartPoint: startPoint,
				EndPoint:   c.StartPoint(),
				StartByte:  start,
				EndByte:    c.StartByte(),
			})
		}
		start, startPoint = c.EndByte(), c.EndPoint()
	}
	if n.EndByte() > start {
		ranges = append(ranges, sitter.Range{
			StartPoint: startPoint,
			EndPoint:   n.EndPoint(),
			StartByte:  start,
			EndByte:    n.EndByte(),
		})
	}
	return ranges
}

func sameRanges(a, b []sitter.Range) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].StartByte != b[i].StartByte || a[i].EndByte != b[i].EndByte {
			return false
		}
	}
	return true
}
