package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Node kinds synthesized for inline content the grammar leaves implicit.
const (
	KindText          = "text"
	KindSoftLineBreak = "soft_line_break"
)

// Node is a plain, immutable view of the syntax tree. Inline trees are grafted
// under their host block node, anonymous tokens and delimiters are dropped, and
// the text between inline nodes is materialized as text and soft_line_break
// leaves.
type Node struct {
	Kind      string
	StartByte int
	EndByte   int
	Children  []*Node
}

// Sexp renders the node as an s-expression of kinds, mostly for tests.
func (n *Node) Sexp() string {
	var sb strings.Builder
	var write func(*Node)
	write = func(n *Node) {
		sb.WriteByte('(')
		sb.WriteString(n.Kind)
		for _, c := range n.Children {
			sb.WriteByte(' ')
			write(c)
		}
		sb.WriteByte(')')
	}
	write(n)
	return sb.String()
}

// Root builds the node view of t over src.
func (t *Tree) Root(src Source) *Node {
	return t.convert(t.block.RootNode(), src)
}

func (t *Tree) convert(n *sitter.Node, src Source) *Node {
	out := &Node{Kind: n.Type(), StartByte: int(n.StartByte()), EndByte: int(n.EndByte())}
	if isInlineHost(out.Kind) {
		if it, ok := t.inlines[n.StartByte()]; ok {
			b := inlineBuilder{src: src}
			for _, r := range it.ranges {
				b.ranges = append(b.ranges, [2]int{int(r.StartByte), int(r.EndByte)})
			}
			out.Children = trimEdges(b.children(it.tree.RootNode(), out.StartByte, out.EndByte), src)
		}
		return out
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out.Children = append(out.Children, t.convert(n.NamedChild(i), src))
	}
	return out
}

// syntaxKinds are inline nodes whose anonymous tokens are markup, like the
// brackets of a link. Anywhere else anonymous tokens are plain punctuation.
var syntaxKinds = map[string]bool{
	"inline_link":              true,
	"shortcut_link":            true,
	"full_reference_link":      true,
	"collapsed_reference_link": true,
	"image":                    true,
	"link_label":               true,
	"link_destination":         true,
	"link_title":               true,
	"code_span":                true,
	"html_tag":                 true,
	"hard_line_break":          true,
}

type inlineBuilder struct {
	src    Source
	ranges [][2]int
}

// children converts the children of n, filling the gaps between them that lie
// inside [lo, hi) with text.
func (b *inlineBuilder) children(n *sitter.Node, lo, hi int) []*Node {
	var out []*Node
	cursor := lo
	markup := syntaxKinds[n.Type()]
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && !markup {
			continue
		}
		start, end := int(c.StartByte()), int(c.EndByte())
		out = append(out, b.gap(cursor, start)...)
		cursor = max(cursor, end)
		if !c.IsNamed() || strings.HasSuffix(c.Type(), "_delimiter") {
			continue
		}
		node := &Node{Kind: c.Type(), StartByte: start, EndByte: end}
		// Plain words are hidden tokens, so link text made only of words has no
		// children of its own.
		if c.ChildCount() > 0 || c.Type() == "link_text" {
			node.Children = b.children(c, start, end)
		}
		out = append(out, node)
	}
	return append(out, b.gap(cursor, hi)...)
}

func (b *inlineBuilder) gap(start, end int) []*Node {
	var out []*Node
	for _, r := range b.ranges {
		lo, hi := max(start, r[0]), min(end, r[1])
		if lo < hi {
			out = appendLines(out, b.src.Slice(lo, hi), lo)
		}
	}
	return out
}

// appendLines splits s, found at base, into text runs separated by soft line
// breaks. A break absorbs the whitespace on both sides of the newline.
func appendLines(out []*Node, s string, base int) []*Node {
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			return append(out, &Node{Kind: KindText, StartByte: base, EndByte: base + len(s)})
		}
		text := strings.TrimRight(s[:i], " \t\r")
		j := i + 1
		for j < len(s) && (s[j] == ' ' || s[j] == '\t') {
			j++
		}
		if len(text) > 0 {
			out = append(out, &Node{Kind: KindText, StartByte: base, EndByte: base + len(text)})
		}
		out = append(out, &Node{Kind: KindSoftLineBreak, StartByte: base + len(text), EndByte: base + j})
		s = s[j:]
		base += j
	}
	return out
}

// trimEdges drops breaks and whitespace at either end of an inline host.
func trimEdges(nodes []*Node, src Source) []*Node {
	for len(nodes) > 0 && nodes[0].Kind == KindSoftLineBreak {
		nodes = nodes[1:]
	}
	for len(nodes) > 0 && nodes[len(nodes)-1].Kind == KindSoftLineBreak {
		nodes = nodes[:len(nodes)-1]
	}
	if len(nodes) > 0 && nodes[0].Kind == KindText {
		first := nodes[0]
		text := src.Slice(first.StartByte, first.EndByte)
		trimmed := strings.TrimLeft(text, " \t")
		nodes[0] = &Node{Kind: KindText, StartByte: first.EndByte - len(trimmed), EndByte: first.EndByte}
	}
	if n := len(nodes); n > 0 && nodes[n-1].Kind == KindText {
		last := nodes[n-1]
		text := src.Slice(last.StartByte, last.EndByte)
		trimmed := strings.TrimRight(text, " \t")
		nodes[n-1] = &Node{Kind: KindText, StartByte: last.StartByte, EndByte: last.StartByte + len(trimmed)}
	}
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Kind == KindText && n.StartByte == n.EndByte {
			continue
		}
		out = append(out, n)
	}
	return out
}
