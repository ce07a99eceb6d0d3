// Package buffer implements the persistent text buffer backing open documents.
//
// A Rope is an immutable, height-balanced binary tree of string leaves. Edits
// return a new Rope that shares every untouched leaf with its predecessor, so
// older snapshots stay valid and cheap to keep around.
package buffer

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxLeaf bounds the size of a single leaf in bytes.
const maxLeaf = 1024

// ErrOutOfRange is returned for offsets or lines outside the buffer.
var ErrOutOfRange = errors.New("offset out of range")

// Rope is an immutable UTF-8 text buffer. The zero value is an empty buffer.
type Rope struct {
	root *node
}

type node struct {
	left, right *node
	leaf        string
	length      int
	newlines    int
	height      int
}

// New builds a rope holding text.
func New(text string) *Rope {
	return &Rope{root: balanced(leaves(text))}
}

// Len returns the length of the buffer in bytes.
func (r *Rope) Len() int {
	if r == nil || r.root == nil {
		return 0
	}
	return r.root.length
}

// LineCount returns the number of lines. An empty buffer has one line.
func (r *Rope) LineCount() int {
	if r == nil || r.root == nil {
		return 1
	}
	return r.root.newlines + 1
}

func (r *Rope) String() string {
	var sb strings.Builder
	sb.Grow(r.Len())
	walk(r.rootNode(), 0, 0, r.Len(), func(s string) { sb.WriteString(s) })
	return sb.String()
}

// Slice returns the bytes in [start, end), clamped to the buffer.
func (r *Rope) Slice(start, end int) string {
	start = max(start, 0)
	end = min(end, r.Len())
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sb.Grow(end - start)
	walk(r.rootNode(), 0, start, end, func(s string) { sb.WriteString(s) })
	return sb.String()
}

// Chunk returns the remainder of the leaf containing offset. Reading chunks
// successively from offset 0 yields the whole buffer without copying it.
func (r *Rope) Chunk(offset int) string {
	n := r.rootNode()
	if n == nil || offset < 0 || offset >= n.length {
		return ""
	}
	for !n.isLeaf() {
		if offset < n.left.length {
			n = n.left
		} else {
			offset -= n.left.length
			n = n.right
		}
	}
	return n.leaf[offset:]
}

// Edit replaces the bytes in [start, end) with text and returns the new rope.
// The receiver is left untouched.
func (r *Rope) Edit(start, end int, text string) (*Rope, error) {
	if start < 0 || end < start || end > r.Len() {
		return nil, fmt.Errorf("%w: [%d, %d) in buffer of %d bytes", ErrOutOfRange, start, end, r.Len())
	}
	left, rest := split(r.rootNode(), start)
	_, right := split(rest, end-start)
	return &Rope{root: join(join(left, balanced(leaves(text))), right)}, nil
}

// OffsetOfLine returns the byte offset at which line starts.
func (r *Rope) OffsetOfLine(line int) (int, error) {
	if line < 0 || line >= r.LineCount() {
		return 0, fmt.Errorf("%w: line %d of %d", ErrOutOfRange, line, r.LineCount())
	}
	if line == 0 {
		return 0, nil
	}
	return nthNewline(r.root, line), nil
}

// LineOfOffset returns the zero-based line containing offset.
func (r *Rope) LineOfOffset(offset int) int {
	return newlinesBefore(r.rootNode(), min(max(offset, 0), r.Len()))
}

// lineEnd returns the offset of the end of line, excluding its terminator.
func (r *Rope) lineEnd(line int) int {
	if line+1 >= r.LineCount() {
		return r.Len()
	}
	next, _ := r.OffsetOfLine(line + 1)
	return next - 1
}

// OffsetOfPosition converts a line and UTF-16 column into a byte offset. A
// column past the end of the line resolves to the end of the line; a column
// inside a surrogate pair resolves to the start of that character.
func (r *Rope) OffsetOfPosition(line, column int) (int, error) {
	start, err := r.OffsetOfLine(line)
	if err != nil {
		return 0, err
	}
	if column < 0 {
		return 0, fmt.Errorf("%w: column %d", ErrOutOfRange, column)
	}
	text := strings.TrimSuffix(r.Slice(start, r.lineEnd(line)), "\r")
	units := 0
	for i, c := range text {
		width := utf16Width(c)
		if units+width > column {
			return start + i, nil
		}
		units += width
	}
	return start + len(text), nil
}

// PositionOfOffset converts a byte offset into a line and UTF-16 column.
func (r *Rope) PositionOfOffset(offset int) (line, column int) {
	offset = min(max(offset, 0), r.Len())
	line = r.LineOfOffset(offset)
	start, _ := r.OffsetOfLine(line)
	return line, UTF16Len(r.Slice(start, offset))
}

// Point converts a byte offset into a row and byte column.
func (r *Rope) Point(offset int) (row, column int) {
	offset = min(max(offset, 0), r.Len())
	row = r.LineOfOffset(offset)
	start, _ := r.OffsetOfLine(row)
	return row, offset - start
}

// UTF16Len counts the UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	n := 0
	for _, c := range s {
		n += utf16Width(c)
	}
	return n
}

func utf16Width(c rune) int {
	if c >= 0x10000 {
		return 2
	}
	return 1
}

func (r *Rope) rootNode() *node {
	if r == nil {
		return nil
	}
	return r.root
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

func height(n *node) int {
	if n == nil {
		return 0
	}
	return n.height
}

func newLeaf(s string) *node {
	return &node{leaf: s, length: len(s), newlines: strings.Count(s, "\n"), height: 1}
}

// leaves cuts text into leaves on rune boundaries.
func leaves(text string) []*node {
	var out []*node
	for len(text) > maxLeaf {
		cut := maxLeaf
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxLeaf
		}
		out = append(out, newLeaf(text[:cut]))
		text = text[cut:]
	}
	if len(text) > 0 {
		out = append(out, newLeaf(text))
	}
	return out
}

func balanced(ns []*node) *node {
	switch len(ns) {
	case 0:
		return nil
	case 1:
		return ns[0]
	}
	mid := len(ns) / 2
	return concat(balanced(ns[:mid]), balanced(ns[mid:]))
}

func concat(l, r *node) *node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	return &node{
		left:     l,
		right:    r,
		length:   l.length + r.length,
		newlines: l.newlines + r.newlines,
		height:   max(l.height, r.height) + 1,
	}
}

// join concatenates two balanced trees into a balanced tree.
func join(l, r *node) *node {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if l.isLeaf() && r.isLeaf() && l.length+r.length <= maxLeaf {
		return newLeaf(l.leaf + r.leaf)
	}
	switch hl, hr := height(l), height(r); {
	case hl > hr+1:
		return rebalance(concat(l.left, join(l.right, r)))
	case hr > hl+1:
		return rebalance(concat(join(l, r.left), r.right))
	}
	return concat(l, r)
}

func rebalance(n *node) *node {
	if n.isLeaf() {
		return n
	}
	switch b := height(n.left) - height(n.right); {
	case b > 1:
		l := n.left
		if height(l.left) < height(l.right) {
			l = rotateLeft(l)
		}
		return rotateRight(concat(l, n.right))
	case b < -1:
		r := n.right
		if height(r.right) < height(r.left) {
			r = rotateRight(r)
		}
		return rotateLeft(concat(n.left, r))
	}
	return n
}

func rotateRight(n *node) *node {
	l := n.left
	return concat(l.left, concat(l.right, n.right))
}

func rotateLeft(n *node) *node {
	r := n.right
	return concat(concat(n.left, r.left), r.right)
}

func split(n *node, i int) (*node, *node) {
	switch {
	case n == nil:
		return nil, nil
	case i <= 0:
		return nil, n
	case i >= n.length:
		return n, nil
	case n.isLeaf():
		return newLeaf(n.leaf[:i]), newLeaf(n.leaf[i:])
	case i < n.left.length:
		ll, lr := split(n.left, i)
		return ll, join(lr, n.right)
	case i == n.left.length:
		return n.left, n.right
	}
	rl, rr := split(n.right, i-n.left.length)
	return join(n.left, rl), rr
}

// walk calls fn with every piece of n that overlaps [start, end). base is the
// offset of n within the whole rope.
func walk(n *node, base, start, end int, fn func(string)) {
	if n == nil || end <= base || start >= base+n.length {
		return
	}
	if n.isLeaf() {
		lo := max(start-base, 0)
		hi := min(end-base, n.length)
		fn(n.leaf[lo:hi])
		return
	}
	walk(n.left, base, start, end, fn)
	walk(n.right, base+n.left.length, start, end, fn)
}

// nthNewline returns the offset just past the k-th newline (k >= 1).
func nthNewline(n *node, k int) int {
	if n.isLeaf() {
		idx := 0
		for ; k > 0; k-- {
			idx += strings.IndexByte(n.leaf[idx:], '\n') + 1
		}
		return idx
	}
	if k <= n.left.newlines {
		return nthNewline(n.left, k)
	}
	return n.left.length + nthNewline(n.right, k-n.left.newlines)
}

func newlinesBefore(n *node, offset int) int {
	switch {
	case n == nil || offset <= 0:
		return 0
	case offset >= n.length:
		return n.newlines
	case n.isLeaf():
		return strings.Count(n.leaf[:offset], "\n")
	case offset <= n.left.length:
		return newlinesBefore(n.left, offset)
	}
	return n.left.newlines + newlinesBefore(n.right, offset-n.left.length)
}
