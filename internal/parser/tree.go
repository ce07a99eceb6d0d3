package parser

import (
	"fmt"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
)

// Point is a row and byte column in the source.
type Point struct {
	Row    int
	Column int
}

// Edit describes a replacement of the bytes [StartByte, OldEndByte) with new
// text ending at NewEndByte.
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

func (e Edit) input() (sitter.EditInput, error) {
	var in sitter.EditInput
	var err error
	conv := func(dst *uint32, v int) {
		if err != nil {
			return
		}
		*dst, err = safecast.Conv[uint32](v)
	}
	conv(&in.StartIndex, e.StartByte)
	conv(&in.OldEndIndex, e.OldEndByte)
	conv(&in.NewEndIndex, e.NewEndByte)
	conv(&in.StartPoint.Row, e.StartPoint.Row)
	conv(&in.StartPoint.Column, e.StartPoint.Column)
	conv(&in.OldEndPoint.Row, e.OldEndPoint.Row)
	conv(&in.OldEndPoint.Column, e.OldEndPoint.Column)
	conv(&in.NewEndPoint.Row, e.NewEndPoint.Row)
	conv(&in.NewEndPoint.Column, e.NewEndPoint.Column)
	if err != nil {
		return sitter.EditInput{}, fmt.Errorf("invalid edit %+v: %w", e, err)
	}
	return in, nil
}

// Tree is a parsed Markdown document: one block tree plus one inline tree per
// inline-bearing block node, keyed by that node's start byte.
type Tree struct {
	block   *sitter.Tree
	inlines map[uint32]*inlineTree
}

// inlineTree is the inline parse of one host and the ranges it was parsed over.
type inlineTree struct {
	tree   *sitter.Tree
	ranges []sitter.Range
}

// Edit returns a copy of the tree adjusted for e, ready to be passed to
// Parser.Parse as the previous tree. The receiver is not modified.
func (t *Tree) Edit(e Edit) (*Tree, error) {
	in, err := e.input()
	if err != nil {
		return nil, err
	}

	edited := &Tree{
		block:   t.block.Copy(),
		inlines: make(map[uint32]*inlineTree, len(t.inlines)),
	}
	edited.block.Edit(in)

	for start, it := range t.inlines {
		key, ok := shift(start, in)
		if !ok {
			continue
		}
		ranges := make([]sitter.Range, 0, len(it.ranges))
		for _, r := range it.ranges {
			lo, okLo := shift(r.StartByte, in)
			hi, okHi := shift(r.EndByte, in)
			if !okLo || !okHi {
				ranges = nil
				break
			}
			r.StartByte, r.EndByte = lo, hi
			ranges = append(ranges, r)
		}
		if ranges == nil {
			continue
		}
		c := it.tree.Copy()
		c.Edit(in)
		edited.inlines[key] = &inlineTree{tree: c, ranges: ranges}
	}
	return edited, nil
}

// shift maps a byte offset of the old text through an edit. Offsets strictly
// inside the replaced bytes have no counterpart.
func shift(offset uint32, in sitter.EditInput) (uint32, bool) {
	switch {
	case offset <= in.StartIndex:
		return offset, true
	case offset >= in.OldEndIndex:
		return offset - in.OldEndIndex + in.NewEndIndex, true
	}
	return 0, false
}

// HasError reports whether the block tree contains syntax errors.
func (t *Tree) HasError() bool {
	return t.block.RootNode().HasError()
}
