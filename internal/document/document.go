// Package document couples the text of an open document with its syntax tree.
//
// A Document is an immutable snapshot. Applying edits produces a new snapshot
// whose rope and tree share structure with the old one, so readers holding the
// previous snapshot are never affected by writers.
package document

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fortio.org/safecast"
	"github.com/tliron/commonlog"

	"github.com/kitten/prosemd-lsp/internal/buffer"
	"github.com/kitten/prosemd-lsp/internal/parser"
)

var log = commonlog.GetLogger("prosemd.document")

// ErrPositionOutOfRange is returned for positions past the end of the document.
var ErrPositionOutOfRange = errors.New("position out of range")

// Position is a zero-based line and UTF-16 column, as sent by editors.
type Position struct {
	Line      uint32
	Character uint32
}

// Range spans [Start, End) in editor positions.
type Range struct {
	Start Position
	End   Position
}

// Change replaces Range with Text. A nil Range replaces the whole document.
type Change struct {
	Range *Range
	Text  string
}

// Document is an immutable snapshot of an open Markdown file with its syntax
// tree. Apply returns a new snapshot.
type Document struct {
	version int32
	text    *buffer.Rope
	tree    *parser.Tree
	parser  *parser.Parser

	rootOnce sync.Once
	root     *parser.Node
}

// Open parses text into a new document using p. The document owns p from now
// on; Close releases it.
func Open(ctx context.Context, p *parser.Parser, version int32, text string) (*Document, error) {
	rope := buffer.New(text)
	tree, err := p.Parse(ctx, rope, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return &Document{version: version, text: rope, tree: tree, parser: p}, nil
}

func (d *Document) Version() int32 { return d.version }

func (d *Document) Text() *buffer.Rope { return d.text }

func (d *Document) String() string { return d.text.String() }

// Root returns the node view of the document's syntax tree.
func (d *Document) Root() *parser.Node {
	d.rootOnce.Do(func() {
		d.root = d.tree.Root(d.text)
	})
	return d.root
}

// Close releases the parser shared by every snapshot of this document.
func (d *Document) Close() error {
	return d.parser.Close()
}

// Offset converts an editor position into a byte offset.
func (d *Document) Offset(pos Position) (int, error) {
	off, err := d.text.OffsetOfPosition(int(pos.Line), int(pos.Character))
	if err != nil {
		return 0, fmt.Errorf("%w: %d:%d", ErrPositionOutOfRange, pos.Line, pos.Character)
	}
	return off, nil
}

// Position converts a byte offset into an editor position.
func (d *Document) Position(offset int) Position {
	line, col := d.text.PositionOfOffset(offset)
	return Position{Line: safecast.MustConv[uint32](line), Character: safecast.MustConv[uint32](col)}
}

// Apply folds changes over d in order and returns the resulting snapshot with
// the given version. If any change fails, no snapshot is produced and d stays
// current.
func (d *Document) Apply(ctx context.Context, version int32, changes []Change) (*Document, error) {
	doc := d
	for i, c := range changes {
		next, err := doc.apply(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("change %d: %w", i, err)
		}
		doc = next
	}
	if doc == d {
		doc = &Document{text: d.text, tree: d.tree, parser: d.parser}
	}
	doc.version = version
	return doc, nil
}

func (d *Document) apply(ctx context.Context, c Change) (*Document, error) {
	if c.Range == nil {
		rope := buffer.New(c.Text)
		tree, err := d.parser.Parse(ctx, rope, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		return &Document{version: d.version, text: rope, tree: tree, parser: d.parser}, nil
	}

	// Resolve both ends before touching anything.
	start, err := d.Offset(c.Range.Start)
	if err != nil {
		return nil, err
	}
	end, err := d.Offset(c.Range.End)
	if err != nil {
		return nil, err
	}
	if end < start {
		return nil, fmt.Errorf("%w: end %d:%d precedes start %d:%d", ErrPositionOutOfRange,
			c.Range.End.Line, c.Range.End.Character, c.Range.Start.Line, c.Range.Start.Character)
	}

	rope, err := d.text.Edit(start, end, c.Text)
	if err != nil {
		return nil, err
	}
	newEnd := start + len(c.Text)

	startRow, startCol := d.text.Point(start)
	oldRow, oldCol := d.text.Point(end)
	newRow, newCol := rope.Point(newEnd)
	edited, err := d.tree.Edit(parser.Edit{
		StartByte:   start,
		OldEndByte:  end,
		NewEndByte:  newEnd,
		StartPoint:  parser.Point{Row: startRow, Column: startCol},
		OldEndPoint: parser.Point{Row: oldRow, Column: oldCol},
		NewEndPoint: parser.Point{Row: newRow, Column: newCol},
	})
	if err != nil {
		return nil, err
	}

	tree, err := d.parser.Parse(ctx, rope, edited)
	if err != nil {
		return nil, fmt.Errorf("failed to reparse document: %w", err)
	}
	log.Debugf("applied edit [%d, %d) -> %d bytes", start, end, len(c.Text))
	return &Document{version: d.version, text: rope, tree: tree, parser: d.parser}, nil
}
