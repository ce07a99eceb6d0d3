package suggest

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kitten/prosemd-lsp/internal/extract"
)

// piece is the part of a chunk covered by a suggestion.
type piece struct {
	chunk extract.TextChunk
	start int
	end   int
	clean []rune
}

// Reconcile locates s in the document that tr was extracted from. Its first
// replacement candidate becomes the primary fix; up to maxAlternatives further
// candidates are reconciled as alternatives. It returns false when the span
// does not touch any chunk.
func Reconcile(tr extract.TextRange, s Suggestion, maxAlternatives int) (TextSuggestion, bool) {
	pieces := slice(tr, s.Start, s.End)
	if len(pieces) == 0 {
		return TextSuggestion{}, false
	}

	ts := TextSuggestion{
		Source:       s.Rule,
		Message:      s.Message,
		Category:     s.IssueType,
		Start:        pieces[0].start,
		End:          pieces[len(pieces)-1].end,
		Replacements: []Replacement{},
	}
	if len(s.Replacements) == 0 {
		return ts, true
	}
	ts.Label = s.Replacements[0]
	ts.Replacements = reconcile(pieces, s.Replacements[0])
	for _, candidate := range s.Replacements[1:] {
		if len(ts.Alternatives) >= maxAlternatives {
			break
		}
		ts.Alternatives = append(ts.Alternatives, Alternative{
			Label:        candidate,
			Replacements: reconcile(pieces, candidate),
		})
	}
	return ts, true
}

// slice selects the chunks intersecting the clean span [from, to). An empty
// span selects the chunk containing the insertion point. Verbatim chunks are
// trimmed to the span exactly; the others keep their whole source range.
func slice(tr extract.TextRange, from, to int) []piece {
	runes := []rune(tr.CleanText)
	if from < 0 || to < from || to > len(runes) {
		return nil
	}

	var out []piece
	pos := 0
	for i, c := range tr.Chunks {
		chunkStart, chunkEnd := pos, pos+c.CleanLength
		pos = chunkEnd

		lo, hi := max(from, chunkStart), min(to, chunkEnd)
		if from == to {
			last := i == len(tr.Chunks)-1
			if from < chunkStart || from > chunkEnd || (from == chunkEnd && !last) {
				continue
			}
		} else if lo >= hi {
			continue
		}

		p := piece{chunk: c, start: c.Start, end: c.End, clean: runes[lo:hi]}
		if c.Verbatim() {
			p.start = c.Start + len(string(runes[chunkStart:lo]))
			p.end = p.start + len(string(runes[lo:hi]))
		}
		if from == to {
			p.clean = nil
			p.end = p.start
			return append(out, p)
		}
		out = append(out, p)
	}
	return out
}

type opKind int

const (
	kept opKind = iota
	removed
	added
)

type op struct {
	kind opKind
	r    rune
}

// diffOps computes a rune-level diff of from against to.
func diffOps(from, to []rune) []op {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	var ops []op
	for _, d := range dmp.DiffMainRunes(from, to, false) {
		kind := kept
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = removed
		case diffmatchpatch.DiffInsert:
			kind = added
		}
		for _, r := range d.Text {
			ops = append(ops, op{kind: kind, r: r})
		}
	}
	return ops
}

// tail hands out diff ops from the end of the script.
type tail struct {
	ops []op
	end int
}

// take returns the ops up to and including the n-th kept or removed op
// counted from the current end.
func (t *tail) take(n int) []op {
	i, count := t.end, 0
	for i > 0 && count < n {
		i--
		if t.ops[i].kind != added {
			count++
		}
	}
	out := t.ops[i:t.end]
	t.end = i
	return out
}

func (t *tail) rest() []op {
	out := t.ops[:t.end]
	t.end = 0
	return out
}

func reconcile(pieces []piece, candidate string) []Replacement {
	var from []rune
	for _, p := range pieces {
		from = append(from, p.clean...)
	}
	ops := diffOps(from, []rune(candidate))
	t := tail{ops: ops, end: len(ops)}

	perPiece := make([][]Replacement, len(pieces))
	for i := len(pieces) - 1; i >= 0; i-- {
		var own []op
		if i == 0 {
			own = t.rest()
		} else {
			own = t.take(len(pieces[i].clean))
		}
		perPiece[i] = replacements(pieces[i], own)
	}

	out := []Replacement{}
	for _, reps := range perPiece {
		out = append(out, reps...)
	}
	return out
}

func replacements(p piece, ops []op) []Replacement {
	changed, anyRemoved := false, false
	for _, o := range ops {
		switch o.kind {
		case removed:
			anyRemoved = true
			changed = true
		case added:
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if p.chunk.Verbatim() {
		lo, hi := 0, len(ops)
		prefix, suffix := 0, 0
		for lo < hi && ops[lo].kind == kept {
			prefix += utf8.RuneLen(ops[lo].r)
			lo++
		}
		for hi > lo && ops[hi-1].kind == kept {
			suffix += utf8.RuneLen(ops[hi-1].r)
			hi--
		}
		return []Replacement{{
			Replacement: newText(ops[lo:hi]),
			Start:       p.start + prefix,
			End:         p.end - suffix,
		}}
	}

	if anyRemoved {
		return []Replacement{{Replacement: newText(ops), Start: p.start, End: p.end}}
	}

	// Pure insertion around a chunk that is not verbatim: text added before its
	// first kept rune goes in front of it, everything else after it.
	var before, after strings.Builder
	seenKept := false
	for _, o := range ops {
		switch {
		case o.kind == kept:
			seenKept = true
		case seenKept:
			after.WriteRune(o.r)
		default:
			before.WriteRune(o.r)
		}
	}
	var out []Replacement
	if before.Len() > 0 {
		out = append(out, Replacement{Replacement: before.String(), Start: p.start, End: p.start})
	}
	if after.Len() > 0 {
		out = append(out, Replacement{Replacement: after.String(), Start: p.end, End: p.end})
	}
	return out
}

// newText is the text ops leave behind: kept and added runes in order.
func newText(ops []op) string {
	var sb strings.Builder
	for _, o := range ops {
		if o.kind != removed {
			sb.WriteRune(o.r)
		}
	}
	return sb.String()
}
