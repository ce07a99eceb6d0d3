package server

import (
	"errors"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kitten/prosemd-lsp/internal/document"
	"github.com/kitten/prosemd-lsp/internal/manager"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

// textDocumentCodeAction offers one quick fix per replacement candidate of
// every prosemd diagnostic in the request. Edits are computed against the
// current snapshot.
func (s *Server) textDocumentCodeAction(
	context *glsp.Context,
	params *protocol.CodeActionParams,
) (any, error) {
	uri := params.TextDocument.URI
	doc, err := s.manager.Get(uri)
	if errors.Is(err, manager.ErrNotOpen) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	actions := []protocol.CodeAction{}
	for _, diagnostic := range params.Context.Diagnostics {
		ts, ok := suggestionFromData(diagnostic.Data)
		if !ok {
			continue
		}
		for i, fix := range candidates(ts) {
			edits, ok := toTextEdits(doc, fix.Replacements)
			if !ok {
				log.Debugf("stale suggestion for %s, no actions", uri)
				break
			}
			if len(edits) == 0 {
				continue
			}
			kind := protocol.CodeActionKindQuickFix
			preferred := i == 0
			actions = append(actions, protocol.CodeAction{
				Title:       actionTitle(fix.Label, ts.Category),
				Kind:        &kind,
				Diagnostics: []protocol.Diagnostic{diagnostic},
				IsPreferred: &preferred,
				Edit: &protocol.WorkspaceEdit{
					Changes: map[protocol.DocumentUri][]protocol.TextEdit{uri: edits},
				},
			})
		}
	}
	return actions, nil
}

// candidates lists the primary fix followed by the alternatives.
func candidates(ts suggest.TextSuggestion) []suggest.Alternative {
	out := make([]suggest.Alternative, 0, 1+len(ts.Alternatives))
	out = append(out, suggest.Alternative{Label: ts.Label, Replacements: ts.Replacements})
	return append(out, ts.Alternatives...)
}

func actionTitle(label, category string) string {
	if label != "" {
		return fmt.Sprintf("Replace with %q", label)
	}
	if category == "" {
		category = "suggestion"
	}
	return "Autofix " + category
}

// toTextEdits converts byte-offset replacements into LSP edits. It fails if
// a replacement does not fit the document.
func toTextEdits(doc *document.Document, reps []suggest.Replacement) ([]protocol.TextEdit, bool) {
	size := doc.Text().Len()
	edits := make([]protocol.TextEdit, 0, len(reps))
	for _, r := range reps {
		if r.Start < 0 || r.End < r.Start || r.End > size {
			return nil, false
		}
		edits = append(edits, protocol.TextEdit{
			Range:   toProtocolRange(doc, r.Start, r.End),
			NewText: r.Replacement,
		})
	}
	return edits, true
}
