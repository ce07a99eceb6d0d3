package server

import (
	"errors"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kitten/prosemd-lsp/internal/document"
	"github.com/kitten/prosemd-lsp/internal/manager"
	"github.com/kitten/prosemd-lsp/internal/scheduler"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if _, err := s.manager.Open(s.ctx, uri, params.TextDocument.Version, params.TextDocument.Text); err != nil {
		return err
	}
	s.scheduleDiagnostics(context.Notify, uri)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	changes, err := toChanges(params.ContentChanges)
	if err != nil {
		return err
	}
	if _, err := s.manager.Apply(s.ctx, uri, params.TextDocument.Version, changes); err != nil {
		return fmt.Errorf("unexpected error during edit: %w", err)
	}
	s.scheduleDiagnostics(context.Notify, uri)
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if s.scheduler != nil {
		s.scheduler.Cancel(uri)
	}
	s.manager.Release(uri)

	s.mu.Lock()
	delete(s.published, uri)
	s.mu.Unlock()
	publishDiagnostics(context.Notify, uri, nil, []protocol.Diagnostic{})
	return nil
}

func (s *Server) scheduleDiagnostics(notify glsp.NotifyFunc, uri string) {
	if s.scheduler == nil {
		log.Warningf("not initialized, skipping diagnostics for %s", uri)
		return
	}
	s.scheduler.Schedule(uri, scheduler.Task{
		Name:    "diagnostics " + uri,
		Execute: func() error { return s.diagnose(notify, uri) },
	})
}

// diagnose checks the current snapshot of uri and publishes the result,
// unless the snapshot was replaced while the engine was busy.
func (s *Server) diagnose(notify glsp.NotifyFunc, uri string) error {
	doc, err := s.manager.Get(uri)
	if errors.Is(err, manager.ErrNotOpen) {
		return nil
	}
	if err != nil {
		return err
	}

	suggestions, err := s.checker.Check(s.ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", uri, err)
	}

	if current, err := s.manager.Get(uri); err != nil || current != doc {
		log.Debugf("discarding diagnostics for superseded version %d of %s", doc.Version(), uri)
		return nil
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(suggestions))
	for _, ts := range suggestions {
		diagnostics = append(diagnostics, toDiagnostic(doc, ts))
	}

	if !s.remember(uri, diagnostics) {
		return nil
	}
	publishDiagnostics(notify, uri, lspVersion(doc.Version()), diagnostics)
	return nil
}

func publishDiagnostics(
	notify glsp.NotifyFunc,
	uri string,
	version *protocol.UInteger,
	diagnostics []protocol.Diagnostic,
) {
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     version,
		Diagnostics: diagnostics,
	})
}

func toChanges(events []any) ([]document.Change, error) {
	changes := make([]document.Change, 0, len(events))
	for _, raw := range events {
		switch ev := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			c := document.Change{Text: ev.Text}
			if ev.Range != nil {
				r := toDocumentRange(*ev.Range)
				c.Range = &r
			}
			changes = append(changes, c)
		case protocol.TextDocumentContentChangeEventWhole:
			changes = append(changes, document.Change{Text: ev.Text})
		default:
			return nil, fmt.Errorf("unexpected change event type %T", raw)
		}
	}
	return changes, nil
}
