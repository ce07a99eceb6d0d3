package server

import (
	"encoding/json"
	"reflect"

	"fortio.org/safecast"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kitten/prosemd-lsp/internal/check"
	"github.com/kitten/prosemd-lsp/internal/document"
	"github.com/kitten/prosemd-lsp/internal/suggest"
)

func toDiagnostic(doc *document.Document, ts suggest.TextSuggestion) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityWarning
	if check.IsError(ts.Category) {
		severity = protocol.DiagnosticSeverityError
	}

	d := protocol.Diagnostic{
		Range:    toProtocolRange(doc, ts.Start, ts.End),
		Severity: &severity,
		Message:  ts.Message,
		Data:     ts,
	}
	if ts.Source != "" {
		d.Code = &protocol.IntegerOrString{Value: ts.Source}
	}
	if ts.Category != "" {
		category := ts.Category
		d.Source = &category
	}
	return d
}

// suggestionFromData recovers the TextSuggestion a diagnostic was built from.
// Clients send data back as plain JSON, so it is re-decoded.
func suggestionFromData(data any) (suggest.TextSuggestion, bool) {
	if data == nil {
		return suggest.TextSuggestion{}, false
	}
	if ts, ok := data.(suggest.TextSuggestion); ok {
		return ts, true
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return suggest.TextSuggestion{}, false
	}
	var ts suggest.TextSuggestion
	if err := json.Unmarshal(raw, &ts); err != nil {
		log.Debugf("ignoring diagnostic data: %v", err)
		return suggest.TextSuggestion{}, false
	}
	return ts, true
}

// remember records the diagnostics published for uri and reports whether
// they differ from the previous publication.
func (s *Server) remember(uri string, diagnostics []protocol.Diagnostic) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.published[uri]; ok && reflect.DeepEqual(prev, diagnostics) {
		return false
	}
	s.published[uri] = diagnostics
	return true
}

func lspVersion(version int32) *protocol.UInteger {
	v, err := safecast.Conv[protocol.UInteger](version)
	if err != nil {
		return nil
	}
	return &v
}
