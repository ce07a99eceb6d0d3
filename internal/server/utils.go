package server

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kitten/prosemd-lsp/internal/document"
)

func toProtocolRange(doc *document.Document, start, end int) protocol.Range {
	return protocol.Range{
		Start: toProtocolPosition(doc.Position(start)),
		End:   toProtocolPosition(doc.Position(end)),
	}
}

func toProtocolPosition(p document.Position) protocol.Position {
	return protocol.Position{Line: p.Line, Character: p.Character}
}

func toDocumentRange(r protocol.Range) document.Range {
	return document.Range{
		Start: document.Position{Line: r.Start.Line, Character: r.Start.Character},
		End:   document.Position{Line: r.End.Line, Character: r.End.Character},
	}
}
