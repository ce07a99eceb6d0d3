package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/kitten/prosemd-lsp/internal/document"
	"github.com/kitten/prosemd-lsp/internal/parser"
)

var log = commonlog.GetLogger("prosemd.manager")

var (
	ErrNotOpen  = errors.New("document is not open")
	ErrConflict = errors.New("document changed concurrently")
)

// DocumentManager maps URIs to the current snapshot of each open document.
// The lock only guards the map; parsing happens outside of it.
type DocumentManager struct {
	mu   sync.RWMutex
	docs map[string]*document.Document
}

// NewDocumentManager creates an initialized DocumentManager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		docs: make(map[string]*document.Document),
	}
}

// Open parses text with a fresh parser and stores it as the snapshot for uri,
// replacing (and closing) any previous one.
func (dm *DocumentManager) Open(ctx context.Context, uri string, version int32, text string) (*document.Document, error) {
	doc, err := document.Open(ctx, parser.NewParser(), version, text)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", uri, err)
	}

	dm.mu.Lock()
	prev := dm.docs[uri]
	dm.docs[uri] = doc
	dm.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	log.Infof("opened %s (version %d)", uri, version)
	return doc, nil
}

// Get returns the current snapshot for uri.
func (dm *DocumentManager) Get(uri string) (*document.Document, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return doc, nil
}

// Update computes the next snapshot from the current one without holding the
// lock, then swaps it in. If another writer replaced the snapshot meanwhile,
// the result is discarded and ErrConflict is returned.
func (dm *DocumentManager) Update(
	uri string,
	fn func(*document.Document) (*document.Document, error),
) (*document.Document, error) {
	prev, err := dm.Get(uri)
	if err != nil {
		return nil, err
	}

	next, err := fn(prev)
	if err != nil {
		return nil, err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.docs[uri] != prev {
		return nil, fmt.Errorf("%w: %s", ErrConflict, uri)
	}
	dm.docs[uri] = next
	return next, nil
}

// Apply applies editor changes to the document at uri.
func (dm *DocumentManager) Apply(
	ctx context.Context,
	uri string,
	version int32,
	changes []document.Change,
) (*document.Document, error) {
	return dm.Update(uri, func(doc *document.Document) (*document.Document, error) {
		return doc.Apply(ctx, version, changes)
	})
}

// Release drops the document for uri and frees its parser.
func (dm *DocumentManager) Release(uri string) {
	dm.mu.Lock()
	doc, ok := dm.docs[uri]
	delete(dm.docs, uri)
	dm.mu.Unlock()

	if ok {
		doc.Close()
		log.Infof("closed %s", uri)
	}
}

// URIs lists the open documents in sorted order.
func (dm *DocumentManager) URIs() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	uris := make([]string, 0, len(dm.docs))
	for uri := range dm.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// CloseAll releases every document.
func (dm *DocumentManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var errs []error
	for uri, doc := range dm.docs {
		if err := doc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing parser for %s: %w", uri, err))
		}
	}
	dm.docs = make(map[string]*document.Document)
	return errors.Join(errs...)
}
