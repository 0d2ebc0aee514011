package session

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/walteh/kaklsp/pkg/lsp/protocol"
)

// Document is the bridge's copy of a buffer as last synchronized with the
// language server.
type Document struct {
	Path       string
	LanguageID string
	Version    int32
	Text       string
}

func (d *Document) URI() protocol.DocumentURI {
	return protocol.URIFromPath(d.Path)
}

// DocumentStore holds open documents keyed by their cleaned path.
type DocumentStore struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		store: &sync.Map{},
	}
}

// normalizePath accepts either a buffer path or a file URI.
func normalizePath(p string) string {
	if strings.HasPrefix(p, "file:") {
		p = protocol.DocumentURI(p).Path()
	}
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}

func (m *DocumentStore) Get(path string) (*Document, bool) {
	content, ok := m.store.Load(normalizePath(path))
	if !ok {
		return nil, false
	}
	doc, ok := content.(*Document)
	return doc, ok
}

func (m *DocumentStore) Store(doc *Document) {
	doc.Path = normalizePath(doc.Path)
	m.store.Store(doc.Path, doc)
}

func (m *DocumentStore) Delete(path string) bool {
	_, loaded := m.store.LoadAndDelete(normalizePath(path))
	return loaded
}

// All returns the open documents sorted by path.
func (m *DocumentStore) All() []*Document {
	var docs []*Document
	m.store.Range(func(_, value any) bool {
		docs = append(docs, value.(*Document))
		return true
	})
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs
}
