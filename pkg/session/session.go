// Package session owns the per-server state of the bridge: open documents,
// the diagnostics last published for each buffer and the request dispatcher.
package session

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/config"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Session is the state shared by one language server and the buffers it
// serves. It is only touched from the dispatcher loop, except for documents
// which may be read from anywhere.
type Session struct {
	ID       uuid.UUID
	Config   *config.Config
	Language *config.LanguageConfig
	Root     string

	encoding    position.OffsetEncoding
	diagnostics map[string][]protocol.Diagnostic
	documents   *DocumentStore
}

func New(cfg *config.Config, lang *config.LanguageConfig, root string) *Session {
	if cfg == nil {
		cfg = config.Default()
	}
	if lang == nil {
		lang = &config.LanguageConfig{}
	}
	return &Session{
		ID:          uuid.New(),
		Config:      cfg,
		Language:    lang,
		Root:        root,
		encoding:    cfg.OffsetEncoding(),
		diagnostics: map[string][]protocol.Diagnostic{},
		documents:   NewDocumentStore(),
	}
}

// WithContext attaches a logger tagged with the session to ctx.
func (s *Session) WithContext(ctx context.Context) context.Context {
	return zerolog.Ctx(ctx).With().
		Str("session", s.ID.String()).
		Str("language", s.Language.ID).
		Logger().WithContext(ctx)
}

// ForcePlaintext reports whether this session's server mislabels plain text
// as markdown.
func (s *Session) ForcePlaintext() bool {
	return s.Config.ForcePlaintext(s.Language.ID)
}

func (s *Session) OffsetEncoding() position.OffsetEncoding {
	return s.encoding
}

// SetOffsetEncoding overrides the configured encoding, once the server has
// announced the one it uses.
func (s *Session) SetOffsetEncoding(enc position.OffsetEncoding) {
	s.encoding = enc
}

// SetDiagnostics replaces everything known about path with diags.
func (s *Session) SetDiagnostics(path string, diags []protocol.Diagnostic) {
	key := normalizePath(path)
	if len(diags) == 0 {
		delete(s.diagnostics, key)
		return
	}
	s.diagnostics[key] = slices.Clone(diags)
}

// DiagnosticsFor returns the diagnostics of path in the order the server sent
// them. The result is empty, never an error, for buffers without any.
func (s *Session) DiagnosticsFor(path string) []protocol.Diagnostic {
	return s.diagnostics[normalizePath(path)]
}

func (s *Session) OpenDocument(path, languageID string, version int32, text string) *Document {
	doc := &Document{Path: path, LanguageID: languageID, Version: version, Text: text}
	s.documents.Store(doc)
	return doc
}

// UpdateDocument replaces the text of an open document.
func (s *Session) UpdateDocument(path string, version int32, text string) (*Document, error) {
	doc, ok := s.documents.Get(path)
	if !ok {
		return nil, errors.Errorf("document %q is not open", path)
	}
	updated := &Document{Path: doc.Path, LanguageID: doc.LanguageID, Version: version, Text: text}
	s.documents.Store(updated)
	return updated, nil
}

// CloseDocument forgets path and its diagnostics. It reports whether the
// document was open.
func (s *Session) CloseDocument(path string) bool {
	delete(s.diagnostics, normalizePath(path))
	return s.documents.Delete(path)
}

func (s *Session) Document(path string) (*Document, bool) {
	return s.documents.Get(path)
}

func (s *Session) Documents() []*Document {
	return s.documents.All()
}

// ResolvePosition converts an editor position in path into protocol space. It
// fails when the bridge has no synchronized copy of the buffer.
func (s *Session) ResolvePosition(path string, pos position.KakounePosition) (protocol.Position, error) {
	doc, ok := s.documents.Get(path)
	if !ok {
		return protocol.Position{}, errors.Errorf("buffer %q is not synchronized with the server", path)
	}
	p, err := position.ToLSP(doc.Text, pos, s.OffsetEncoding())
	if err != nil {
		return protocol.Position{}, errors.Errorf("resolving %s in %q: %w", pos, path, err)
	}
	return p, nil
}
