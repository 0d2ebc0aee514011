package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
)

func (b *Bridge) languageID(meta kakoune.Meta) string {
	if id := b.session.Language.ID; id != "" {
		return id
	}
	return meta.Filetype
}

// DidOpen starts tracking the buffer and tells the server about it.
func (b *Bridge) DidOpen(ctx context.Context, meta kakoune.Meta, params editor.DraftParams) error {
	doc := b.session.OpenDocument(meta.Buffile, b.languageID(meta), meta.Version, params.Draft)

	zerolog.Ctx(ctx).Debug().Int32("version", doc.Version).Msg("document opened")

	return b.dispatcher.Notify(ctx, "textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        doc.URI(),
			LanguageID: doc.LanguageID,
			Version:    doc.Version,
			Text:       doc.Text,
		},
	})
}

// DidChange sends the whole draft. A buffer the bridge has not seen yet is
// opened instead, and an unchanged draft is not sent at all.
func (b *Bridge) DidChange(ctx context.Context, meta kakoune.Meta, params editor.DraftParams) error {
	doc, ok := b.session.Document(meta.Buffile)
	if !ok {
		return b.DidOpen(ctx, meta, params)
	}
	if doc.Text == params.Draft {
		return nil
	}

	// versions must keep increasing even after edits the bridge applied itself
	updated, err := b.session.UpdateDocument(meta.Buffile, max(meta.Version, doc.Version+1), params.Draft)
	if err != nil {
		return err
	}

	return b.notifyChange(ctx, updated.URI(), updated.Version, updated.Text)
}

func (b *Bridge) notifyChange(ctx context.Context, uri protocol.DocumentURI, version int32, text string) error {
	return b.dispatcher.Notify(ctx, "textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	})
}

// DidClose forgets the buffer and its diagnostics.
func (b *Bridge) DidClose(ctx context.Context, meta kakoune.Meta) error {
	if !b.session.CloseDocument(meta.Buffile) {
		return nil
	}
	return b.dispatcher.Notify(ctx, "textDocument/didClose", protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.URIFromPath(meta.Buffile)},
	})
}
