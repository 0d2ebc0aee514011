package lsp

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/hover"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// TextDocumentHover asks the server about the symbol under the cursor.
func (b *Bridge) TextDocumentHover(ctx context.Context, meta kakoune.Meta, params editor.PositionParams) error {
	kakPos, err := params.KakounePosition()
	if err != nil {
		return err
	}
	lspPos, err := b.session.ResolvePosition(meta.Buffile, kakPos)
	if err != nil {
		return errors.Errorf("hover aborted: %w", err)
	}

	req := protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.URIFromPath(meta.Buffile)},
			Position:     lspPos,
		},
	}

	b.dispatcher.Dispatch(ctx, meta, "textDocument/hover", req, func(ctx context.Context, meta kakoune.Meta, response json.RawMessage) {
		if err := b.EditorHover(ctx, meta, kakPos, lspPos, response); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("rendering hover")
		}
	})
	return nil
}

// EditorHover shows the hover response together with the diagnostics under the
// cursor. A null response still shows the diagnostics.
func (b *Bridge) EditorHover(ctx context.Context, meta kakoune.Meta, kakPos position.KakounePosition, lspPos protocol.Position, response json.RawMessage) error {
	var h *protocol.Hover
	if response != nil {
		h = &protocol.Hover{}
		if err := json.Unmarshal(response, h); err != nil {
			return errors.Errorf("decoding hover response: %w", err)
		}
	}

	diags := position.DiagnosticsAtPoint(b.session.DiagnosticsFor(meta.Buffile), lspPos)

	d, ok := hover.Render(ctx, kakPos, h, diags, b.session.ForcePlaintext())
	if !ok {
		zerolog.Ctx(ctx).Debug().Stringer("position", kakPos).Msg("nothing to show")
		return nil
	}

	b.exec(ctx, meta, d)
	return nil
}
