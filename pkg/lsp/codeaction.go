package lsp

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/codeaction"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// TextDocumentCodeAction asks for the actions available at the cursor. The
// context carries every diagnostic touching the cursor's line.
func (b *Bridge) TextDocumentCodeAction(ctx context.Context, meta kakoune.Meta, params editor.CodeActionsParams) error {
	kakPos, err := params.KakounePosition()
	if err != nil {
		return err
	}
	lspPos, err := b.session.ResolvePosition(meta.Buffile, kakPos)
	if err != nil {
		return errors.Errorf("code actions aborted: %w", err)
	}

	req := protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.URIFromPath(meta.Buffile)},
		Range:        protocol.Range{Start: lspPos, End: lspPos},
		Context: protocol.CodeActionContext{
			Diagnostics: position.DiagnosticsOnLine(b.session.DiagnosticsFor(meta.Buffile), lspPos.Line),
		},
	}

	perform := params.PerformCodeAction
	b.dispatcher.Dispatch(ctx, meta, "textDocument/codeAction", req, func(ctx context.Context, meta kakoune.Meta, response json.RawMessage) {
		if err := b.EditorCodeActions(ctx, meta, perform, response); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("rendering code actions")
		}
	})
	return nil
}

// EditorCodeActions shows the menu, or performs it right away. A null
// response leaves the editor untouched.
func (b *Bridge) EditorCodeActions(ctx context.Context, meta kakoune.Meta, performImmediately bool, response json.RawMessage) error {
	if response == nil {
		return nil
	}

	var items protocol.CodeActionResponse
	if err := json.Unmarshal(response, &items); err != nil {
		return errors.Errorf("decoding code action response: %w", err)
	}

	res, err := codeaction.Build(ctx, items, performImmediately)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Int("rendered", res.Rendered).
			Int("skipped", res.Skipped).
			Msg("some code actions could not be offered")
	}

	b.exec(ctx, meta, res.Directive)
	return nil
}
