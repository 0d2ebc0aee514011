package lsp

import (
	"context"
	"encoding/json"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/kaklsp/pkg/codeaction"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// ExecuteCommand runs a command picked from the code action menu. The
// arguments arrive exactly as the menu entry carried them.
func (b *Bridge) ExecuteCommand(ctx context.Context, meta kakoune.Meta, params editor.ExecuteCommandParams) error {
	if params.Command == "" {
		return errors.New("execute-command without a command")
	}

	var args []json.RawMessage
	if params.Arguments != "" {
		if err := codeaction.DoubleDecode(params.Arguments, &args); err != nil {
			return errors.Errorf("decoding arguments of %q: %w", params.Command, err)
		}
	}

	req := protocol.ExecuteCommandParams{Command: params.Command, Arguments: args}
	b.dispatcher.Dispatch(ctx, meta, "workspace/executeCommand", req, func(ctx context.Context, _ kakoune.Meta, response json.RawMessage) {
		zerolog.Ctx(ctx).Debug().Str("command", params.Command).RawJSON("result", orNull(response)).Msg("command executed")
	})
	return nil
}

// ApplyWorkspaceEdit applies an edit picked from the code action menu.
func (b *Bridge) ApplyWorkspaceEdit(ctx context.Context, meta kakoune.Meta, params editor.ApplyWorkspaceEditParams) error {
	var edit protocol.WorkspaceEdit
	if err := codeaction.DoubleDecode(params.Edit, &edit); err != nil {
		return errors.Errorf("decoding workspace edit: %w", err)
	}
	return b.applyEdit(ctx, meta, &edit)
}

// applyEdit applies every document change of edit. Buffers the bridge tracks
// are replaced in the editor and resynchronized with the server; any other
// file is rewritten in place.
func (b *Bridge) applyEdit(ctx context.Context, meta kakoune.Meta, edit *protocol.WorkspaceEdit) error {
	changes := edit.Edits()

	uris := make([]protocol.DocumentURI, 0, len(changes))
	for uri := range changes {
		uris = append(uris, uri)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })

	var errs error
	for _, uri := range uris {
		if err := b.applyDocumentEdits(ctx, meta, uri.Path(), changes[uri]); err != nil {
			errs = multierr.Append(errs, errors.Errorf("editing %s: %w", uri.Path(), err))
		}
	}
	return errs
}

func (b *Bridge) applyDocumentEdits(ctx context.Context, meta kakoune.Meta, path string, edits []protocol.TextEdit) error {
	enc := b.session.OffsetEncoding()

	if doc, ok := b.session.Document(path); ok {
		text, err := position.ApplyEdits(doc.Text, edits, enc)
		if err != nil {
			return err
		}
		updated, err := b.session.UpdateDocument(path, doc.Version+1, text)
		if err != nil {
			return err
		}
		if err := b.notifyChange(ctx, updated.URI(), updated.Version, updated.Text); err != nil {
			return err
		}

		target := meta
		target.Buffile = updated.Path
		b.exec(ctx, target, kakoune.ReplaceBuffer(updated.Path, updated.Text))
		return nil
	}

	info, err := b.fs.Stat(path)
	if err != nil {
		return errors.Errorf("reading file: %w", err)
	}
	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return errors.Errorf("reading file: %w", err)
	}
	text, err := position.ApplyEdits(string(data), edits, enc)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(b.fs, path, []byte(text), info.Mode()&os.ModePerm); err != nil {
		return errors.Errorf("writing file: %w", err)
	}

	zerolog.Ctx(ctx).Info().Str("path", path).Int("edits", len(edits)).Msg("edited file on disk")
	return nil
}

func orNull(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return json.RawMessage("null")
	}
	return raw
}
