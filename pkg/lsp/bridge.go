// Package lsp connects editor requests to a language server: it builds the
// outgoing requests, renders the responses into editor directives and owns the
// JSON-RPC link to the server process.
package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/session"
	"gitlab.com/tozd/go/errors"
)

// Bridge handles editor requests for one session. Every method except
// Enqueue runs on the dispatcher loop.
type Bridge struct {
	session    *session.Session
	dispatcher *session.Dispatcher
	execer     kakoune.Execer
	fs         afero.Fs

	// lastMeta addresses directives that originate from the server rather
	// than from an editor request.
	lastMeta kakoune.Meta

	// OnExit is called when the editor asks the bridge to stop.
	OnExit func()
}

func NewBridge(s *session.Session, d *session.Dispatcher, execer kakoune.Execer, fs afero.Fs) *Bridge {
	return &Bridge{
		session:    s,
		dispatcher: d,
		execer:     execer,
		fs:         fs,
	}
}

func (b *Bridge) Session() *session.Session {
	return b.session
}

// Enqueue moves an editor request onto the dispatcher loop. It is safe to call
// from any goroutine.
func (b *Bridge) Enqueue(ctx context.Context, req *editor.Request) {
	if !b.dispatcher.Post(func(ctx context.Context) { b.Handle(ctx, req) }) {
		zerolog.Ctx(ctx).Warn().Str("method", req.Method).Msg("bridge stopped, dropping editor request")
	}
}

func handle[P any](ctx context.Context, req *editor.Request, fn func(context.Context, kakoune.Meta, P) error) error {
	var params P
	if err := req.DecodeParams(&params); err != nil {
		return err
	}
	return fn(ctx, req.Meta, params)
}

// Handle routes one editor request. Failures are logged; the editor gets no
// partial output.
func (b *Bridge) Handle(ctx context.Context, req *editor.Request) {
	ctx = zerolog.Ctx(ctx).With().
		Str("method", req.Method).
		Str("buffile", req.Meta.Buffile).
		Logger().WithContext(ctx)

	b.lastMeta = req.Meta

	var err error
	switch req.Method {
	case editor.MethodHover:
		err = handle(ctx, req, b.TextDocumentHover)
	case editor.MethodCodeAction:
		err = handle(ctx, req, b.TextDocumentCodeAction)
	case editor.MethodExecuteCommand:
		err = handle(ctx, req, b.ExecuteCommand)
	case editor.MethodApplyWorkspaceEdit:
		err = handle(ctx, req, b.ApplyWorkspaceEdit)
	case editor.MethodDidOpen:
		err = handle(ctx, req, b.DidOpen)
	case editor.MethodDidChange:
		err = handle(ctx, req, b.DidChange)
	case editor.MethodDidClose:
		err = b.DidClose(ctx, req.Meta)
	case editor.MethodExit:
		if b.OnExit != nil {
			b.OnExit()
		}
	default:
		err = errors.Errorf("unsupported editor method %q", req.Method)
	}

	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("handling editor request")
	}
}

// exec hands d to the editor. Delivery failures are only logged.
func (b *Bridge) exec(ctx context.Context, meta kakoune.Meta, d kakoune.Directive) {
	if err := b.execer.Exec(ctx, meta, d); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Stringer("directive", d.Kind).Msg("sending directive to editor")
	}
}
