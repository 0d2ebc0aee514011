package lsp

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"go.lsp.dev/jsonrpc2"
)

// ServerHandler answers the requests and notifications the server sends. It
// runs on the connection's read goroutine, so anything touching the session is
// posted to the dispatcher loop.
func (b *Bridge) ServerHandler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch method := req.Method(); method {
		case "textDocument/publishDiagnostics":
			var params protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("decoding published diagnostics")
				return reply(ctx, nil, nil)
			}
			b.dispatcher.Post(func(ctx context.Context) {
				b.PublishDiagnostics(ctx, params)
			})
			return reply(ctx, nil, nil)

		case "window/logMessage", "window/showMessage":
			var params LogMessageParams
			if err := json.Unmarshal(req.Params(), &params); err == nil {
				logServerMessage(ctx, method, params)
			}
			return reply(ctx, nil, nil)

		case "workspace/applyEdit":
			var params protocol.ApplyWorkspaceEditParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.Errorf(jsonrpc2.InvalidParams, "decoding applyEdit params: %v", err))
			}
			posted := b.dispatcher.Post(func(loopCtx context.Context) {
				result := b.ServerApplyEdit(loopCtx, params)
				if err := reply(ctx, result, nil); err != nil {
					zerolog.Ctx(loopCtx).Error().Err(err).Msg("replying to workspace/applyEdit")
				}
			})
			if !posted {
				return reply(ctx, protocol.ApplyWorkspaceEditResult{FailureReason: "bridge is shutting down"}, nil)
			}
			return nil

		case "workspace/configuration":
			var params ConfigurationParams
			_ = json.Unmarshal(req.Params(), &params)
			return reply(ctx, make([]any, len(params.Items)), nil)

		case "window/workDoneProgress/create",
			"window/showMessageRequest",
			"client/registerCapability",
			"client/unregisterCapability",
			"$/progress",
			"$/logTrace",
			"telemetry/event":
			return reply(ctx, nil, nil)

		default:
			zerolog.Ctx(ctx).Debug().Str("method", method).Msg("unhandled server message")
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
	}
}

// PublishDiagnostics replaces the diagnostics of the published document.
func (b *Bridge) PublishDiagnostics(ctx context.Context, params protocol.PublishDiagnosticsParams) {
	path := params.URI.Path()
	b.session.SetDiagnostics(path, params.Diagnostics)

	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Int("count", len(params.Diagnostics)).
		Msg("diagnostics published")
}

// ServerApplyEdit applies an edit the server pushed, addressing the editor
// client that made the last request.
func (b *Bridge) ServerApplyEdit(ctx context.Context, params protocol.ApplyWorkspaceEditParams) protocol.ApplyWorkspaceEditResult {
	if err := b.applyEdit(ctx, b.lastMeta, &params.Edit); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("label", params.Label).Msg("applying server edit")
		return protocol.ApplyWorkspaceEditResult{Applied: false, FailureReason: err.Error()}
	}
	return protocol.ApplyWorkspaceEditResult{Applied: true}
}
