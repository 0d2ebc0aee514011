package lsp

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
	"gitlab.com/tozd/go/errors"
)

const ClientName = "kaklsp"

// Initialize performs the initialize/initialized handshake for a workspace
// rooted at root.
func (s *Server) Initialize(ctx context.Context, root, version string, options any) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProcessID:             os.Getpid(),
		ClientInfo:            &protocol.ClientInfo{Name: ClientName, Version: version},
		RootURI:               protocol.URIFromPath(root),
		InitializationOptions: options,
		Capabilities:          clientCapabilities,
	}

	raw, err := s.Call(ctx, "initialize", params)
	if err != nil {
		return nil, err
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Errorf("decoding initialize result: %w", err)
	}
	s.Capabilities = result.Capabilities
	s.Info = result.ServerInfo

	if err := s.Notify(ctx, "initialized", protocol.InitializedParams{}); err != nil {
		return nil, err
	}

	event := zerolog.Ctx(ctx).Info().Str("root", root)
	if result.ServerInfo != nil {
		event = event.Str("server_name", result.ServerInfo.Name).Str("server_version", result.ServerInfo.Version)
	}
	event.Msg("language server initialized")

	return &result, nil
}

// PositionEncoding returns the encoding the server announced, if any.
func (s *Server) PositionEncoding() (position.OffsetEncoding, bool) {
	var caps struct {
		PositionEncoding string `json:"positionEncoding"`
		OffsetEncoding   string `json:"offsetEncoding"`
	}
	if len(s.Capabilities) == 0 || json.Unmarshal(s.Capabilities, &caps) != nil {
		return "", false
	}

	announced := caps.PositionEncoding
	if announced == "" {
		announced = caps.OffsetEncoding
	}
	if announced == "" {
		return "", false
	}

	enc, err := position.ParseOffsetEncoding(announced)
	if err != nil {
		return "", false
	}
	return enc, true
}
