// Package editor receives requests from the editor. Each request is a small
// TOML document: the method, the editor metadata and method specific params.
package editor

import (
	"bytes"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/position"
	"gitlab.com/tozd/go/errors"
)

const (
	MethodHover              = "textDocument/hover"
	MethodCodeAction         = "textDocument/codeAction"
	MethodExecuteCommand     = "workspace/executeCommand"
	MethodApplyWorkspaceEdit = "apply-workspace-edit"
	MethodDidOpen            = "textDocument/didOpen"
	MethodDidChange          = "textDocument/didChange"
	MethodDidClose           = "textDocument/didClose"
	MethodExit               = "exit"
)

type Request struct {
	Meta   kakoune.Meta   `toml:"meta"`
	Method string         `toml:"method"`
	Params toml.Primitive `toml:"params"`

	md toml.MetaData
}

// Decode reads one request. The params table is decoded later, once the
// method is known.
func Decode(r io.Reader) (*Request, error) {
	var req Request
	md, err := toml.NewDecoder(r).Decode(&req)
	if err != nil {
		return nil, errors.Errorf("decoding editor request: %w", err)
	}
	if req.Method == "" {
		return nil, errors.New("editor request has no method")
	}
	req.md = md
	return &req, nil
}

func DecodeBytes(data []byte) (*Request, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeParams decodes the params table into v. A request without params
// leaves v untouched.
func (r *Request) DecodeParams(v any) error {
	if !r.md.IsDefined("params") {
		return nil
	}
	if err := r.md.PrimitiveDecode(r.Params, v); err != nil {
		return errors.Errorf("decoding params of %s: %w", r.Method, err)
	}
	return nil
}

type PositionParams struct {
	Position string `toml:"position"`
}

func (p PositionParams) KakounePosition() (position.KakounePosition, error) {
	return position.ParseKakounePosition(p.Position)
}

type CodeActionsParams struct {
	Position          string `toml:"position"`
	PerformCodeAction bool   `toml:"perform_code_action"`
}

func (p CodeActionsParams) KakounePosition() (position.KakounePosition, error) {
	return position.ParseKakounePosition(p.Position)
}

// ExecuteCommandParams carries the arguments exactly as they were emitted in
// an execute-command directive, still double encoded.
type ExecuteCommandParams struct {
	Command   string `toml:"command"`
	Arguments string `toml:"arguments"`
}

// ApplyWorkspaceEditParams carries a double encoded workspace edit.
type ApplyWorkspaceEditParams struct {
	Edit string `toml:"edit"`
}

// DraftParams carries the full buffer content.
type DraftParams struct {
	Draft string `toml:"draft"`
}
