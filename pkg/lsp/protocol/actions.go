package protocol

import (
	"bytes"
	"encoding/json"

	"gitlab.com/tozd/go/errors"
)

type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

type TextDocumentEdit struct {
	TextDocument VersionedTextDocumentIdentifier `json:"textDocument"`
	Edits        []TextEdit                      `json:"edits"`
}

// WorkspaceEdit describes text changes across documents. Resource operations
// (create/rename/delete) are not supported and fail to decode.
type WorkspaceEdit struct {
	Changes         map[DocumentURI][]TextEdit `json:"changes,omitempty"`
	DocumentChanges []TextDocumentEdit         `json:"documentChanges,omitempty"`
}

// Edits flattens both representations into a per-document list. When
// documentChanges is present it wins, as clients are expected to prefer it.
func (w *WorkspaceEdit) Edits() map[DocumentURI][]TextEdit {
	out := make(map[DocumentURI][]TextEdit)
	if len(w.DocumentChanges) > 0 {
		for _, dc := range w.DocumentChanges {
			out[dc.TextDocument.URI] = append(out[dc.TextDocument.URI], dc.Edits...)
		}
		return out
	}
	for uri, edits := range w.Changes {
		out[uri] = append(out[uri], edits...)
	}
	return out
}

type Command struct {
	Title     string            `json:"title"`
	Command   string            `json:"command"`
	Arguments []json.RawMessage `json:"arguments,omitempty"`
}

type CodeAction struct {
	Title       string         `json:"title"`
	Kind        string         `json:"kind,omitempty"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
	IsPreferred bool           `json:"isPreferred,omitempty"`
	Edit        *WorkspaceEdit `json:"edit,omitempty"`
	Command     *Command       `json:"command,omitempty"`
}

// CommandOrCodeAction is one element of a textDocument/codeAction response.
// The only implementations are *Command and *CodeAction.
type CommandOrCodeAction interface {
	isCommandOrCodeAction()
}

func (*Command) isCommandOrCodeAction()    {}
func (*CodeAction) isCommandOrCodeAction() {}

// CodeActionResponse is the decoded result of textDocument/codeAction.
type CodeActionResponse []CommandOrCodeAction

func (r *CodeActionResponse) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return errors.Errorf("decoding code action list: %w", err)
	}

	out := make(CodeActionResponse, 0, len(raws))
	for i, raw := range raws {
		item, err := decodeCommandOrCodeAction(raw)
		if err != nil {
			return errors.Errorf("decoding code action %d: %w", i, err)
		}
		out = append(out, item)
	}
	*r = out
	return nil
}

// A Command is told apart from a CodeAction by its "command" member being a
// string; on a CodeAction that member is an object.
func decodeCommandOrCodeAction(raw json.RawMessage) (CommandOrCodeAction, error) {
	var probe struct {
		Command json.RawMessage `json:"command"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}

	if cmd := bytes.TrimSpace(probe.Command); len(cmd) > 0 && cmd[0] == '"' {
		var c Command
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, err
		}
		return &c, nil
	}

	var a CodeAction
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
