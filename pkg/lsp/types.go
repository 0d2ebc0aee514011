package lsp

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// MessageType is the severity of window/logMessage and window/showMessage
// notifications.
type MessageType int

const (
	Error   MessageType = 1
	Warning MessageType = 2
	Info    MessageType = 3
	Log     MessageType = 4
	Debug   MessageType = 5
)

func (mt MessageType) String() string {
	switch mt {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Log:
		return "log"
	case Debug:
		return "debug"
	default:
		return "unknown"
	}
}

// Level maps the message type onto the bridge's own log levels.
func (mt MessageType) Level() zerolog.Level {
	switch mt {
	case Error:
		return zerolog.ErrorLevel
	case Warning:
		return zerolog.WarnLevel
	case Info:
		return zerolog.InfoLevel
	case Log, Debug:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

type LogMessageParams struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

type ConfigurationItem struct {
	ScopeURI string `json:"scopeUri,omitempty"`
	Section  string `json:"section,omitempty"`
}

type ConfigurationParams struct {
	Items []ConfigurationItem `json:"items"`
}

// clientCapabilities advertises what the bridge understands. Hover content
// may arrive as markdown, code actions as literals, and edits are applied
// through workspace/applyEdit.
var clientCapabilities = json.RawMessage(`{
	"workspace": {
		"applyEdit": true,
		"workspaceEdit": {"documentChanges": true},
		"executeCommand": {"dynamicRegistration": false},
		"configuration": true
	},
	"textDocument": {
		"synchronization": {"dynamicRegistration": false, "didSave": false},
		"hover": {"dynamicRegistration": false, "contentFormat": ["markdown", "plaintext"]},
		"codeAction": {
			"dynamicRegistration": false,
			"codeActionLiteralSupport": {
				"codeActionKind": {"valueSet": ["", "quickfix", "refactor", "refactor.extract", "refactor.inline", "refactor.rewrite", "source", "source.organizeImports"]}
			}
		},
		"publishDiagnostics": {"relatedInformation": false}
	},
	"general": {"positionEncodings": ["utf-8", "utf-16"]}
}`)
