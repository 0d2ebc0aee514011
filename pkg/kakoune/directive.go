package kakoune

import (
	"strings"

	"github.com/walteh/kaklsp/pkg/position"
)

type DirectiveKind int

const (
	DirectiveShow DirectiveKind = iota
	DirectiveHide
	DirectivePerform
	DirectiveError
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveShow:
		return "show"
	case DirectiveHide:
		return "hide"
	case DirectivePerform:
		return "perform"
	case DirectiveError:
		return "error"
	default:
		return "unknown"
	}
}

// Directive is one command line handed to the editor. It is consumed once.
type Directive struct {
	Kind DirectiveKind
	Text string
}

func (d Directive) String() string {
	return d.Text
}

// NoActionsMessage is shown when an immediate code action was requested but
// the server offered none.
const NoActionsMessage = "no actions available"

func ShowCodeActions(fragments string) Directive {
	return Directive{Kind: DirectiveShow, Text: "show-code-actions " + fragments}
}

func PerformCodeAction(fragments string) Directive {
	return Directive{Kind: DirectivePerform, Text: "perform-code-action " + fragments}
}

func HideCodeActions() Directive {
	return Directive{Kind: DirectiveHide, Text: "hide-code-actions"}
}

func ShowError(message string) Directive {
	return Directive{Kind: DirectiveError, Text: "show-error " + Quote(message)}
}

// ExecuteCommand is the selection action of a command fragment. encodedArgs is
// the double-encoded argument list.
func ExecuteCommand(command, encodedArgs string) string {
	return "execute-command " + Quote(command) + " " + Quote(encodedArgs)
}

// ApplyWorkspaceEdit is the selection action of an edit-only code action.
func ApplyWorkspaceEdit(encodedEdit string) string {
	return "apply-workspace-edit " + Quote(encodedEdit)
}

// MenuEntry pairs a title with the command run when it is selected.
func MenuEntry(title, action string) string {
	return Quote(title) + " " + Quote(action)
}

// ShowHover displays contents and diagnostics anchored at pos. Both strings are
// delimiter-escaped here.
func ShowHover(pos position.KakounePosition, contents, diagnostics string) Directive {
	return Directive{
		Kind: DirectiveShow,
		Text: strings.Join([]string{
			"show-hover",
			pos.String(),
			DelimitedString(contents),
			DelimitedString(diagnostics),
		}, " "),
	}
}

// ReplaceBuffer swaps the whole content of buffile for content.
func ReplaceBuffer(buffile, content string) Directive {
	return Directive{Kind: DirectivePerform, Text: "replace-buffer " + Quote(buffile) + " " + Quote(content)}
}
