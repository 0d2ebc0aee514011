// Package codeaction turns textDocument/codeAction responses into menu
// directives for the editor.
package codeaction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

// ErrMissingEdit is reported for an unresolved code action that carries
// neither a command nor an edit.
var ErrMissingEdit = errors.Base("code action has no command and no edit")

// Normalize rewrites a code action that delegates to a command as that
// command. Execution wins over edit application when both are offered.
func Normalize(item protocol.CommandOrCodeAction) protocol.CommandOrCodeAction {
	if action, ok := item.(*protocol.CodeAction); ok && action.Command != nil {
		return action.Command
	}
	return item
}

func marshal(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// DoubleEncode serializes v to JSON and then serializes that text again as a
// JSON string literal. The editor's config-style transport would otherwise try
// to read the structure inside the arguments as its own.
func DoubleEncode(v any) (string, error) {
	inner, err := marshal(v)
	if err != nil {
		return "", errors.Errorf("encoding value: %w", err)
	}
	outer, err := marshal(inner)
	if err != nil {
		return "", errors.Errorf("encoding json text: %w", err)
	}
	return outer, nil
}

// DoubleDecode reverses DoubleEncode into v.
func DoubleDecode(text string, v any) error {
	var inner string
	if err := json.Unmarshal([]byte(text), &inner); err != nil {
		return errors.Errorf("decoding json string literal: %w", err)
	}
	if err := json.Unmarshal([]byte(inner), v); err != nil {
		return errors.Errorf("decoding json text: %w", err)
	}
	return nil
}

func title(item protocol.CommandOrCodeAction) string {
	switch it := item.(type) {
	case *protocol.Command:
		return it.Title
	case *protocol.CodeAction:
		return it.Title
	default:
		panic(fmt.Sprintf("unexpected code action item %T", item))
	}
}

// Fragment renders one menu entry: the quoted title followed by the quoted
// command the editor runs when the entry is picked.
func Fragment(item protocol.CommandOrCodeAction) (string, error) {
	switch it := Normalize(item).(type) {
	case *protocol.Command:
		args, err := DoubleEncode(it.Arguments)
		if err != nil {
			return "", errors.Errorf("encoding arguments of %q: %w", it.Command, err)
		}
		return kakoune.MenuEntry(it.Title, kakoune.ExecuteCommand(it.Command, args)), nil
	case *protocol.CodeAction:
		if it.Edit == nil {
			return "", errors.WithStack(ErrMissingEdit)
		}
		edit, err := DoubleEncode(it.Edit)
		if err != nil {
			return "", errors.Errorf("encoding edit: %w", err)
		}
		return kakoune.MenuEntry(it.Title, kakoune.ApplyWorkspaceEdit(edit)), nil
	default:
		panic(fmt.Sprintf("unexpected code action item %T", item))
	}
}

// Result is the outcome of Build.
type Result struct {
	Directive kakoune.Directive
	Rendered  int
	Skipped   int
}

// Build renders items, in order, into one directive. Items that cannot be
// rendered are skipped; the returned error aggregates them while the result
// stays usable. If nothing could be rendered the empty-list branches apply.
func Build(ctx context.Context, items []protocol.CommandOrCodeAction, performImmediately bool) (Result, error) {
	var (
		fragments = make([]string, 0, len(items))
		errs      error
		res       Result
	)

	for i, item := range items {
		fragment, err := Fragment(item)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("index", i).Str("title", title(item)).Msg("skipping code action")
			errs = multierr.Append(errs, errors.Errorf("code action %d %q: %w", i, title(item), err))
			res.Skipped++
			continue
		}
		fragments = append(fragments, fragment)
	}
	res.Rendered = len(fragments)

	joined := strings.Join(fragments, " ")
	switch empty := len(fragments) == 0; {
	case performImmediately && empty:
		res.Directive = kakoune.ShowError(kakoune.NoActionsMessage)
	case performImmediately:
		res.Directive = kakoune.PerformCodeAction(joined)
	case empty:
		res.Directive = kakoune.HideCodeActions()
	default:
		res.Directive = kakoune.ShowCodeActions(joined)
	}

	return res, errs
}
