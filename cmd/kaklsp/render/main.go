// Package render holds the offline renderers: they read a language server
// response and print the directive the bridge would send for it.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/kaklsp/pkg/codeaction"
	"github.com/walteh/kaklsp/pkg/debug"
	"github.com/walteh/kaklsp/pkg/hover"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Input names where the response comes from. "-" is stdin.
type Input struct {
	Path string
	Fs   afero.Fs
}

func (in Input) read(stdin io.Reader) ([]byte, error) {
	if in.Path == "" || in.Path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := afero.ReadFile(in.Fs, in.Path)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", in.Path, err)
	}
	return data, nil
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func withLogger(cmd *cobra.Command, verbose bool) context.Context {
	logger := debug.NewLogger(cmd.ErrOrStderr(), true, verbose)
	return logger.WithContext(cmd.Context())
}

type HoverHandler struct {
	Input
	Position       string
	LSPPosition    string
	Diagnostics    string
	ForcePlaintext bool
	debug          bool
}

func NewRenderHoverCommand() *cobra.Command {
	me := &HoverHandler{Input: Input{Fs: afero.NewOsFs()}}

	cmd := &cobra.Command{
		Use:   "render-hover",
		Short: "print the show-hover directive for a textDocument/hover response",
	}

	cmd.Flags().StringVar(&me.Path, "input", "-", "file holding the hover response, - for stdin")
	cmd.Flags().StringVar(&me.Position, "position", "1.1", "editor position as line.column")
	cmd.Flags().StringVar(&me.Diagnostics, "diagnostics", "", "file holding a json array of diagnostics")
	cmd.Flags().StringVar(&me.LSPPosition, "lsp-position", "", "zero-based server position as line.character; keeps only the diagnostics under it, otherwise all are shown")
	cmd.Flags().BoolVar(&me.ForcePlaintext, "plaintext", false, "show markdown contents as plain text")
	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(withLogger(cmd, me.debug), cmd.InOrStdin(), cmd.OutOrStdout())
	}

	return cmd
}

func (me *HoverHandler) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	pos, err := position.ParseKakounePosition(me.Position)
	if err != nil {
		return err
	}

	data, err := me.read(stdin)
	if err != nil {
		return err
	}

	var h *protocol.Hover
	if !isNull(data) {
		if err := json.Unmarshal(data, &h); err != nil {
			return errors.Errorf("decoding hover response: %w", err)
		}
	}

	var diags []protocol.Diagnostic
	if me.Diagnostics != "" {
		raw, err := afero.ReadFile(me.Fs, me.Diagnostics)
		if err != nil {
			return errors.Errorf("reading diagnostics: %w", err)
		}
		if err := json.Unmarshal(raw, &diags); err != nil {
			return errors.Errorf("decoding diagnostics: %w", err)
		}
	}

	if me.LSPPosition != "" {
		point, err := parseLSPPosition(me.LSPPosition)
		if err != nil {
			return err
		}
		diags = position.DiagnosticsAtPoint(diags, point)
	}

	d, ok := hover.Render(ctx, pos, h, diags, me.ForcePlaintext)
	if !ok {
		zerolog.Ctx(ctx).Info().Msg("nothing to show")
		return nil
	}

	_, err = fmt.Fprintln(stdout, d.Text)
	return err
}

func parseLSPPosition(s string) (protocol.Position, error) {
	lineStr, charStr, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return protocol.Position{}, errors.Errorf("invalid lsp position %q: expected line.character", s)
	}
	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil {
		return protocol.Position{}, errors.Errorf("invalid line in lsp position %q: %w", s, err)
	}
	char, err := strconv.ParseUint(charStr, 10, 32)
	if err != nil {
		return protocol.Position{}, errors.Errorf("invalid character in lsp position %q: %w", s, err)
	}
	return protocol.Position{Line: uint32(line), Character: uint32(char)}, nil
}

type CodeActionsHandler struct {
	Input
	Perform bool
	debug   bool
}

func NewRenderCodeActionsCommand() *cobra.Command {
	me := &CodeActionsHandler{Input: Input{Fs: afero.NewOsFs()}}

	cmd := &cobra.Command{
		Use:   "render-code-actions",
		Short: "print the directive for a textDocument/codeAction response",
	}

	cmd.Flags().StringVar(&me.Path, "input", "-", "file holding the code action response, - for stdin")
	cmd.Flags().BoolVar(&me.Perform, "perform", false, "render the perform-code-action menu")
	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(withLogger(cmd, me.debug), cmd.InOrStdin(), cmd.OutOrStdout())
	}

	return cmd
}

func (me *CodeActionsHandler) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	data, err := me.read(stdin)
	if err != nil {
		return err
	}

	if isNull(data) {
		zerolog.Ctx(ctx).Info().Msg("null response, nothing to show")
		return nil
	}

	var items protocol.CodeActionResponse
	if err := json.Unmarshal(data, &items); err != nil {
		return errors.Errorf("decoding code action response: %w", err)
	}

	res, err := codeaction.Build(ctx, items, me.Perform)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int("skipped", res.Skipped).Msg("some code actions could not be rendered")
	}

	_, err = fmt.Fprintln(stdout, res.Directive.Text)
	return err
}
