package render_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/kaklsp/cmd/kaklsp/render"
)

func TestHoverHandler_Run(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		position    string
		diagnostics string
		want        string
		wantErr     string
	}{
		{
			name:     "plain string",
			response: `{"contents": "plain words"}`,
			position: "3.7",
			want:     "show-hover 3.7 %§plain words§ %§§\n",
		},
		{
			name:     "null with nothing at point",
			response: "null",
			position: "1.1",
			want:     "",
		},
		{
			name:     "empty input",
			response: "  \n",
			position: "1.1",
			want:     "",
		},
		{
			name:        "null with diagnostics",
			response:    "null",
			position:    "1.1",
			diagnostics: `[{"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}, "message": "unused variable"}]`,
			want:        "show-hover 1.1 %§§ %§• {Information}unused variable{Information}§\n",
		},
		{
			name:     "bad position",
			response: "null",
			position: "one",
			wantErr:  "one",
		},
		{
			name:     "bad json",
			response: `{"contents": `,
			position: "1.1",
			wantErr:  "decoding hover response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			h := &render.HoverHandler{
				Input:    render.Input{Path: "-", Fs: fs},
				Position: tt.position,
			}
			if tt.diagnostics != "" {
				require.NoError(t, afero.WriteFile(fs, "/diags.json", []byte(tt.diagnostics), 0o644))
				h.Diagnostics = "/diags.json"
			}

			var out bytes.Buffer
			err := h.Run(context.Background(), strings.NewReader(tt.response), &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestHoverHandler_FiltersDiagnosticsAtPoint(t *testing.T) {
	diags := `[
		{"range": {"start": {"line": 2, "character": 4}, "end": {"line": 2, "character": 9}}, "message": "under the cursor"},
		{"range": {"start": {"line": 0, "character": 0}, "end": {"line": 0, "character": 3}}, "message": "elsewhere"}
	]`

	tests := []struct {
		name        string
		lspPosition string
		want        string
		wantErr     string
	}{
		{
			name:        "keeps the diagnostic under the point",
			lspPosition: "2.6",
			want:        "show-hover 3.7 %§§ %§• {Information}under the cursor{Information}§\n",
		},
		{
			name:        "nothing under the point",
			lspPosition: "5.0",
			want:        "",
		},
		{
			name: "no position shows every diagnostic",
			want: "show-hover 3.7 %§§ %§• {Information}under the cursor{Information}\n• {Information}elsewhere{Information}§\n",
		},
		{
			name:        "bad position",
			lspPosition: "2",
			wantErr:     "expected line.character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "/diags.json", []byte(diags), 0o644))

			h := &render.HoverHandler{
				Input:       render.Input{Path: "-", Fs: fs},
				Position:    "3.7",
				LSPPosition: tt.lspPosition,
				Diagnostics: "/diags.json",
			}

			var out bytes.Buffer
			err := h.Run(context.Background(), strings.NewReader("null"), &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestHoverHandler_ReadsFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/hover.json", []byte(`{"contents": {"kind": "plaintext", "value": "from file"}}`), 0o644))

	h := &render.HoverHandler{
		Input:    render.Input{Path: "/hover.json", Fs: fs},
		Position: "2.4",
	}

	var out bytes.Buffer
	require.NoError(t, h.Run(context.Background(), strings.NewReader("ignored"), &out))
	assert.Equal(t, "show-hover 2.4 %§from file§ %§§\n", out.String())
}

func TestHoverHandler_MissingFile(t *testing.T) {
	h := &render.HoverHandler{
		Input:    render.Input{Path: "/missing.json", Fs: afero.NewMemMapFs()},
		Position: "1.1",
	}
	err := h.Run(context.Background(), strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading /missing.json")
}

func TestCodeActionsHandler_Run(t *testing.T) {
	command := `{"title": "Organize imports", "command": "source.organizeImports", "arguments": []}`

	tests := []struct {
		name     string
		response string
		perform  bool
		want     string
		wantErr  string
	}{
		{
			name:     "null",
			response: "null",
			want:     "",
		},
		{
			name:     "empty menu",
			response: "[]",
			want:     "hide-code-actions\n",
		},
		{
			name:     "empty perform",
			response: "[]",
			perform:  true,
			want:     "show-error 'no actions available'\n",
		},
		{
			name:     "menu",
			response: "[" + command + "]",
			want:     "show-code-actions 'Organize imports' ",
		},
		{
			name:     "perform",
			response: "[" + command + "]",
			perform:  true,
			want:     "perform-code-action 'Organize imports' ",
		},
		{
			name:     "not a list",
			response: `{"title": "x"}`,
			wantErr:  "decoding code action response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &render.CodeActionsHandler{
				Input:   render.Input{Path: "-", Fs: afero.NewMemMapFs()},
				Perform: tt.perform,
			}

			var out bytes.Buffer
			err := h.Run(context.Background(), strings.NewReader(tt.response), &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if strings.HasSuffix(tt.want, "\n") || tt.want == "" {
				assert.Equal(t, tt.want, out.String())
				return
			}
			assert.True(t, strings.HasPrefix(out.String(), tt.want), "got %q", out.String())
			assert.Contains(t, out.String(), "'execute-command ''source.organizeImports''")
		})
	}
}
