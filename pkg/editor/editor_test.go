package editor_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/position"
)

const hoverRequest = `
method = "textDocument/hover"

[meta]
session = "1234"
client = "client0"
buffile = "/src/main.go"
filetype = "go"
version = 7
fifo = "/tmp/kaklsp-fifo"

[params]
position = "3.14"
`

func TestDecode(t *testing.T) {
	req, err := editor.DecodeBytes([]byte(hoverRequest))
	require.NoError(t, err)

	assert.Equal(t, editor.MethodHover, req.Method)
	assert.Equal(t, kakoune.Meta{
		Session:  "1234",
		Client:   "client0",
		Buffile:  "/src/main.go",
		Filetype: "go",
		Version:  7,
		Fifo:     "/tmp/kaklsp-fifo",
	}, req.Meta)

	var params editor.PositionParams
	require.NoError(t, req.DecodeParams(&params))
	pos, err := params.KakounePosition()
	require.NoError(t, err)
	assert.Equal(t, position.KakounePosition{Line: 3, Column: 14}, pos)
}

func TestDecodeParams(t *testing.T) {
	t.Run("code actions", func(t *testing.T) {
		req, err := editor.DecodeBytes([]byte(`
method = "textDocument/codeAction"
[params]
position = "1.1"
perform_code_action = true
`))
		require.NoError(t, err)
		var params editor.CodeActionsParams
		require.NoError(t, req.DecodeParams(&params))
		assert.True(t, params.PerformCodeAction)
		assert.Equal(t, "1.1", params.Position)
	})

	t.Run("execute command keeps the encoded arguments verbatim", func(t *testing.T) {
		req, err := editor.DecodeBytes([]byte(`
method = "workspace/executeCommand"
[params]
command = 'go.test'
arguments = '"[{\"file\":\"a.go\"}]"'
`))
		require.NoError(t, err)
		var params editor.ExecuteCommandParams
		require.NoError(t, req.DecodeParams(&params))
		assert.Equal(t, "go.test", params.Command)
		assert.Equal(t, `"[{\"file\":\"a.go\"}]"`, params.Arguments)
	})

	t.Run("draft", func(t *testing.T) {
		req, err := editor.DecodeBytes([]byte("method = \"textDocument/didChange\"\n[params]\ndraft = '''\npackage main\n'''\n"))
		require.NoError(t, err)
		var params editor.DraftParams
		require.NoError(t, req.DecodeParams(&params))
		assert.Equal(t, "package main\n", params.Draft)
	})

	t.Run("no params", func(t *testing.T) {
		req, err := editor.DecodeBytes([]byte(`method = "textDocument/didClose"`))
		require.NoError(t, err)
		params := editor.DraftParams{Draft: "untouched"}
		require.NoError(t, req.DecodeParams(&params))
		assert.Equal(t, "untouched", params.Draft)
	})
}

func TestDecode_Errors(t *testing.T) {
	_, err := editor.DecodeBytes([]byte(`method = `))
	require.Error(t, err)

	_, err = editor.DecodeBytes([]byte(`[meta]
client = "x"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no method")
}

func TestListener_SendAndServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	socket := filepath.Join(t.TempDir(), "kaklsp.sock")
	ln, err := editor.Listen(ctx, socket)
	require.NoError(t, err)

	received := make(chan *editor.Request, 1)
	served := make(chan error, 1)
	go func() {
		served <- ln.Serve(ctx, func(_ context.Context, req *editor.Request) {
			received <- req
		})
	}()

	require.NoError(t, editor.Send(ctx, socket, []byte(hoverRequest)))

	select {
	case req := <-received:
		assert.Equal(t, editor.MethodHover, req.Method)
		assert.Equal(t, "client0", req.Meta.Client)
	case <-time.After(2 * time.Second):
		t.Fatal("request was not delivered")
	}

	require.Error(t, editor.Send(ctx, socket, []byte("not = [toml")), "malformed requests fail in the sender")

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}

	assert.NoFileExists(t, socket)
}
