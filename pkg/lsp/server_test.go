package lsp_test

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/kaklsp/pkg/config"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/position"
	"github.com/walteh/kaklsp/pkg/session"
	"go.lsp.dev/jsonrpc2"
)

// fakeServer is the language server end of a pipe.
type fakeServer struct {
	conn jsonrpc2.Conn

	mu       sync.Mutex
	received []string
	init     protocol.InitializeParams
}

func (f *fakeServer) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	f.mu.Lock()
	f.received = append(f.received, req.Method())
	f.mu.Unlock()

	switch req.Method() {
	case "initialize":
		f.mu.Lock()
		_ = json.Unmarshal(req.Params(), &f.init)
		f.mu.Unlock()
		return reply(ctx, json.RawMessage(`{
			"capabilities": {"positionEncoding": "utf-8", "hoverProvider": true},
			"serverInfo": {"name": "fake", "version": "1.0"}
		}`), nil)
	case "textDocument/hover":
		return reply(ctx, json.RawMessage(`{"contents": "plain words"}`), nil)
	default:
		return reply(ctx, nil, nil)
	}
}

func (f *fakeServer) Received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

type linked struct {
	server     *lsp.Server
	fake       *fakeServer
	bridge     *lsp.Bridge
	session    *session.Session
	dispatcher *session.Dispatcher
	execer     *fakeExecer
}

func link(t *testing.T) *linked {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	clientSide, serverSide := net.Pipe()

	fake := &fakeServer{}
	fake.conn = jsonrpc2.NewConn(jsonrpc2.NewStream(serverSide))
	fake.conn.Go(ctx, fake.handle)
	t.Cleanup(func() { _ = fake.conn.Close() })

	cfg := config.Default()
	lang := &config.LanguageConfig{ID: "go", Command: "fake"}
	cfg.Languages["go"] = lang

	l := &linked{
		fake:       fake,
		session:    session.New(cfg, lang, "/src"),
		dispatcher: session.NewDispatcher(nil),
		execer:     &fakeExecer{},
	}
	l.bridge = lsp.NewBridge(l.session, l.dispatcher, l.execer, afero.NewMemMapFs())
	l.server = lsp.Connect(ctx, "go", clientSide, l.bridge.ServerHandler())
	l.dispatcher.SetTransport(l.server)

	go func() { _ = l.dispatcher.Run(ctx) }()

	return l
}

func (l *linked) onLoop(t *testing.T, fn func(ctx context.Context)) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, l.dispatcher.Post(func(ctx context.Context) {
		fn(ctx)
		close(done)
	}))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not run the event")
	}
}

func TestServer_Initialize(t *testing.T) {
	l := link(t)
	ctx := context.Background()

	result, err := l.server.Initialize(ctx, "/src", "v1.2.3", map[string]any{"gofumpt": true})
	require.NoError(t, err)

	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "fake", result.ServerInfo.Name)
	assert.Equal(t, "fake", l.server.Info.Name)

	enc, ok := l.server.PositionEncoding()
	require.True(t, ok)
	assert.Equal(t, position.UTF8, enc)

	require.Eventually(t, func() bool {
		got := l.fake.Received()
		return len(got) == 2 && got[1] == "initialized"
	}, 2*time.Second, 5*time.Millisecond)

	l.fake.mu.Lock()
	defer l.fake.mu.Unlock()
	assert.Equal(t, protocol.DocumentURI("file:///src"), l.fake.init.RootURI)
	require.NotNil(t, l.fake.init.ClientInfo)
	assert.Equal(t, lsp.ClientName, l.fake.init.ClientInfo.Name)
	assert.Equal(t, "v1.2.3", l.fake.init.ClientInfo.Version)
}

func TestServer_PositionEncodingAbsent(t *testing.T) {
	l := link(t)
	_, ok := l.server.PositionEncoding()
	assert.False(t, ok)
}

func TestServer_HoverRoundTrip(t *testing.T) {
	l := link(t)

	meta := kakoune.Meta{Buffile: buffile, Client: "client0", Version: 1}
	l.onLoop(t, func(ctx context.Context) {
		l.session.OpenDocument(buffile, "go", 1, mainGo)
		require.NoError(t, l.bridge.TextDocumentHover(ctx, meta, editor.PositionParams{Position: "1.1"}))
	})

	require.Eventually(t, func() bool { return len(l.execer.Sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "show-hover 1.1 %§plain words§ %§§", l.execer.Sent()[0].directive.Text)
}

func TestServer_PublishDiagnostics(t *testing.T) {
	l := link(t)
	ctx := context.Background()

	require.NoError(t, l.fake.conn.Notify(ctx, "textDocument/publishDiagnostics", protocol.PublishDiagnosticsParams{
		URI:         protocol.URIFromPath(buffile),
		Diagnostics: []protocol.Diagnostic{{Message: "from the server"}},
	}))

	require.Eventually(t, func() bool {
		count := make(chan int, 1)
		l.dispatcher.Post(func(context.Context) { count <- len(l.session.DiagnosticsFor(buffile)) })
		return <-count == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServer_ApplyEditRequest(t *testing.T) {
	l := link(t)
	ctx := context.Background()

	l.onLoop(t, func(context.Context) {
		l.session.OpenDocument(buffile, "go", 1, mainGo)
	})

	var result protocol.ApplyWorkspaceEditResult
	_, err := l.fake.conn.Call(ctx, "workspace/applyEdit", protocol.ApplyWorkspaceEditParams{
		Label: "rename",
		Edit: protocol.WorkspaceEdit{DocumentChanges: []protocol.TextDocumentEdit{{
			TextDocument: protocol.VersionedTextDocumentIdentifier{URI: protocol.URIFromPath(buffile), Version: 1},
			Edits: []protocol.TextEdit{{
				Range:   protocol.Range{Start: protocol.Position{Line: 2, Character: 5}, End: protocol.Position{Line: 2, Character: 9}},
				NewText: "run",
			}},
		}}},
	}, &result)
	require.NoError(t, err)
	assert.True(t, result.Applied)

	sent := l.execer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, kakoune.ReplaceBuffer(buffile, "package main\n\nfunc run() {\n\tfoo()\n}\n"), sent[0].directive)
}

func TestServer_ClientRequests(t *testing.T) {
	l := link(t)
	ctx := context.Background()

	var settings []any
	_, err := l.fake.conn.Call(ctx, "workspace/configuration", lsp.ConfigurationParams{
		Items: []lsp.ConfigurationItem{{Section: "gopls"}, {Section: "go"}},
	}, &settings)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, nil}, settings)

	_, err = l.fake.conn.Call(ctx, "window/workDoneProgress/create", map[string]any{"token": 1}, nil)
	require.NoError(t, err)

	_, err = l.fake.conn.Call(ctx, "custom/unknown", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestServer_Shutdown(t *testing.T) {
	l := link(t)

	require.NoError(t, l.server.Shutdown(context.Background()))

	require.Eventually(t, func() bool {
		got := l.fake.Received()
		return len(got) == 2 && got[0] == "shutdown" && got[1] == "exit"
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case <-l.server.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close")
	}
}
