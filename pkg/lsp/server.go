package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/config"
	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"github.com/walteh/kaklsp/pkg/session"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/multierr"
)

const shutdownGrace = 5 * time.Second

// Server is the language server on the other end of a JSON-RPC connection.
type Server struct {
	name string
	conn jsonrpc2.Conn
	cmd  *exec.Cmd

	Capabilities json.RawMessage
	Info         *protocol.ServerInfo
}

var _ session.Transport = (*Server)(nil)

// Start spawns the language's server in root and connects to its stdio.
// Requests and notifications from the server go to handler.
func Start(ctx context.Context, lang *config.LanguageConfig, root string, handler jsonrpc2.Handler) (*Server, error) {
	cmd := exec.Command(lang.Command, lang.Args...)
	cmd.Dir = root

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Errorf("opening server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Errorf("opening server stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Errorf("opening server stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Errorf("starting %s: %w", lang.Command, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("command", lang.Command).
		Strs("args", lang.Args).
		Str("root", root).
		Int("pid", cmd.Process.Pid).
		Msg("started language server")

	go logStderr(ctx, lang.ID, stderr)

	s := Connect(ctx, lang.ID, newPipe(stdout, stdin), handler)
	s.cmd = cmd
	return s, nil
}

// Connect speaks JSON-RPC over an already established stream.
func Connect(ctx context.Context, name string, rwc io.ReadWriteCloser, handler jsonrpc2.Handler) *Server {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	conn.Go(ctx, handler)
	return &Server{name: name, conn: conn}
}

func (s *Server) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var result json.RawMessage
	if _, err := s.conn.Call(ctx, method, params, &result); err != nil {
		return nil, errors.Errorf("calling %s: %w", method, err)
	}
	return result, nil
}

func (s *Server) Notify(ctx context.Context, method string, params any) error {
	if err := s.conn.Notify(ctx, method, params); err != nil {
		return errors.Errorf("notifying %s: %w", method, err)
	}
	return nil
}

// Done is closed once the connection to the server is gone.
func (s *Server) Done() <-chan struct{} {
	return s.conn.Done()
}

// Shutdown asks the server to exit, closes the connection and reaps the
// process. A server that does not exit within the grace period is killed.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	var errs error
	if _, err := s.Call(ctx, "shutdown", nil); err != nil {
		errs = multierr.Append(errs, err)
	} else if err := s.Notify(ctx, "exit", nil); err != nil {
		errs = multierr.Append(errs, err)
	}

	if err := s.conn.Close(); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("closing server connection")
	}

	if s.cmd == nil {
		return errs
	}

	waited := make(chan error, 1)
	go func() { waited <- s.cmd.Wait() }()

	select {
	case err := <-waited:
		if err != nil {
			errs = multierr.Append(errs, errors.Errorf("waiting for %s: %w", s.name, err))
		}
	case <-ctx.Done():
		if err := s.cmd.Process.Kill(); err != nil {
			errs = multierr.Append(errs, errors.Errorf("killing %s: %w", s.name, err))
		}
		<-waited
	}

	return errs
}
