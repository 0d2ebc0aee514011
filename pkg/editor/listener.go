package editor

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const maxRequestSize = 64 << 20

// Handler receives every decoded request. It is called from the connection's
// goroutine and should hand the request off quickly.
type Handler func(ctx context.Context, req *Request)

// Listener accepts editor requests on a unix socket, one request per
// connection.
type Listener struct {
	path string
	ln   net.Listener

	closeOnce sync.Once
}

// Listen creates the socket at path, replacing a stale one.
func Listen(ctx context.Context, path string) (*Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, errors.Errorf("removing stale socket: %w", err)
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", path)
	if err != nil {
		return nil, errors.Errorf("listening on %s: %w", path, err)
	}

	return &Listener{path: path, ln: ln}, nil
}

func (l *Listener) Path() string {
	return l.path
}

// Serve accepts connections until ctx is canceled or the listener is closed.
func (l *Listener) Serve(ctx context.Context, handle Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = l.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Errorf("accepting editor connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			l.serveConn(ctx, conn, handle)
		}()
	}
}

func (l *Listener) serveConn(ctx context.Context, conn net.Conn, handle Handler) {
	defer conn.Close()

	data, err := io.ReadAll(io.LimitReader(conn, maxRequestSize))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("reading editor request")
		return
	}

	req, err := DecodeBytes(data)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("invalid editor request")
		return
	}

	zerolog.Ctx(ctx).Debug().
		Str("method", req.Method).
		Str("buffile", req.Meta.Buffile).
		Str("client", req.Meta.Client).
		Msg("editor request")

	handle(ctx, req)
}

func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.ln.Close()
		_ = os.Remove(l.path)
	})
	return err
}

// Send forwards one raw request to the bridge listening on socket. The request
// is validated first so malformed input fails in the sender.
func Send(ctx context.Context, socket string, raw []byte) error {
	if _, err := DecodeBytes(raw); err != nil {
		return err
	}

	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "unix", socket)
	if err != nil {
		return errors.Errorf("connecting to %s: %w", socket, err)
	}
	defer conn.Close()

	if _, err := conn.Write(raw); err != nil {
		return errors.Errorf("writing request: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return errors.Errorf("closing request: %w", err)
		}
	}
	return nil
}
