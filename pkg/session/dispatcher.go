package session

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"gitlab.com/tozd/go/errors"
)

// ErrIdle is returned by Run when no event arrived within the idle timeout.
var ErrIdle = errors.Base("dispatcher idle timeout")

// Transport carries requests to the language server. Call blocks until the
// response arrives and is always invoked off the dispatcher loop.
type Transport interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	Notify(ctx context.Context, method string, params any) error
}

// Continuation handles the response to a dispatched request. A nil response
// means the server answered null. It runs on the dispatcher loop and must not
// block.
type Continuation func(ctx context.Context, meta kakoune.Meta, response json.RawMessage)

type RequestID uint64

type pendingRequest struct {
	method string
	meta   kakoune.Meta
	cont   Continuation
}

// Dispatcher runs every editor event and every continuation on a single loop.
// Requests are registered with Dispatch, which returns immediately; the
// transport call runs on its own goroutine and posts its completion back.
type Dispatcher struct {
	transport Transport
	events    chan func(context.Context)
	done      chan struct{}

	// IdleTimeout stops Run when no event arrives for this long. Zero
	// disables it.
	IdleTimeout time.Duration

	// loop owned
	nextID  RequestID
	pending map[RequestID]pendingRequest
}

func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		events:    make(chan func(context.Context), 64),
		done:      make(chan struct{}),
		pending:   map[RequestID]pendingRequest{},
	}
}

// SetTransport replaces the transport. It must be called before Run, and lets
// the transport be built with a handler that already knows the dispatcher.
func (d *Dispatcher) SetTransport(transport Transport) {
	d.transport = transport
}

// Post queues fn to run on the loop. It reports false once the loop has
// stopped.
func (d *Dispatcher) Post(fn func(ctx context.Context)) bool {
	select {
	case <-d.done:
		return false
	default:
	}
	select {
	case d.events <- fn:
		return true
	case <-d.done:
		return false
	}
}

// Run drives the loop until ctx is canceled or the idle timeout fires.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)

	var idle <-chan time.Time
	var timer *time.Timer
	if d.IdleTimeout > 0 {
		timer = time.NewTimer(d.IdleTimeout)
		defer timer.Stop()
		idle = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
			return errors.WithStack(ErrIdle)
		case fn := <-d.events:
			fn(ctx)
			if timer != nil {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(d.IdleTimeout)
			}
		}
	}
}

// Dispatch registers cont for a request to method and sends it. It must be
// called from the loop.
func (d *Dispatcher) Dispatch(ctx context.Context, meta kakoune.Meta, method string, params any, cont Continuation) RequestID {
	d.nextID++
	id := d.nextID
	d.pending[id] = pendingRequest{method: method, meta: meta, cont: cont}

	zerolog.Ctx(ctx).Debug().Uint64("id", uint64(id)).Str("method", method).Msg("dispatching request")

	go func() {
		response, err := d.transport.Call(ctx, method, params)
		d.Post(func(ctx context.Context) {
			d.complete(ctx, id, response, err)
		})
	}()

	return id
}

// Notify sends a notification from the loop, so notifications keep the order
// in which editor events were handled.
func (d *Dispatcher) Notify(ctx context.Context, method string, params any) error {
	if err := d.transport.Notify(ctx, method, params); err != nil {
		return errors.Errorf("notifying %s: %w", method, err)
	}
	return nil
}

// Pending returns the number of requests still waiting for a response.
func (d *Dispatcher) Pending() int {
	return len(d.pending)
}

func (d *Dispatcher) complete(ctx context.Context, id RequestID, response json.RawMessage, err error) {
	req, ok := d.pending[id]
	if !ok {
		zerolog.Ctx(ctx).Warn().Uint64("id", uint64(id)).Msg("response for unknown request")
		return
	}
	delete(d.pending, id)

	logger := zerolog.Ctx(ctx).With().Uint64("id", uint64(id)).Str("method", req.method).Logger()
	if err != nil {
		logger.Error().Err(err).Msg("request failed")
		return
	}

	if isNull(response) {
		response = nil
	}
	req.cont(logger.WithContext(ctx), req.meta, response)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
