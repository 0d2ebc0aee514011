package lsp

import (
	"bufio"
	"io"
	"sync"

	"go.uber.org/multierr"
)

// pipe joins a server process's stdout and stdin into the single
// io.ReadWriteCloser a jsonrpc2 stream needs.
type pipe struct {
	reader *bufio.Reader
	writer *bufio.Writer
	closer []io.Closer

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func newPipe(r io.ReadCloser, w io.WriteCloser) *pipe {
	return &pipe{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
		closer: []io.Closer{w, r},
	}
}

func (p *pipe) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

// Write flushes after every message so the server never waits on a partially
// buffered frame.
func (p *pipe) Write(b []byte) (int, error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	n, err := p.writer.Write(b)
	if err != nil {
		return n, err
	}
	return n, p.writer.Flush()
}

// Close closes stdin first so the server sees EOF, then stdout.
func (p *pipe) Close() error {
	p.closeOnce.Do(func() {
		for _, c := range p.closer {
			p.closeErr = multierr.Append(p.closeErr, c.Close())
		}
	})
	return p.closeErr
}
