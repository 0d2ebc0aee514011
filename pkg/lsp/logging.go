package lsp

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// logStderr forwards each line the server writes to stderr into the bridge's
// log until r is closed.
func logStderr(ctx context.Context, name string, r io.Reader) {
	logger := zerolog.Ctx(ctx).With().Str("server", name).Logger()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			logger.Debug().Str("stream", "stderr").Msg(line)
		}
	}
}

// logServerMessage records a window/logMessage or window/showMessage
// notification at the level the server asked for.
func logServerMessage(ctx context.Context, method string, params LogMessageParams) {
	zerolog.Ctx(ctx).WithLevel(params.Type.Level()).
		Str("method", method).
		Stringer("type", params.Type).
		Msg(params.Message)
}
