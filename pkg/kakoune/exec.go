package kakoune

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// Meta identifies where an editor request came from and where its answer goes.
type Meta struct {
	Session  string `toml:"session"`
	Client   string `toml:"client"`
	Buffile  string `toml:"buffile"`
	Filetype string `toml:"filetype"`
	Version  int32  `toml:"version"`
	Fifo     string `toml:"fifo"`
}

// Execer sends a directive to the editor. Implementations must not block the
// caller for longer than it takes to hand the text off.
type Execer interface {
	Exec(ctx context.Context, meta Meta, d Directive) error
}

// SessionExecer delivers directives to a running editor session, either through
// the request's fifo or by piping to `kak -p <session>`.
type SessionExecer struct {
	KakBinary string
	Fs        afero.Fs

	run func(ctx context.Context, name string, args []string, stdin string) error
}

func NewSessionExecer(kakBinary string, fs afero.Fs) *SessionExecer {
	if kakBinary == "" {
		kakBinary = "kak"
	}
	return &SessionExecer{
		KakBinary: kakBinary,
		Fs:        fs,
		run:       runWithStdin,
	}
}

func runWithStdin(ctx context.Context, name string, args []string, stdin string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = strings.NewReader(stdin)
	if out, err := cmd.CombinedOutput(); err != nil {
		return errors.Errorf("running %s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (e *SessionExecer) Exec(ctx context.Context, meta Meta, d Directive) error {
	zerolog.Ctx(ctx).Debug().
		Str("kind", d.Kind.String()).
		Str("session", meta.Session).
		Str("client", meta.Client).
		Str("directive", d.Text).
		Msg("exec")

	if meta.Fifo != "" {
		return e.writeFifo(meta.Fifo, d.Text)
	}

	if meta.Session == "" {
		return errors.Errorf("no session to send %s directive to", d.Kind)
	}

	text := d.Text
	if meta.Client != "" {
		text = "evaluate-commands -client " + Quote(meta.Client) + " " + Quote(text)
	}

	if err := e.run(ctx, e.KakBinary, []string{"-p", meta.Session}, text); err != nil {
		return errors.Errorf("sending directive to session %s: %w", meta.Session, err)
	}
	return nil
}

func (e *SessionExecer) writeFifo(path, text string) error {
	f, err := e.Fs.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return errors.Errorf("opening fifo %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(text + "\n"); err != nil {
		return errors.Errorf("writing fifo %s: %w", path, err)
	}
	return nil
}
