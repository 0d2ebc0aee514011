package kakoune

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

type recordedRun struct {
	name  string
	args  []string
	stdin string
}

func newRecordingExecer(fs afero.Fs, fail error) (*SessionExecer, *[]recordedRun) {
	runs := &[]recordedRun{}
	e := NewSessionExecer("", fs)
	e.run = func(ctx context.Context, name string, args []string, stdin string) error {
		*runs = append(*runs, recordedRun{name: name, args: args, stdin: stdin})
		return fail
	}
	return e, runs
}

func TestSessionExecer_Session(t *testing.T) {
	ctx := context.Background()
	e, runs := newRecordingExecer(afero.NewMemMapFs(), nil)

	err := e.Exec(ctx, Meta{Session: "1234", Client: "client0"}, HideCodeActions())
	require.NoError(t, err)

	require.Len(t, *runs, 1)
	assert.Equal(t, "kak", (*runs)[0].name)
	assert.Equal(t, []string{"-p", "1234"}, (*runs)[0].args)
	assert.Equal(t, "evaluate-commands -client 'client0' 'hide-code-actions'", (*runs)[0].stdin)
}

func TestSessionExecer_NoClient(t *testing.T) {
	ctx := context.Background()
	e, runs := newRecordingExecer(afero.NewMemMapFs(), nil)

	require.NoError(t, e.Exec(ctx, Meta{Session: "s"}, ShowError("it's broken")))
	require.Len(t, *runs, 1)
	assert.Equal(t, "show-error 'it''s broken'", (*runs)[0].stdin)
}

func TestSessionExecer_Errors(t *testing.T) {
	ctx := context.Background()

	e, runs := newRecordingExecer(afero.NewMemMapFs(), errors.New("kak exited"))
	err := e.Exec(ctx, Meta{Session: "s"}, HideCodeActions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kak exited")
	assert.Len(t, *runs, 1)

	err = e.Exec(ctx, Meta{}, HideCodeActions())
	require.Error(t, err)
	assert.Len(t, *runs, 1, "nothing should run without a session")
}

func TestSessionExecer_Fifo(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/tmp/kak-fifo", nil, 0o600))

	e, runs := newRecordingExecer(fs, nil)
	require.NoError(t, e.Exec(ctx, Meta{Session: "s", Fifo: "/tmp/kak-fifo"}, HideCodeActions()))
	require.NoError(t, e.Exec(ctx, Meta{Session: "s", Fifo: "/tmp/kak-fifo"}, ShowError("x")))

	assert.Empty(t, *runs, "fifo requests must not spawn kak")
	data, err := afero.ReadFile(fs, "/tmp/kak-fifo")
	require.NoError(t, err)
	assert.Equal(t, "hide-code-actions\nshow-error 'x'\n", string(data))

	err = e.Exec(ctx, Meta{Fifo: "/tmp/missing"}, HideCodeActions())
	require.Error(t, err)
}
