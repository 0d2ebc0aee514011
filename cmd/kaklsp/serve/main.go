package serve

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/kaklsp/pkg/config"
	"github.com/walteh/kaklsp/pkg/debug"
	"github.com/walteh/kaklsp/pkg/editor"
	"github.com/walteh/kaklsp/pkg/kakoune"
	"github.com/walteh/kaklsp/pkg/lsp"
	"github.com/walteh/kaklsp/pkg/session"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
)

type Handler struct {
	configPath string
	language   string
	file       string
	filetype   string
	root       string
	socket     string
	kak        string
	debug      bool
	console    bool

	version string
	fs      afero.Fs
}

func NewServeCommand(version string) *cobra.Command {
	me := &Handler{version: version, fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "start a language server and accept editor requests on a socket",
	}

	cmd.Flags().StringVar(&me.configPath, "config", config.DefaultFileName, "path to the toml, yaml or hcl config")
	cmd.Flags().StringVar(&me.language, "language", "", "configured language to serve")
	cmd.Flags().StringVar(&me.file, "file", "", "buffer used to pick the language and project root")
	cmd.Flags().StringVar(&me.filetype, "filetype", "", "editor filetype used to pick the language")
	cmd.Flags().StringVar(&me.root, "root", "", "project root, found from --file when empty")
	cmd.Flags().StringVar(&me.socket, "socket", "", "unix socket to listen on")
	cmd.Flags().StringVar(&me.kak, "kak", "kak", "kakoune binary used to send directives")
	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&me.console, "console", false, "human readable logs")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		logger := debug.NewLogger(cmd.ErrOrStderr(), me.console, me.debug)
		return me.Run(logger.WithContext(cmd.Context()))
	}

	return cmd
}

// SelectLanguage picks the language to serve: by name, then by buffer, then the
// only configured one.
func (me *Handler) SelectLanguage(cfg *config.Config) (*config.LanguageConfig, error) {
	if me.language != "" {
		lang, ok := cfg.Languages[me.language]
		if !ok {
			return nil, errors.Errorf("language %q is not configured, have %v", me.language, cfg.LanguageIDs())
		}
		return lang, nil
	}

	if me.file != "" || me.filetype != "" {
		lang, ok := cfg.LanguageFor(me.file, me.filetype)
		if !ok {
			return nil, errors.Errorf("no language configured for file %q with filetype %q", me.file, me.filetype)
		}
		return lang, nil
	}

	if ids := cfg.LanguageIDs(); len(ids) == 1 {
		return cfg.Languages[ids[0]], nil
	}

	return nil, errors.Errorf("pick one of %v with --language", cfg.LanguageIDs())
}

// ProjectRoot returns the explicit root, the root above --file, or the working
// directory.
func (me *Handler) ProjectRoot(lang *config.LanguageConfig) (string, error) {
	if me.root != "" {
		return filepath.Abs(me.root)
	}
	if me.file != "" {
		file, err := filepath.Abs(me.file)
		if err != nil {
			return "", errors.Errorf("resolving file: %w", err)
		}
		return lang.FindRoot(me.fs, file), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", errors.Errorf("getting working directory: %w", err)
	}
	return wd, nil
}

func (me *Handler) socketPath(lang *config.LanguageConfig) string {
	if me.socket != "" {
		return me.socket
	}
	return filepath.Join(os.TempDir(), "kaklsp-"+lang.ID+".sock")
}

func (me *Handler) Run(ctx context.Context) error {
	cfg, err := config.Load(me.fs, me.configPath)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	lang, err := me.SelectLanguage(cfg)
	if err != nil {
		return err
	}

	root, err := me.ProjectRoot(lang)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := session.New(cfg, lang, root)
	ctx = sess.WithContext(ctx)

	dispatcher := session.NewDispatcher(nil)
	dispatcher.IdleTimeout = time.Duration(cfg.Server.TimeoutSeconds) * time.Second

	bridge := lsp.NewBridge(sess, dispatcher, kakoune.NewSessionExecer(me.kak, me.fs), me.fs)
	bridge.OnExit = cancel

	server, err := lsp.Start(ctx, lang, root, bridge.ServerHandler())
	if err != nil {
		return errors.Errorf("starting language server: %w", err)
	}
	defer func() {
		if err := server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("shutting down language server")
		}
	}()
	dispatcher.SetTransport(server)

	if _, err := server.Initialize(ctx, root, me.version, nil); err != nil {
		return errors.Errorf("initializing language server: %w", err)
	}
	if enc, ok := server.PositionEncoding(); ok {
		sess.SetOffsetEncoding(enc)
	}

	listener, err := editor.Listen(ctx, me.socketPath(lang))
	if err != nil {
		return err
	}
	defer listener.Close()

	zerolog.Ctx(ctx).Info().
		Str("socket", listener.Path()).
		Str("root", root).
		Str("offset_encoding", string(sess.OffsetEncoding())).
		Msg("serving editor requests")

	go func() {
		select {
		case <-server.Done():
			zerolog.Ctx(ctx).Warn().Msg("language server connection closed")
			cancel()
		case <-ctx.Done():
		}
	}()

	served := make(chan error, 1)
	go func() {
		served <- listener.Serve(ctx, bridge.Enqueue)
	}()

	runErr := dispatcher.Run(ctx)
	cancel()

	switch {
	case errors.Is(runErr, session.ErrIdle):
		zerolog.Ctx(ctx).Info().Dur("timeout", dispatcher.IdleTimeout).Msg("idle, stopping")
		runErr = nil
	case errors.Is(runErr, context.Canceled):
		runErr = nil
	}

	return multierr.Combine(runErr, <-served)
}
