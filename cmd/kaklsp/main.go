package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/walteh/kaklsp/cmd/kaklsp/render"
	"github.com/walteh/kaklsp/cmd/kaklsp/request"
	"github.com/walteh/kaklsp/cmd/kaklsp/serve"
	"gitlab.com/tozd/go/errors"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	rootCmd := &cobra.Command{
		Use:   "kaklsp",
		Short: "Connect the kakoune editor to a language server",
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(serve.NewServeCommand(rootCmd.Version))
	rootCmd.AddCommand(request.NewRequestCommand())
	rootCmd.AddCommand(render.NewRenderHoverCommand())
	rootCmd.AddCommand(render.NewRenderCodeActionsCommand())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}
