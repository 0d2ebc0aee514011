package request

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"github.com/walteh/kaklsp/pkg/editor"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	socket string
}

func NewRequestCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "request",
		Short: "forward one toml editor request from stdin to a running bridge",
	}

	cmd.Flags().StringVar(&me.socket, "socket", "", "unix socket of the running bridge")
	_ = cmd.MarkFlagRequired("socket")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.InOrStdin())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, in io.Reader) error {
	raw, err := io.ReadAll(in)
	if err != nil {
		return errors.Errorf("reading request: %w", err)
	}
	return editor.Send(ctx, me.socket, raw)
}
