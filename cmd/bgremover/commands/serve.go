package commands

import (
	"github.com/spf13/cobra"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/app"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Serve(cmd.Context(), options())
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default 127.0.0.1:8089)")
	return cmd
}
