package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/app"
)

// remove <image>: process one file and print where the result went.
func removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <image>",
		Short: "Remove the background of one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.RemoveOnce(cmd.Context(), options(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
