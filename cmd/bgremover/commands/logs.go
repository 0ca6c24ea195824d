package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/app"
)

// logs: print the end of the TUI log file.
func logsCmd() *cobra.Command {
	var (
		lines    int
		minLevel string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log lines from the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.TailLogs(options(), lines, minLevel)
			if err != nil {
				return err
			}
			for _, line := range out {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show")
	cmd.Flags().StringVar(&minLevel, "level", "", "minimum level to show")
	return cmd
}
