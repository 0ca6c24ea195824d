package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/app"
)

var (
	configPath string
	prefsPath  string
	envFiles   []string
	model      string
	outputDir  string
	format     string
	logLevel   string
	listenAddr string
)

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return newRoot().ExecuteContext(ctx)
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "bgremover",
		Short:         "Remove image backgrounds with Gemini",
		Long:          "bgremover sends an image to Google Gemini, asks it to strip the background, and saves the transparent result.\nThe API key is read from GEMINI_API_KEY unless api_key_env says otherwise.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), options())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.config/bgremover/config.toml)")
	flags.StringVar(&prefsPath, "prefs", "", "preferences file (default ~/.config/bgremover/prefs.toml)")
	flags.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default ./.env)")
	flags.StringVar(&model, "model", "", "Gemini model name")
	flags.StringVarP(&outputDir, "output-dir", "o", "", "directory for processed images")
	flags.StringVar(&format, "format", "", "output format: png or webp")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(removeCmd(), serveCmd(), logsCmd())
	return root
}

func options() app.Options {
	return app.Options{
		ConfigPath: configPath,
		PrefsPath:  prefsPath,
		EnvFiles:   envFiles,
		Overrides: app.Overrides{
			Model:        model,
			OutputDir:    outputDir,
			OutputFormat: format,
			ListenAddr:   listenAddr,
			LogLevel:     logLevel,
		},
	}
}
