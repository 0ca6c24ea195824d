package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/config"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/gemini"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/logging"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/logtail"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/metrics"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/prefs"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/server"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/session"
	"github.com/xpmourad/ori-AI-Background-Remover/internal/ui"
)

// Options configure a bgremover run.
type Options struct {
	ConfigPath string
	PrefsPath  string   // empty uses ~/.config/bgremover/prefs.toml
	EnvFiles   []string // empty loads ./.env when present
	Overrides  Overrides

	// Remover replaces the Gemini client; used by tests.
	Remover gemini.Remover
}

// Overrides carry command-line values. Empty fields leave the config alone.
type Overrides struct {
	Model        string
	OutputDir    string
	OutputFormat string
	ListenAddr   string
	LogLevel     string
}

// LoadConfig resolves configuration from defaults, file, environment and
// overrides, in that order.
func LoadConfig(opts Options) (config.Config, error) {
	config.LoadDotEnv(opts.EnvFiles...)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(&cfg, opts.Overrides); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, o Overrides) error {
	if v := strings.TrimSpace(o.Model); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(o.OutputDir); v != "" {
		dir, err := config.ExpandPath(v)
		if err != nil {
			return fmt.Errorf("output dir: %w", err)
		}
		cfg.OutputDir = dir
	}
	if v := strings.TrimSpace(o.OutputFormat); v != "" {
		cfg.OutputFormat = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.ListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	return nil
}

func newRemover(opts Options, cfg config.Config, logger *zap.SugaredLogger) gemini.Remover {
	if opts.Remover != nil {
		return opts.Remover
	}
	return gemini.NewClient(gemini.Options{
		Model:   cfg.Model,
		KeyEnv:  cfg.APIKeyEnv,
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	})
}

// Run boots the terminal UI and blocks until the user quits or ctx is
// cancelled. Logs go to the configured file so the screen stays clean.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, flush, err := logging.New(logging.Options{Level: cfg.LogLevel, Path: cfg.LogPath})
	if err != nil {
		return err
	}
	defer flush()

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := prefs.Load(prefsPath)

	ctrl := session.New(session.Options{
		Remover: newRemover(opts, cfg, logger),
		Metrics: metrics.NewRegistry(),
		Logger:  logger,
	})
	defer ctrl.Close()

	logger.Infow("starting tui", "model", cfg.Model, "output_dir", cfg.OutputDir, "format", cfg.OutputFormat)
	err = ui.Run(ui.Options{
		Context:      ctx,
		Controller:   ctrl,
		Logger:       logger,
		OutputDir:    cfg.OutputDir,
		OutputFormat: cfg.Format(),
		ThemeName:    userPrefs.Theme,
		PrefsPath:    prefsPath,
		StartDir:     userPrefs.LastDir,
	})
	if err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// RemoveOnce processes one file without the UI and returns the written path.
func RemoveOnce(ctx context.Context, opts Options, path string) (string, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return "", err
	}

	logger, flush, err := logging.New(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		return "", err
	}
	defer flush()

	file, err := media.Open(path)
	if err != nil {
		return "", err
	}

	ctrl := session.New(session.Options{Remover: newRemover(opts, cfg, logger), Logger: logger})
	defer ctrl.Close()

	snap, err := ctrl.Process(ctx, file)
	if err != nil {
		return "", err
	}
	if snap.State != session.StateResult {
		if snap.Failure != nil {
			return "", snap.Failure
		}
		return "", errors.New(snap.Err)
	}

	out, err := media.Save(cfg.OutputDir, file.Name, snap.Processed, cfg.Format())
	if err != nil {
		return "", err
	}
	logger.Infow("result saved", "source", path, "path", out)
	return out, nil
}

// Serve runs the HTTP service until ctx is cancelled.
func Serve(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return err
	}

	logger, flush, err := logging.New(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer flush()

	srv := server.New(server.Options{
		Addr:      cfg.ListenAddr,
		Remover:   newRemover(opts, cfg, logger),
		Metrics:   metrics.NewRegistry(),
		Logger:    logger,
		ResultTTL: cfg.ResultTTL(),
	})
	return srv.Run(ctx)
}

// TailLogs returns the last n lines of the TUI log file at or above minLevel.
func TailLogs(opts Options, n int, minLevel string) ([]string, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(minLevel) == "" {
		minLevel = "debug"
	}
	keep, err := logtail.MinLevel(minLevel)
	if err != nil {
		return nil, err
	}
	return logtail.Read(cfg.LogPath, n, keep)
}
