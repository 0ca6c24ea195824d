package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
)

// Config holds every setting bgremover reads at startup.
type Config struct {
	Model            string `toml:"model" env:"BGREMOVER_MODEL"`
	APIKeyEnv        string `toml:"api_key_env" env:"BGREMOVER_API_KEY_ENV"`
	BaseURL          string `toml:"base_url" env:"BGREMOVER_BASE_URL"`
	OutputDir        string `toml:"output_dir" env:"BGREMOVER_OUTPUT_DIR"`
	OutputFormat     string `toml:"output_format" env:"BGREMOVER_OUTPUT_FORMAT"`
	LogPath          string `toml:"log_path" env:"BGREMOVER_LOG_PATH"`
	LogLevel         string `toml:"log_level" env:"BGREMOVER_LOG_LEVEL"`
	ListenAddr       string `toml:"listen_addr" env:"BGREMOVER_LISTEN_ADDR"`
	ResultTTLSeconds int    `toml:"result_ttl_seconds" env:"BGREMOVER_RESULT_TTL_SECONDS"`
}

const (
	defaultConfigPath = "~/.config/bgremover/config.toml"
	defaultModel      = "gemini-2.5-flash-image"
	defaultAPIKeyEnv  = "GEMINI_API_KEY"
	defaultOutputDir  = "."
	defaultLogPath    = "~/.local/share/bgremover/bgremover.log"
	defaultLogLevel   = "info"
	defaultListenAddr = "127.0.0.1:8089"
	defaultResultTTL  = 600
)

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Model:            defaultModel,
		APIKeyEnv:        defaultAPIKeyEnv,
		OutputDir:        defaultOutputDir,
		OutputFormat:     string(media.FormatPNG),
		LogPath:          defaultLogPath,
		LogLevel:         defaultLogLevel,
		ListenAddr:       defaultListenAddr,
		ResultTTLSeconds: defaultResultTTL,
	}
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// Load reads the TOML file at path (default location when empty), then
// applies BGREMOVER_* environment overrides. A missing file is not an error.
// Values are not validated; callers layer their own overrides first and then
// call Validate.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Defaults()

	file, err := os.Open(resolved)
	switch {
	case err == nil:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(bytes, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	def := Defaults()
	c.Model = orDefault(c.Model, def.Model)
	c.APIKeyEnv = orDefault(c.APIKeyEnv, def.APIKeyEnv)
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.OutputDir = mustExpand(orDefault(c.OutputDir, def.OutputDir))
	c.OutputFormat = strings.ToLower(orDefault(c.OutputFormat, def.OutputFormat))
	c.LogPath = mustExpand(orDefault(c.LogPath, def.LogPath))
	c.LogLevel = strings.ToLower(orDefault(c.LogLevel, def.LogLevel))
	c.ListenAddr = orDefault(c.ListenAddr, def.ListenAddr)
}

// Validate checks values that cannot be defaulted away.
func (c Config) Validate() error {
	if _, err := media.ParseFormat(c.OutputFormat); err != nil {
		return fmt.Errorf("output_format: %w", err)
	}
	if c.ResultTTLSeconds < 0 {
		return fmt.Errorf("result_ttl_seconds must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug|info|warn|error, got %q", c.LogLevel)
	}
	return nil
}

// Format returns the parsed output format.
func (c Config) Format() media.Format {
	f, err := media.ParseFormat(c.OutputFormat)
	if err != nil {
		return media.FormatPNG
	}
	return f
}

// ResultTTL is how long the server keeps processed images.
func (c Config) ResultTTL() time.Duration {
	return time.Duration(c.ResultTTLSeconds) * time.Second
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	return defaultConfigPath
}

func orDefault(v, def string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return def
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath expands a leading tilde and returns an absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
