package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xpmourad/ori-AI-Background-Remover/internal/media"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Model != defaultModel || cfg.APIKeyEnv != defaultAPIKeyEnv {
		t.Fatalf("cfg = %+v, want default model and key env", cfg)
	}
	wantLog, err := ExpandPath(defaultLogPath)
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if cfg.LogPath != wantLog {
		t.Fatalf("LogPath = %q, want %q", cfg.LogPath, wantLog)
	}
	if cfg.Format() != media.FormatPNG {
		t.Fatalf("Format = %q, want png", cfg.Format())
	}
	if cfg.ResultTTL() != 10*time.Minute {
		t.Fatalf("ResultTTL = %v, want 10m", cfg.ResultTTL())
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := writeConfig(t, `
model = "  gemini-custom  "
output_dir = " ~/out "
output_format = "WEBP"
log_level = "DEBUG"
result_ttl_seconds = 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Model != "gemini-custom" {
		t.Fatalf("Model = %q, want gemini-custom", cfg.Model)
	}
	if cfg.OutputDir != filepath.Join(home, "out") {
		t.Fatalf("OutputDir = %q, want under HOME", cfg.OutputDir)
	}
	if cfg.Format() != media.FormatWebP || cfg.LogLevel != "debug" {
		t.Fatalf("format=%q level=%q", cfg.Format(), cfg.LogLevel)
	}
	if cfg.ResultTTL() != 30*time.Second {
		t.Fatalf("ResultTTL = %v, want 30s", cfg.ResultTTL())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BGREMOVER_MODEL", "from-env")
	t.Setenv("BGREMOVER_API_KEY_ENV", "API_KEY")

	cfg, err := Load(writeConfig(t, `model = "from-file"`))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Model != "from-env" || cfg.APIKeyEnv != "API_KEY" {
		t.Fatalf("cfg = %+v, want env overrides", cfg)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	_, err := Load(writeConfig(t, `model = [`))
	if err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %v, want parse config error", err)
	}
}

func TestValidate_RejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	for name, body := range map[string]string{
		"format":    `output_format = "gif"`,
		"ttl":       `result_ttl_seconds = -1`,
		"log level": `log_level = "loud"`,
	} {
		t.Run(name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, body))
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			if err := cfg.Validate(); err == nil {
				t.Fatalf("Validate returned nil error for %s", body)
			}
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("Validate(Defaults()) = %v", err)
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BGREMOVER_DOTENV_A=from-file\nBGREMOVER_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("BGREMOVER_DOTENV_A", "already-set")
	t.Setenv("BGREMOVER_DOTENV_B", "")
	os.Unsetenv("BGREMOVER_DOTENV_B")

	LoadDotEnv(path)
	t.Cleanup(func() { os.Unsetenv("BGREMOVER_DOTENV_B") })

	if got := os.Getenv("BGREMOVER_DOTENV_A"); got != "already-set" {
		t.Fatalf("A = %q, want already-set", got)
	}
	if got := os.Getenv("BGREMOVER_DOTENV_B"); got != "from-file" {
		t.Fatalf("B = %q, want from-file", got)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/a/b")
	if err != nil {
		t.Fatalf("ExpandPath returned error: %v", err)
	}
	if got != filepath.Join(home, "a/b") {
		t.Fatalf("ExpandPath = %q", got)
	}
	if _, err := ExpandPath("   "); err == nil {
		t.Fatalf("ExpandPath(blank) returned nil error")
	}
}
