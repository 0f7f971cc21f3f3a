package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Evaluator.Mode != "http" {
		t.Fatalf("expected default evaluator mode http, got %q", cfg.Evaluator.Mode)
	}
	if cfg.Evaluator.DefaultProvider != "gemini" {
		t.Fatalf("expected default provider gemini, got %q", cfg.Evaluator.DefaultProvider)
	}
	if cfg.Upload.MaxFileSize != 50*1024*1024 {
		t.Fatalf("expected 50MB default upload limit, got %d", cfg.Upload.MaxFileSize)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "c317.yaml")
	data := []byte(`
evaluator:
  mode: exec
  command: python3
  script_path: ./scripts/eval.py
  timeout_ms: 60000
store:
  path: ./tmp/test.db
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Evaluator.Mode != "exec" {
		t.Fatalf("expected exec mode, got %q", cfg.Evaluator.Mode)
	}
	if cfg.Evaluator.Command != "python3" {
		t.Fatalf("expected command override, got %q", cfg.Evaluator.Command)
	}
	if cfg.Evaluator.TimeoutMS != 60000 {
		t.Fatalf("expected timeout override, got %d", cfg.Evaluator.TimeoutMS)
	}
	if cfg.Store.Path != "./tmp/test.db" {
		t.Fatalf("expected store path override, got %q", cfg.Store.Path)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("C317_EVALUATOR_MODE", "exec")
	t.Setenv("C317_EVALUATOR_COMMAND", "python3")
	t.Setenv("C317_EVALUATOR_SCRIPT_PATH", "./eval.py")
	t.Setenv("C317_EVALUATOR_TIMEOUT_MS", "1234")
	t.Setenv("C317_UPLOAD_ALLOWED_FORMATS", ".wav, .mp3")
	t.Setenv("C317_UPLOAD_MAX_FILE_SIZE", "1048576")
	t.Setenv("C317_STORE_PATH", "./tmp.db")
	t.Setenv("C317_BUS_ENABLED", "true")
	t.Setenv("C317_BUS_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Evaluator.Mode != "exec" {
		t.Fatalf("expected exec mode, got %q", cfg.Evaluator.Mode)
	}
	if cfg.Evaluator.TimeoutMS != 1234 {
		t.Fatalf("expected timeout 1234, got %d", cfg.Evaluator.TimeoutMS)
	}
	if len(cfg.Upload.AllowedFormats) != 2 {
		t.Fatalf("expected 2 formats, got %v", cfg.Upload.AllowedFormats)
	}
	if cfg.Upload.MaxFileSize != 1048576 {
		t.Fatalf("expected size override, got %d", cfg.Upload.MaxFileSize)
	}
	if cfg.Store.Path != "./tmp.db" {
		t.Fatalf("expected store path override, got %q", cfg.Store.Path)
	}
	if !cfg.Bus.Enabled || len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected bus overrides, got %+v", cfg.Bus)
	}
}

func TestLegacyEnvNames(t *testing.T) {
	t.Setenv("IA_API_URL", "http://ia.internal:8000")
	t.Setenv("PYTHON_EXECUTABLE", "/usr/bin/python3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Evaluator.Endpoint != "http://ia.internal:8000" {
		t.Fatalf("expected legacy endpoint override, got %q", cfg.Evaluator.Endpoint)
	}
	if cfg.Evaluator.Command != "/usr/bin/python3" {
		t.Fatalf("expected legacy command override, got %q", cfg.Evaluator.Command)
	}
}

func TestValidateRejectsBadMode(t *testing.T) {
	t.Setenv("C317_EVALUATOR_MODE", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for unknown evaluator mode")
	}
}

func TestSlogLevelMapping(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"ERROR":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		got := TelemetryConfig{LogLevel: in}.SlogLevel()
		if got != want {
			t.Fatalf("level %q: got %v, want %v", in, got, want)
		}
	}
}
