package report

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestRenderWritesPDF(t *testing.T) {
	outDir := t.TempDir()
	gen := NewGenerator(config.ReportConfig{OutputDir: outDir}, newLogger())

	score := 0.92
	path, err := gen.Render(Fields{
		UserID:        "user-1",
		TargetWord:    "casa",
		Transcription: "casa",
		Score:         &score,
		Feedback:      "Boa pronúncia",
		Suggestions:   []string{"fale mais devagar"},
		AudioDuration: 1200 * time.Millisecond,
	}, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if filepath.Dir(path) != outDir {
		t.Fatalf("report written outside output dir: %q", path)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "report-") || !strings.HasSuffix(name, ".pdf") {
		t.Fatalf("unexpected default filename %q", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestRenderFilenameOverride(t *testing.T) {
	outDir := t.TempDir()
	gen := NewGenerator(config.ReportConfig{OutputDir: outDir}, newLogger())

	path, err := gen.Render(Fields{}, "custom.pdf")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if filepath.Base(path) != "custom.pdf" {
		t.Fatalf("override ignored, got %q", path)
	}
}

func TestRenderDefaultNamesNeverCollide(t *testing.T) {
	outDir := t.TempDir()
	gen := NewGenerator(config.ReportConfig{OutputDir: outDir}, newLogger())
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	gen.clock = func() time.Time { return fixed }

	first, err := gen.Render(Fields{}, "")
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := gen.Render(Fields{}, "")
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if first == second {
		t.Fatal("same-millisecond renders must not share a filename")
	}
}

func TestRenderCreatesOutputDir(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "nested", "reports")
	gen := NewGenerator(config.ReportConfig{OutputDir: outDir}, newLogger())

	if _, err := gen.Render(Fields{}, ""); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(outDir); err != nil {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestRenderFailsOnUnwritableDir(t *testing.T) {
	blocked := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	// Output dir path points at an existing regular file.
	gen := NewGenerator(config.ReportConfig{OutputDir: blocked}, newLogger())
	if _, err := gen.Render(Fields{}, ""); err == nil {
		t.Fatal("expected error for unwritable output dir")
	}
}
