package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diegojrodriguess/c317-backend/internal/config"
	"github.com/diegojrodriguess/c317-backend/internal/consultation"
	"github.com/diegojrodriguess/c317-backend/internal/evaluator"
	"github.com/diegojrodriguess/c317-backend/internal/report"
)

// End-to-end pipeline over the real SQLite store and PDF generator, with the
// mock evaluator standing in for the scoring backend.
func TestPipelineEndToEnd(t *testing.T) {
	tmp := t.TempDir()
	ctx := context.Background()

	store, err := consultation.Open(ctx, config.StoreConfig{Path: filepath.Join(tmp, "consultations.db")}, testLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	reports := report.NewGenerator(config.ReportConfig{OutputDir: filepath.Join(tmp, "reports")}, testLogger())
	eval := evaluator.NewMockEvaluator()
	o := New(eval, store, reports, nil, testLogger())

	audioPath := filepath.Join(tmp, "audio-1.mp3")
	if err := os.WriteFile(audioPath, []byte("audio-bytes"), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}

	resp, err := o.Evaluate(ctx, Submission{
		FilePath:     audioPath,
		UserID:       "user-1",
		TargetWord:   "casa",
		OriginalName: "recording.mp3",
		StoredName:   "audio-1.mp3",
		Size:         11,
		MimeType:     "audio/mpeg",
	})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(resp.Warnings) != 0 {
		t.Fatalf("expected clean run, got warnings %v", resp.Warnings)
	}
	if resp.Transcription != "casa" {
		t.Fatalf("unexpected transcription %q", resp.Transcription)
	}
	if resp.ReportPath == "" {
		t.Fatal("expected a report path")
	}
	if _, err := os.Stat(resp.ReportPath); err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if !strings.HasSuffix(resp.ReportPath, ".pdf") {
		t.Fatalf("unexpected report path %q", resp.ReportPath)
	}

	records, err := o.History(ctx, "user-1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one consultation, got %d", len(records))
	}
	if records[0].ReportPath != resp.ReportPath {
		t.Fatalf("record not patched with report path: %q vs %q", records[0].ReportPath, resp.ReportPath)
	}
	if records[0].Transcription != "casa" || records[0].Score != 1 {
		t.Fatalf("record content wrong: %+v", records[0])
	}
}
