package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/config"
)

// Result is the canonical evaluation shape every backend variant produces.
// Alias resolution between provider-specific field names never leaks past
// this package.
type Result struct {
	Success       bool
	Transcription string
	Score         float64
	Message       string
	Match         *bool // nil when the backend omitted the field
	Evaluation    string
	Errors        []string
	Suggestions   []string
	Highlights    map[string]any
	ProcessedAt   time.Time
}

// Options carries per-submission metadata forwarded to the backend.
type Options struct {
	TargetWord string
	Provider   string
	UserID     string
}

// Evaluator turns an audio file into a transcription/score judgement.
// A detected failure is always an error return; no variant ever produces
// a success-shaped Result with Success=false.
type Evaluator interface {
	Evaluate(ctx context.Context, filePath string, opts Options) (Result, error)
}

// New selects the backend variant once from configuration. The choice is
// fixed for the lifetime of the process.
func New(cfg config.EvaluatorConfig, log *slog.Logger) (Evaluator, error) {
	switch cfg.Mode {
	case "mock":
		return NewMockEvaluator(), nil
	case "http":
		return NewHTTPEvaluator(cfg, log), nil
	case "exec":
		return NewExecEvaluator(cfg, log)
	default:
		return nil, fmt.Errorf("unknown evaluator mode %q", cfg.Mode)
	}
}
