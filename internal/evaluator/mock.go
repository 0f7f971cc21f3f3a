package evaluator

import (
	"context"
	"time"
)

type mockEvaluator struct {
	clock func() time.Time
}

// NewMockEvaluator returns a deterministic backend for development and tests.
func NewMockEvaluator() Evaluator {
	return &mockEvaluator{clock: time.Now}
}

func (m *mockEvaluator) Evaluate(_ context.Context, _ string, opts Options) (Result, error) {
	transcription := opts.TargetWord
	if transcription == "" {
		transcription = "mock transcription"
	}
	matched := opts.TargetWord != ""
	return Result{
		Success:       true,
		Transcription: transcription,
		Score:         1,
		Message:       defaultSuccessMessage,
		Match:         &matched,
		Errors:        []string{},
		Suggestions:   []string{},
		Highlights:    map[string]any{},
		ProcessedAt:   m.clock().UTC(),
	}, nil
}
