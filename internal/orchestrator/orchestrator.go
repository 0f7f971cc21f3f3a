// Package orchestrator sequences one audio submission through validation,
// evaluation, persistence, and best-effort report generation.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/audioprobe"
	"github.com/diegojrodriguess/c317-backend/internal/consultation"
	"github.com/diegojrodriguess/c317-backend/internal/evaluator"
	"github.com/diegojrodriguess/c317-backend/internal/protocol"
	"github.com/diegojrodriguess/c317-backend/internal/report"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	anonymousUser   = "anonymous"
	defaultProvider = "gemini"
)

// Submission is one uploaded audio sample plus its caller-declared metadata.
// The upload boundary has already checked extension, MIME type, and size.
type Submission struct {
	FilePath     string
	UserID       string
	TargetWord   string
	Provider     string
	OriginalName string
	StoredName   string
	Size         int64
	MimeType     string
}

// Response is the composed pipeline outcome. ReportPath is empty when report
// generation failed; Warnings lists every degraded-but-swallowed step.
type Response struct {
	OriginalName  string
	Filename      string
	Size          int64
	MimeType      string
	Success       bool
	Transcription string
	Score         float64
	Feedback      string
	Match         *bool
	Evaluation    string
	ProcessedAt   time.Time
	ReportPath    string
	Warnings      []string
}

// ValidationError reports a submission rejected before any evaluator call.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Recorder is the consultation storage collaborator.
type Recorder interface {
	Create(ctx context.Context, rec consultation.Record) (consultation.Record, error)
	FindRecent(ctx context.Context, userID string, limit int) ([]consultation.Record, error)
	PatchReportPath(ctx context.Context, id, path string) (consultation.Record, error)
}

// Reporter renders a consultation into a document on disk.
type Reporter interface {
	Render(fields report.Fields, filename string) (string, error)
}

// Publisher broadcasts completion events. May be nil when the bus is disabled.
type Publisher interface {
	PublishJSON(subject string, payload any) error
}

type Orchestrator struct {
	eval      evaluator.Evaluator
	store     Recorder
	reports   Reporter
	publisher Publisher
	log       *slog.Logger
	tracer    trace.Tracer
	completed metric.Int64Counter
	failed    metric.Int64Counter
}

func New(eval evaluator.Evaluator, store Recorder, reports Reporter, publisher Publisher, log *slog.Logger) *Orchestrator {
	meter := otel.Meter("c317-backend/orchestrator")
	completed, _ := meter.Int64Counter("consultations_completed_total")
	failed, _ := meter.Int64Counter("consultations_failed_total")
	return &Orchestrator{
		eval:      eval,
		store:     store,
		reports:   reports,
		publisher: publisher,
		log:       log.With(slog.String("component", "orchestrator")),
		tracer:    otel.Tracer("c317-backend/orchestrator"),
		completed: completed,
		failed:    failed,
	}
}

// Evaluate runs the full pipeline for one submission. Failures before the
// record exists abort the request; failures after it degrade into warnings
// and the submission still completes.
func (o *Orchestrator) Evaluate(ctx context.Context, sub Submission) (Response, error) {
	ctx, span := o.tracer.Start(ctx, "consultation.evaluate",
		trace.WithAttributes(attribute.String("provider", providerOf(sub))))
	defer span.End()

	if err := validate(sub); err != nil {
		o.fail(ctx, span, "validation", err)
		return Response{}, err
	}

	result, err := o.eval.Evaluate(ctx, sub.FilePath, evaluator.Options{
		TargetWord: sub.TargetWord,
		Provider:   sub.Provider,
		UserID:     sub.UserID,
	})
	if err != nil {
		o.fail(ctx, span, "evaluation", err)
		return Response{}, err
	}

	userID := sub.UserID
	if userID == "" {
		userID = anonymousUser
	}
	created, err := o.store.Create(ctx, consultation.Record{
		UserID:        userID,
		TargetWord:    sub.TargetWord,
		Transcription: result.Transcription,
		Score:         result.Score,
		Feedback:      result.Message,
		Errors:        result.Errors,
		Suggestions:   result.Suggestions,
		Highlights:    result.Highlights,
		AudioFilename: sub.StoredName,
		Provider:      providerOf(sub),
	})
	if err != nil {
		err = fmt.Errorf("persist consultation: %w", err)
		o.fail(ctx, span, "persistence", err)
		return Response{}, err
	}

	resp := Response{
		OriginalName:  sub.OriginalName,
		Filename:      sub.StoredName,
		Size:          sub.Size,
		MimeType:      sub.MimeType,
		Success:       result.Success,
		Transcription: result.Transcription,
		Score:         result.Score,
		Feedback:      result.Message,
		Match:         result.Match,
		Evaluation:    result.Evaluation,
		ProcessedAt:   result.ProcessedAt,
		Warnings:      []string{},
	}

	probe := audioprobe.Probe(sub.FilePath)
	resp.ReportPath = o.attemptReport(ctx, created, sub, result, probe, &resp.Warnings)
	o.publishCompleted(created, sub, result, resp.ReportPath, probe, &resp.Warnings)

	o.completed.Add(ctx, 1)
	return resp, nil
}

// History returns the most recent consultations for one user.
func (o *Orchestrator) History(ctx context.Context, userID string, limit int) ([]consultation.Record, error) {
	return o.store.FindRecent(ctx, userID, limit)
}

// attemptReport renders the report and patches its path onto the record.
// Every failure here is demoted to a warning: the record already exists and
// the caller still gets a success response.
func (o *Orchestrator) attemptReport(ctx context.Context, created consultation.Record, sub Submission, result evaluator.Result, probe audioprobe.Info, warnings *[]string) string {
	score := result.Score
	fields := report.Fields{
		UserID:        sub.UserID,
		TargetWord:    sub.TargetWord,
		Transcription: result.Transcription,
		Score:         &score,
		Feedback:      result.Message,
		Suggestions:   result.Suggestions,
		AudioDuration: probe.Duration,
	}

	path, err := o.reports.Render(fields, "")
	if err != nil {
		o.log.Error("report generation failed",
			slog.String("consultation_id", created.ID),
			slog.String("error", err.Error()))
		*warnings = append(*warnings, fmt.Sprintf("report generation failed: %v", err))
		return ""
	}

	if _, err := o.store.PatchReportPath(ctx, created.ID, path); err != nil {
		o.log.Warn("report path patch failed",
			slog.String("consultation_id", created.ID),
			slog.String("error", err.Error()))
		*warnings = append(*warnings, fmt.Sprintf("report path patch failed: %v", err))
	}
	return path
}

func (o *Orchestrator) publishCompleted(created consultation.Record, sub Submission, result evaluator.Result, reportPath string, probe audioprobe.Info, warnings *[]string) {
	if o.publisher == nil {
		return
	}
	event := protocol.ConsultationCompleted{
		ConsultationID:  created.ID,
		UserID:          created.UserID,
		TargetWord:      sub.TargetWord,
		Transcription:   result.Transcription,
		Score:           result.Score,
		Provider:        providerOf(sub),
		ReportPath:      reportPath,
		AudioDurationMS: probe.Duration.Milliseconds(),
		CompletedAt:     result.ProcessedAt,
	}
	if err := o.publisher.PublishJSON(protocol.SubjectConsultationCompleted, event); err != nil {
		o.log.Warn("completion event publish failed",
			slog.String("consultation_id", created.ID),
			slog.String("error", err.Error()))
		*warnings = append(*warnings, fmt.Sprintf("completion event publish failed: %v", err))
	}
}

func (o *Orchestrator) fail(ctx context.Context, span trace.Span, stage string, err error) {
	span.RecordError(err)
	o.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func validate(sub Submission) error {
	info, err := os.Stat(sub.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &ValidationError{Reason: "Arquivo de áudio não encontrado"}
		}
		return &ValidationError{Reason: fmt.Sprintf("arquivo de áudio inacessível: %v", err)}
	}
	if info.Size() == 0 {
		return &ValidationError{Reason: "Arquivo de áudio está vazio"}
	}
	f, err := os.Open(sub.FilePath)
	if err != nil {
		return &ValidationError{Reason: fmt.Sprintf("arquivo de áudio ilegível: %v", err)}
	}
	f.Close()
	return nil
}

func providerOf(sub Submission) string {
	if sub.Provider != "" {
		return sub.Provider
	}
	return defaultProvider
}
