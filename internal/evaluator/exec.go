package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/config"
	"github.com/mattn/go-shellwords"
)

type execEvaluator struct {
	cmd     []string
	script  string
	timeout time.Duration
	log     *slog.Logger
	clock   func() time.Time
}

// NewExecEvaluator spawns a local scoring script and parses the JSON object
// it writes to stdout. The process contract: exit 0 plus one JSON object
// means success; any other exit code means failure regardless of stdout.
func NewExecEvaluator(cfg config.EvaluatorConfig, log *slog.Logger) (Evaluator, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse evaluator command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("evaluator command is empty")
	}
	return &execEvaluator{
		cmd:     args,
		script:  cfg.ScriptPath,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:     log.With(slog.String("component", "evaluator.exec")),
		clock:   time.Now,
	}, nil
}

func (e *execEvaluator) Evaluate(ctx context.Context, filePath string, opts Options) (Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := append([]string{}, e.cmd[1:]...)
	args = append(args, e.script, filePath)
	// Optional positions are omitted entirely, never passed as empty strings.
	if opts.TargetWord != "" {
		args = append(args, opts.TargetWord)
	}
	if opts.Provider != "" {
		args = append(args, opts.Provider)
	}

	command := exec.CommandContext(ctx, e.cmd[0], args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if diag := strings.TrimSpace(stderr.String()); diag != "" {
		// stderr is diagnostics only; it never fails the evaluation on its own.
		e.log.Warn("evaluator process stderr", slog.String("stderr", diag))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			detail := "evaluator process canceled"
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				detail = "evaluator process timed out"
			}
			return Result{}, &BackendError{Backend: "exec", Status: StatusNone, Detail: detail, cause: ctxErr}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, &BackendError{
				Backend: "exec",
				Status:  exitErr.ExitCode(),
				Detail:  strings.TrimSpace(stderr.String()),
				cause:   err,
			}
		}
		return Result{}, &SpawnError{Command: e.cmd[0], cause: err}
	}

	raw := bytes.TrimSpace(stdout.Bytes())
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Result{}, &ParseError{Output: stdout.String(), cause: err}
	}
	return normalize(data, false, e.clock().UTC()), nil
}
