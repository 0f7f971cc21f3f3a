package evaluator

import (
	"fmt"
	"strconv"
)

// StatusNone marks a backend failure with no upstream status available,
// such as a refused connection or a timed-out request.
const StatusNone = -1

// BackendError reports a backend that was reached but failed: a non-2xx
// remote response, a transport failure, or a nonzero subprocess exit.
// Status holds the HTTP status code or the process exit code.
type BackendError struct {
	Backend string // "http" or "exec"
	Status  int
	Detail  string
	cause   error
}

func (e *BackendError) Error() string {
	label := "no-status"
	if e.Status != StatusNone {
		label = strconv.Itoa(e.Status)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s evaluator failed [%s]: %s", e.Backend, label, e.Detail)
	}
	return fmt.Sprintf("%s evaluator failed [%s]", e.Backend, label)
}

func (e *BackendError) Unwrap() error { return e.cause }

// SpawnError reports a subprocess that could not be started at all
// (missing executable, permission denied).
type SpawnError struct {
	Command string
	cause   error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start evaluator process %q: %v", e.Command, e.cause)
}

func (e *SpawnError) Unwrap() error { return e.cause }

// ParseError reports a subprocess that exited cleanly but wrote malformed
// JSON to stdout. Distinct from BackendError so callers can tell a broken
// contract from a failed evaluation.
type ParseError struct {
	Output string
	cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse evaluator output: %v", e.cause)
}

func (e *ParseError) Unwrap() error { return e.cause }
