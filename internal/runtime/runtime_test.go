package runtime

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diegojrodriguess/c317-backend/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func readyStatus(t *testing.T, r *Runtime) int {
	t.Helper()
	rec := httptest.NewRecorder()
	r.handleReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return rec.Code
}

func TestReadyWithoutBus(t *testing.T) {
	r := New(config.Default(), testLogger())
	r.ready.Store(true)

	if got := readyStatus(t, r); got != http.StatusOK {
		t.Fatalf("expected 200 with bus disabled, got %d", got)
	}
}

func TestNotReadyBeforeStart(t *testing.T) {
	r := New(config.Default(), testLogger())

	if got := readyStatus(t, r); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before start, got %d", got)
	}
}

// An enabled bus with no live connection must report not-ready even after
// the pipeline itself came up.
func TestNotReadyWhenBusDown(t *testing.T) {
	cfg := config.Default()
	cfg.Bus.Enabled = true
	r := New(cfg, testLogger())
	r.ready.Store(true)

	if got := readyStatus(t, r); got != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with bus down, got %d", got)
	}
}
