package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/diegojrodriguess/c317-backend/internal/bus"
	"github.com/diegojrodriguess/c317-backend/internal/config"
	"github.com/diegojrodriguess/c317-backend/internal/consultation"
	"github.com/diegojrodriguess/c317-backend/internal/evaluator"
	"github.com/diegojrodriguess/c317-backend/internal/natsserver"
	"github.com/diegojrodriguess/c317-backend/internal/orchestrator"
	"github.com/diegojrodriguess/c317-backend/internal/report"
)

// Runtime wires configuration into the evaluation pipeline and owns the
// lifecycle of every collaborator: telemetry, bus, store, and HTTP endpoints.
type Runtime struct {
	cfg           config.Config
	logger        *slog.Logger
	httpServer    *http.Server
	metricsServer *http.Server
	tracerClose   func(context.Context) error
	orchestrator  *orchestrator.Orchestrator
	busClient     *bus.Client
	ready         atomic.Bool
	wg            sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Orchestrator exposes the pipeline to the transport layer. Valid only
// after Start has signalled readiness.
func (r *Runtime) Orchestrator() *orchestrator.Orchestrator {
	return r.orchestrator
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	var embedded *natsserver.EmbeddedServer
	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		servers := r.cfg.Bus.Servers
		if r.cfg.Bus.Embedded {
			servers = []string{fmt.Sprintf("nats://localhost:%d", r.cfg.Bus.Port)}
		}
		busCfg := r.cfg.Bus
		busCfg.Servers = servers
		busClient, err = bus.Connect(ctx, busCfg, r.logger)
		if err != nil {
			embedded.Shutdown()
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		r.busClient = busClient
	}

	store, err := consultation.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		busClient.Close()
		embedded.Shutdown()
		return fmt.Errorf("failed to open consultation store: %w", err)
	}

	eval, err := evaluator.New(r.cfg.Evaluator, r.logger)
	if err != nil {
		store.Close()
		busClient.Close()
		embedded.Shutdown()
		return fmt.Errorf("failed to build evaluator: %w", err)
	}

	reports := report.NewGenerator(r.cfg.Report, r.logger)

	var publisher orchestrator.Publisher
	if busClient != nil {
		publisher = busClient
	}
	r.orchestrator = orchestrator.New(eval, store, reports, publisher, r.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Metrics get their own listener so scrapes never contend with the
	// health endpoints.
	if metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		r.metricsServer = &http.Server{
			Addr:              r.cfg.Telemetry.PrometheusBind,
			Handler:           metricsMux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			if err := r.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				r.logger.Error("metrics server failed", slog.String("error", err.Error()))
			}
		}()
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("evaluator_mode", r.cfg.Evaluator.Mode))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	if r.metricsServer != nil {
		if err := r.metricsServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Error("metrics shutdown error", slog.String("error", err.Error()))
		}
	}
	r.wg.Wait()

	busClient.Close()
	embedded.Shutdown()
	if err := store.Close(); err != nil {
		r.logger.Error("store close error", slog.String("error", err.Error()))
	}

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() && r.busReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

// busReady gates readiness on the NATS connection when the bus is enabled.
func (r *Runtime) busReady() bool {
	if !r.cfg.Bus.Enabled {
		return true
	}
	return r.busClient.Healthy()
}
