package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/Yogeshviper/azure-ai-operator/internal/adapters/azure"
	"github.com/Yogeshviper/azure-ai-operator/internal/adapters/azureopenai"
	"github.com/Yogeshviper/azure-ai-operator/internal/adapters/ollama"
	"github.com/Yogeshviper/azure-ai-operator/internal/adapters/postgres"
	"github.com/Yogeshviper/azure-ai-operator/internal/adapters/rest"
	"github.com/Yogeshviper/azure-ai-operator/internal/adapters/sqlite"
	"github.com/Yogeshviper/azure-ai-operator/internal/conf"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/ports"
	"github.com/Yogeshviper/azure-ai-operator/internal/core/services"
	"github.com/Yogeshviper/azure-ai-operator/internal/monitoring"
	"github.com/Yogeshviper/azure-ai-operator/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("operator exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration: fail early when a required value is missing.
	cfg, err := conf.Load()
	if err != nil {
		return err
	}
	cfg.Logging.SetDefaultLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Driven adapters.
	repo, repoCloser, err := newRepository(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer repoCloser.Close()

	intentCompiler, err := newIntentCompiler(cfg)
	if err != nil {
		return err
	}

	cred, err := azure.NewCredential(cfg.Azure)
	if err != nil {
		return err
	}
	provisioner, err := azure.NewProvisioner(cfg.Azure, cfg.Provisioning, cred, slog.Default())
	if err != nil {
		return err
	}

	// 3. Core service, with every client injected.
	registry := monitoring.NewRegistry(cfg.Monitoring)
	monitor := monitoring.NewMonitor()
	registry.MustRegister(monitor)

	svc := services.NewDispatcher(intentCompiler, provisioner, repo, monitor, slog.Default())

	// 4. Driving adapter.
	pool := worker.NewPool(cfg.Server.Workers, cfg.Server.QueueSize)
	pool.Start()
	defer func() {
		slog.Info("waiting for in-flight turns to finish")
		pool.Stop()
		slog.Info("operator stopped")
	}()

	handler := rest.NewHandler(svc, pool, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}

	// 5. Serve until a signal arrives.
	slog.Info("operator API is running",
		"addr", ln.Addr().String(),
		"llm", cfg.LLM.Provider,
		"storage", cfg.Storage.Driver,
	)
	return serve(ctx, srv, ln, shutdownTimeout, stop)
}

// serve runs srv on ln until ctx is done, then shuts it down. After the
// first signal, stopSignals restores default handling so a second one
// terminates the process. Connections still open after timeout are
// abandoned with a warning: their turns keep running in the pool.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration, stopSignals func()) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		stopSignals()
		slog.Info("shutting down server; send the signal again to exit immediately")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown incomplete, requests still in flight", "error", err)
		}
		return nil
	})
	return g.Wait()
}

func newRepository(ctx context.Context, cfg conf.StorageConfig) (ports.TurnRepository, io.Closer, error) {
	switch cfg.Driver {
	case conf.DriverSQLite:
		a, err := sqlite.NewAdapter(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return a, a, nil
	case conf.DriverMemory:
		a, err := sqlite.NewAdapter(sqlite.MemoryPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return a, a, nil
	case conf.DriverPostgres:
		a, err := postgres.NewAdapter(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return a, a, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}

func newIntentCompiler(cfg conf.Config) (ports.IntentCompiler, error) {
	switch cfg.LLM.Provider {
	case conf.ProviderAzureOpenAI:
		return azureopenai.NewClient(azureopenai.Config{
			Endpoint:     cfg.LLM.Endpoint,
			Deployment:   cfg.LLM.Deployment,
			APIVersion:   cfg.LLM.APIVersion,
			APIKey:       cfg.LLM.APIKey,
			Timeout:      cfg.LLM.Timeout,
			TenantID:     cfg.Azure.TenantID,
			ClientID:     cfg.Azure.ClientID,
			ClientSecret: cfg.Azure.ClientSecret,
		}), nil
	case conf.ProviderOllama:
		return ollama.NewClient(cfg.LLM.OllamaHost, cfg.LLM.OllamaModel, cfg.LLM.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}
}
