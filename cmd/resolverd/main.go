// Command resolverd is the resolver service's process entry point
// (SPEC_FULL.md §4.N).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/audit"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/auth"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/cache"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/config"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/governance"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/handlers"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/logging"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/service"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("RESOLVER_CONFIG_FILE"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting resolverd",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("catalog_file", cfg.Catalog.FilePath),
	)

	nodes, err := catalog.LoadCatalog(cfg.Catalog.FilePath, time.Now())
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	registry := catalog.NewRegistry(time.Now)
	registry.RegisterMany(nodes)
	if errs := registry.ValidateSuccessors(); len(errs) > 0 {
		for _, e := range errs {
			log.Warn("successor chain problem", zap.String("detail", e))
		}
	}

	cacheInst := cache.NewInMemory(cfg.Cache.DefaultTTL, cfg.Cache.MaxSize)
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	cacheInst.StartCleanup(time.Minute, stopCleanup)

	sink, err := buildTelemetrySink(cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("build telemetry sink: %w", err)
	}
	emitter := telemetry.NewEmitter(sink, cfg.Telemetry.QueueSize, cfg.Telemetry.BatchSize, cfg.Telemetry.FlushInterval)

	auditStore, err := audit.NewStore(cfg.Audit.DatabaseDSN, cfg.Audit.FallbackBuffer, log)
	if err != nil {
		return fmt.Errorf("init audit store: %w", err)
	}

	gate := auth.NewGate(cfg.Security.SubmitToken, cfg.Security.ApproveToken, cfg.Security.LegacyToken)
	controller := governance.NewController(registry, time.Now, cfg.Catalog.DeprecationEnabled)
	svc := service.NewMonikerService(registry, cacheInst, emitter, cfg.Catalog.DeprecationEnabled)

	router := handlers.NewRouter(handlers.Dependencies{
		Service:     svc,
		Registry:    registry,
		Cache:       cacheInst,
		Emitter:     emitter,
		Audit:       auditStore,
		Gate:        gate,
		Controller:  controller,
		CatalogPath: func() string { return cfg.Catalog.FilePath },
		LoadCatalog: func(path string) ([]*catalog.CatalogNode, error) {
			return catalog.LoadCatalog(path, time.Now())
		},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info("server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	log.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	emitter.Stop(5 * time.Second)
	if err := auditStore.Close(); err != nil {
		log.Warn("audit store close failed", zap.Error(err))
	}

	log.Info("server stopped gracefully")
	return nil
}

func buildTelemetrySink(cfg config.TelemetryConfig, log *logging.Logger) (telemetry.Sink, error) {
	switch cfg.Sink {
	case "file":
		return telemetry.NewFileSink(cfg.FilePath)
	case "noop":
		return telemetry.NoopSink{}, nil
	default:
		return telemetry.NewConsoleSink(log), nil
	}
}
