package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openaprs/aprsinject/internal/logger"
	"github.com/openaprs/aprsinject/pkg/broker"
	"github.com/openaprs/aprsinject/pkg/cache"
	"github.com/openaprs/aprsinject/pkg/config"
	"github.com/openaprs/aprsinject/pkg/db"
	"github.com/openaprs/aprsinject/pkg/metrics"
	"github.com/openaprs/aprsinject/pkg/store"
	"github.com/openaprs/aprsinject/pkg/worker"

	// Import prometheus metrics to register init() functions
	_ "github.com/openaprs/aprsinject/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ingest worker",
	Long: `Start the aprsinject ingest worker with the specified configuration.

The worker subscribes to the configured STOMP destination, walks every packet
through parse, reject checks, entity resolution, and injection, and keeps
running until interrupted.

Examples:
  # Start with default config location
  aprsinject start

  # Start with custom config file
  aprsinject start --config /etc/aprsinject/config.yaml

  # Start with environment variable overrides
  APRSINJECT_LOGGING_LEVEL=DEBUG aprsinject start`,
	RunE: runStart,
}

var consoleGlyphs bool

func init() {
	startCmd.Flags().BoolVar(&consoleGlyphs, "console", false, "Print a one-character console glyph per processed packet")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if consoleGlyphs {
		cfg.Worker.Glyphs = true
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("aprsinject starting", "version", Version)
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)

	// Initialize metrics FIRST so the worker metrics constructor sees the
	// registry when it runs.
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server error", logger.KeyError, err)
			}
		}()
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("Metrics collection disabled")
	}

	d, err := db.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Error("Database close error", logger.KeyError, err)
		}
	}()
	logger.Info("Database connected",
		"host", cfg.Database.Host,
		"database", cfg.Database.Database)

	c := cache.New(cfg.Memcached)
	logger.Info("Cache configured", "host", cfg.Memcached.Host)

	st := store.New(d, c, cfg.Store)

	b := broker.New(cfg.Broker)
	if err := b.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer b.Close()
	logger.Info("Broker connected", "source", cfg.Broker.Source)

	w := worker.New(b, st, cfg.Worker, metrics.NewWorkerMetrics())

	// Start the worker loop in background
	workerDone := make(chan error, 1)
	go func() {
		workerDone <- w.Run(ctx)
	}()

	// Wait for interrupt signal or worker error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Worker is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker shutdown error", logger.KeyError, err)
			return err
		}
		logger.Info("Worker stopped gracefully")

	case err := <-workerDone:
		signal.Stop(sigChan)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker error", logger.KeyError, err)
			return err
		}
		logger.Info("Worker stopped")
	}

	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", logger.KeyError, err)
		}
	}

	return nil
}
