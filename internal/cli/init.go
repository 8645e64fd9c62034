// Package cli provides the initialization shared by cmd/casa and
// cmd/casa-admin: logging, environment, configuration and the wired
// application.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"casa/internal/analytics"
	"casa/internal/backend"
	"casa/internal/config"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/services"
)

// SetupLogger initializes structured logging and sets it as the default logger.
func SetupLogger(level, format string) *log.Logger {
	return SetupLoggerTo(level, format, os.Stdout)
}

// SetupLoggerTo is SetupLogger writing to w.
func SetupLoggerTo(level, format string, w io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Format = format
	cfg.Output = w
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// App is the fully wired application: one backend and the use cases on top.
type App struct {
	Engine     *analytics.Engine
	Expenses   *services.ExpenseService
	Snapshots  *services.SnapshotService
	Categories *services.CategoryService
	Split      *services.SplitSettingsService
	Backup     *services.BackupService

	backend *backend.BackendResult
}

// NewApp creates the backend described by cfg and wires the services over it.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	labels, ok := core.MonthLabelsFor(cfg.MonthLabelLocale)
	if !ok {
		logger.Warn("Unknown month label locale, using English", "locale", cfg.MonthLabelLocale)
	}

	engine := analytics.New(res.Store,
		analytics.WithMonthLabels(labels),
		analytics.WithLogger(logger))
	opts := []services.Option{services.WithLogger(logger)}

	return &App{
		Engine:     engine,
		Expenses:   services.NewExpenseService(res.Store, res.Events, opts...),
		Snapshots:  services.NewSnapshotService(res.Store, res.Events, opts...),
		Categories: services.NewCategoryService(res.Store, res.Events, opts...),
		Split:      services.NewSplitSettingsService(res.Store, res.Events, opts...),
		Backup:     services.NewBackupService(res.Store, engine, res.Backup, res.Events, opts...),
		backend:    res,
	}, nil
}

// Store exposes the record store for health checks.
func (a *App) Store() interface{ Ping(context.Context) error } {
	return a.backend.Store
}

// Close releases the backend connections.
func (a *App) Close() error {
	if a.backend == nil || a.backend.Cleanup == nil {
		return nil
	}
	return a.backend.Cleanup()
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// The returned context is cancelled once a signal arrives and cleanup,
// bounded by timeout, has run; done is closed right after.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		}

		cancel()
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
