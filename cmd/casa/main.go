package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"casa/internal/cli"
	apphttp "casa/internal/http"
	"casa/internal/log"
	"casa/internal/metrics"
)

func main() {
	cli.LoadEnvFile()

	// Bootstrap logger until the configured level and format are known.
	logger := cli.SetupLogger("info", "text")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	metrics.Init()

	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	srv := apphttp.NewServer(apphttp.Config{
		Addr:              ":" + cfg.Port,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		AnalyticsCacheTTL: cfg.AnalyticsCacheTTL,
		AnalyticsCacheMax: cfg.AnalyticsCacheMax,
		TrustedProxies:    cfg.TrustedProxies,
		BlockSuspicious:   cfg.SecurityBlockSuspicious,
		Logger:            logger,
	}, apphttp.Deps{
		Expenses:   app.Expenses,
		Snapshots:  app.Snapshots,
		Categories: app.Categories,
		Split:      app.Split,
		Backup:     app.Backup,
		Analytics:  app.Engine,
		Store:      app.Store(),
	})

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting casa server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"sheets_enabled", cfg.SheetsEnabled(),
		"events_enabled", cfg.EventsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
