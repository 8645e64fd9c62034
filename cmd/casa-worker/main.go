// Command casa-worker mirrors the household data into Google Sheets whenever
// the API server publishes a change event.
package main

import (
	"context"
	"os"
	"time"

	"casa/internal/amqp"
	"casa/internal/cli"
	"casa/internal/log"
	"casa/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info", "text")
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("Starting casa-worker")

	if !cfg.EventsEnabled() || !cfg.SheetsEnabled() {
		logger.Error("casa-worker needs both AMQP_URL and GOOGLE_SPREADSHEET_ID",
			"events_enabled", cfg.EventsEnabled(),
			"sheets_enabled", cfg.SheetsEnabled())
		os.Exit(1)
	}

	app, err := cli.NewApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer app.Close()

	// The consumer gets its own connection; the app's client only publishes.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	consumer, err := amqp.NewClient(connectCtx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	cancelConnect()
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	runCtx, cancel := context.WithCancel(context.Background())
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		cancel()
	})

	mirror := worker.NewSheetsSync(app.Backup, logger, time.Now)
	if err := mirror.Run(runCtx, consumer, cfg.SheetsSyncInterval); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
