// Package worker mirrors household data into Google Sheets in response to
// change events published by the API server.
package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"casa/internal/amqp"
	"casa/internal/log"
	"casa/internal/services"
)

// Exporter writes one year of records and analytics to the spreadsheet.
type Exporter interface {
	ExportToSheets(ctx context.Context, year int) (services.SheetsExport, error)
}

// Consumer delivers change events until ctx is cancelled.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, amqp.ChangeEvent) error) error
}

// SheetsSync re-exports the years affected by each change event.
type SheetsSync struct {
	exporter Exporter
	logger   *log.Logger
	now      func() time.Time
}

func NewSheetsSync(exporter Exporter, logger *log.Logger, now func() time.Time) *SheetsSync {
	if logger == nil {
		logger = log.FromSlog(nil, log.ComponentWorker)
	}
	if now == nil {
		now = time.Now
	}
	return &SheetsSync{
		exporter: exporter,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      now,
	}
}

// yearsFor returns the years whose sheet an event may have changed. The
// current year always is; a snapshot also changes the year it belongs to.
func (w *SheetsSync) yearsFor(ev amqp.ChangeEvent) []int {
	years := []int{w.now().Year()}
	if ev.Type == amqp.EventSnapshotCreated && ev.Year != 0 && !slices.Contains(years, ev.Year) {
		years = append([]int{ev.Year}, years...)
	}
	return years
}

// HandleEvent exports every year touched by ev. Returning an error requeues
// the event; a disabled sheets export is not an error.
func (w *SheetsSync) HandleEvent(ctx context.Context, ev amqp.ChangeEvent) error {
	w.logger.InfoContext(ctx, "Processing change event",
		"type", ev.Type,
		"id", ev.ID,
		log.FieldYear, ev.Year)

	for _, year := range w.yearsFor(ev) {
		if err := w.export(ctx, year); err != nil {
			return fmt.Errorf("handle %s: %w", ev.Type, err)
		}
	}
	return nil
}

// SyncCurrentYear exports the current year regardless of events, catching
// up on anything missed while the worker was down.
func (w *SheetsSync) SyncCurrentYear(ctx context.Context) error {
	return w.export(ctx, w.now().Year())
}

func (w *SheetsSync) export(ctx context.Context, year int) error {
	res, err := w.exporter.ExportToSheets(ctx, year)
	if errors.Is(err, services.ErrSheetsDisabled) {
		w.logger.WarnContext(ctx, "Sheets export disabled, skipping", log.FieldYear, year)
		return nil
	}
	if err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Mirrored year to sheets",
		log.FieldYear, res.Year,
		log.FieldSheetsRef, res.Range)
	return nil
}

// Run syncs once, then consumes events and re-syncs every interval until
// ctx is cancelled or consumption fails.
func (w *SheetsSync) Run(ctx context.Context, consumer Consumer, interval time.Duration) error {
	if err := w.SyncCurrentYear(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup sync failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Consume(ctx, w.HandleEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := w.SyncCurrentYear(ctx); err != nil {
					w.logger.ErrorContext(ctx, "Periodic sync failed", log.FieldError, err)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
