package services

import (
	"context"
	"errors"
	"fmt"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/metrics"
	"casa/internal/sheets"
	"casa/internal/storage"
)

// ErrSheetsDisabled is returned by ExportToSheets when no spreadsheet is configured.
var ErrSheetsDisabled = errors.New("sheets export is not configured")

// Reporter computes the analytics of a year together with the records used.
type Reporter interface {
	Report(ctx context.Context, year int) (core.YearReport, error)
}

// ImportResult counts what an import wrote.
type ImportResult struct {
	Expenses          int  `json:"expenses"`
	Categories        int  `json:"categories"`
	Historical        int  `json:"historicalExpenses"`
	HistoricalSkipped int  `json:"historicalSkipped"`
	SplitSettings     bool `json:"splitSettings"`
}

// SheetsExport describes a completed spreadsheet export.
type SheetsExport struct {
	Year  int    `json:"year"`
	Range string `json:"range"`
}

type BackupService struct {
	store    storage.Store
	reporter Reporter
	writer   sheets.BackupWriter
	events   notifier
	opts     options
}

// NewBackupService wires the backup use cases. reporter and writer are only
// needed by ExportToSheets; a nil writer disables it.
func NewBackupService(store storage.Store, reporter Reporter, writer sheets.BackupWriter, events EventPublisher, opts ...Option) *BackupService {
	o := buildOptions(log.ComponentBackup, opts)
	return &BackupService{
		store:    store,
		reporter: reporter,
		writer:   writer,
		events:   notifier{events: events, logger: o.logger},
		opts:     o,
	}
}

// Export dumps the whole database.
func (s *BackupService) Export(ctx context.Context) (core.Backup, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export expenses: %w", err)
	}
	split, err := s.store.GetSplitSettings(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export split settings: %w", err)
	}
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export categories: %w", err)
	}
	historical, err := s.store.ListAllHistorical(ctx)
	if err != nil {
		return core.Backup{}, fmt.Errorf("export historical: %w", err)
	}

	s.opts.logger.InfoContext(ctx, "Database exported",
		"expenses", len(expenses),
		"categories", len(categories),
		"historical", len(historical))

	return core.Backup{
		Expenses:           nonNil(expenses),
		SplitSettings:      &split,
		Categories:         nonNil(categories),
		HistoricalExpenses: nonNil(historical),
		ExportDate:         s.opts.now().UTC(),
		Version:            core.BackupVersion,
	}, nil
}

// Import replaces expenses and categories with the backup's, adds historical
// snapshots that do not exist yet and applies the split settings when present.
// The backup is validated up front and written in one transaction, so a bad
// record leaves the database untouched.
func (s *BackupService) Import(ctx context.Context, b core.Backup) (ImportResult, error) {
	if err := prepareBackup(&b); err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		res = ImportResult{}
		if err := tx.DeleteAllExpenses(ctx); err != nil {
			return err
		}
		if err := tx.DeleteAllCategories(ctx); err != nil {
			return err
		}
		for _, e := range b.Expenses {
			if _, err := tx.CreateExpense(ctx, e); err != nil {
				return fmt.Errorf("expense %q: %w", e.Name, err)
			}
			res.Expenses++
		}
		for _, c := range b.Categories {
			if _, err := tx.CreateCategory(ctx, c); err != nil {
				return fmt.Errorf("category %q: %w", c.Name, err)
			}
			res.Categories++
		}
		for _, h := range b.HistoricalExpenses {
			_, created, err := tx.CreateHistoricalIfAbsent(ctx, h)
			if err != nil {
				return fmt.Errorf("historical %q/%d: %w", h.ExpenseName, h.Year, err)
			}
			if created {
				res.Historical++
			} else {
				res.HistoricalSkipped++
			}
		}
		if b.SplitSettings != nil {
			if _, err := tx.UpdateSplitSettings(ctx, *b.SplitSettings); err != nil {
				return fmt.Errorf("split settings: %w", err)
			}
			res.SplitSettings = true
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("import: %w", err)
	}

	metrics.AddSnapshots(metrics.TriggerImport, res.Historical)
	s.opts.logger.InfoContext(ctx, "Database imported",
		"expenses", res.Expenses,
		"categories", res.Categories,
		"historical", res.Historical,
		"historical_skipped", res.HistoricalSkipped)
	s.events.notify(ctx, amqp.NewChangeEvent(amqp.EventDataImported))
	return res, nil
}

// Clear deletes every expense and category and resets the split settings.
// Historical snapshots are kept.
func (s *BackupService) Clear(ctx context.Context) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		if err := tx.DeleteAllExpenses(ctx); err != nil {
			return err
		}
		if err := tx.DeleteAllCategories(ctx); err != nil {
			return err
		}
		_, err := tx.UpdateSplitSettings(ctx, core.ResetSplitSettings())
		return err
	})
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.opts.logger.InfoContext(ctx, "Database cleared")
	s.events.notify(ctx, amqp.NewChangeEvent(amqp.EventDataCleared))
	return nil
}

// ExportToSheets writes the year's records and analytics to the configured
// spreadsheet and returns the range written.
func (s *BackupService) ExportToSheets(ctx context.Context, year int) (SheetsExport, error) {
	if s.writer == nil || s.reporter == nil {
		return SheetsExport{}, ErrSheetsDisabled
	}
	if err := core.ValidateYear(year); err != nil {
		return SheetsExport{}, err
	}

	report, err := s.reporter.Report(ctx, year)
	if err != nil {
		return SheetsExport{}, fmt.Errorf("report %d: %w", year, err)
	}
	ref, err := s.writer.WriteYear(ctx, report)
	if err != nil {
		return SheetsExport{}, fmt.Errorf("write sheets %d: %w", year, err)
	}

	s.opts.logger.InfoContext(ctx, "Year exported to sheets",
		log.FieldYear, year,
		log.FieldSheetsRef, ref)
	return SheetsExport{Year: year, Range: ref}, nil
}

func prepareBackup(b *core.Backup) error {
	for i := range b.Expenses {
		e := &b.Expenses[i]
		e.ID = 0
		e.Normalize()
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense %d (%q): %w", i, e.Name, err)
		}
	}
	seen := make(map[string]bool, len(b.Categories))
	for i := range b.Categories {
		c := &b.Categories[i]
		c.ID = 0
		c.Normalize()
		if err := c.Validate(); err != nil {
			return fmt.Errorf("category %d (%q): %w", i, c.Name, err)
		}
		if seen[c.Name] {
			return core.NewValidationError(fmt.Sprintf("duplicate category %q", c.Name))
		}
		seen[c.Name] = true
	}
	for i := range b.HistoricalExpenses {
		h := &b.HistoricalExpenses[i]
		h.ID = 0
		if err := h.Validate(); err != nil {
			return fmt.Errorf("historical %d (%q): %w", i, h.ExpenseName, err)
		}
	}
	if b.SplitSettings != nil {
		if err := b.SplitSettings.Validate(); err != nil {
			return fmt.Errorf("split settings: %w", err)
		}
	}
	return nil
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
