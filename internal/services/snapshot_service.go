package services

import (
	"context"
	"fmt"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/metrics"
	"casa/internal/storage"
)

// SnapshotService manages the yearly historical snapshots.
type SnapshotService struct {
	store  storage.Store
	events notifier
	opts   options
}

func NewSnapshotService(store storage.Store, events EventPublisher, opts ...Option) *SnapshotService {
	o := buildOptions(log.ComponentSnapshot, opts)
	return &SnapshotService{
		store:  store,
		events: notifier{events: events, logger: o.logger},
		opts:   o,
	}
}

// DefaultTransitionYear is the year a transition snapshots when none is given:
// the year before the real current one.
func (s *SnapshotService) DefaultTransitionYear() int {
	return s.opts.now().Year() - 1
}

// SnapshotYear copies every current fixed expense into a snapshot for year,
// skipping names that already have one. Re-running only fills gaps.
func (s *SnapshotService) SnapshotYear(ctx context.Context, year int) (core.SnapshotResult, error) {
	if err := core.ValidateYear(year); err != nil {
		return core.SnapshotResult{}, err
	}

	res := core.SnapshotResult{Year: year, Snapshotted: []string{}}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		res.Snapshotted = res.Snapshotted[:0]
		expenses, err := tx.ListExpenses(ctx)
		if err != nil {
			return err
		}
		for _, e := range expenses {
			if !e.IsFixed() {
				continue
			}
			_, created, err := tx.CreateHistoricalIfAbsent(ctx, e.Snapshot(year))
			if err != nil {
				return fmt.Errorf("snapshot %q: %w", e.Name, err)
			}
			if created {
				res.Snapshotted = append(res.Snapshotted, e.Name)
			}
		}
		return nil
	})
	if err != nil {
		return core.SnapshotResult{}, fmt.Errorf("year transition %d: %w", year, err)
	}

	metrics.AddSnapshots(metrics.TriggerExplicit, len(res.Snapshotted))
	s.opts.logger.InfoContext(ctx, "Year transition completed",
		log.FieldYear, year,
		log.FieldSnapshotted, len(res.Snapshotted))

	if len(res.Snapshotted) > 0 {
		ev := amqp.NewChangeEvent(amqp.EventSnapshotCreated)
		ev.Year, ev.Names = year, res.Snapshotted
		s.events.notify(ctx, ev)
	}
	return res, nil
}

func (s *SnapshotService) ListHistorical(ctx context.Context, year int) ([]core.HistoricalExpense, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	out, err := s.store.ListHistorical(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list historical %d: %w", year, err)
	}
	return out, nil
}

// DeleteHistorical removes one snapshot, for example to let a later
// transition re-capture it.
func (s *SnapshotService) DeleteHistorical(ctx context.Context, id int64) error {
	if err := s.store.DeleteHistorical(ctx, id); err != nil {
		return fmt.Errorf("delete historical %d: %w", id, err)
	}
	s.opts.logger.InfoContext(ctx, "Historical snapshot deleted", "id", id)
	return nil
}
