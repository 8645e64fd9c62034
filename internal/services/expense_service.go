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

// ExpenseService runs expense writes against the store and publishes a
// change event after each one.
type ExpenseService struct {
	store  storage.Store
	events notifier
	opts   options
}

func NewExpenseService(store storage.Store, events EventPublisher, opts ...Option) *ExpenseService {
	o := buildOptions(log.ComponentExpense, opts)
	return &ExpenseService{
		store:  store,
		events: notifier{events: events, logger: o.logger},
		opts:   o,
	}
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	out, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// Create normalizes and validates e, then stores it.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = 0
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	ev := amqp.NewChangeEvent(amqp.EventExpenseCreated)
	ev.ID, ev.Name = created.ID, created.Name
	s.events.notify(ctx, ev)
	return created, nil
}

// Update applies patch to the expense. When the patch changes the amount or
// frequency of a fixed expense, the pre-update terms are first preserved as
// the previous year's snapshot (unless one exists). Snapshot and update
// commit together; a failed snapshot aborts the update.
func (s *ExpenseService) Update(ctx context.Context, id int64, patch core.ExpensePatch) (core.Expense, error) {
	var (
		updated  core.Expense
		snapshot core.HistoricalExpense
		created  bool
	)

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		cur, err := tx.GetExpense(ctx, id)
		if err != nil {
			return err
		}

		next := patch.Apply(cur)
		next.Normalize()
		if err := next.Validate(); err != nil {
			return err
		}

		if cur.IsFixed() && patch.ChangesBilling(cur) {
			year := s.opts.now().Year() - 1
			snapshot, created, err = tx.CreateHistoricalIfAbsent(ctx, cur.Snapshot(year))
			if err != nil {
				return fmt.Errorf("snapshot %q for %d: %w", cur.Name, year, err)
			}
		}

		updated, err = tx.UpdateExpense(ctx, next)
		return err
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", id, err)
	}

	if created {
		metrics.AddSnapshots(metrics.TriggerLazy, 1)
		s.opts.logger.InfoContext(ctx, "Preserved pre-update terms as snapshot",
			log.FieldExpenseName, snapshot.ExpenseName,
			log.FieldYear, snapshot.Year,
			log.FieldAmount, snapshot.Amount,
			log.FieldFrequency, snapshot.Frequency)

		sev := amqp.NewChangeEvent(amqp.EventSnapshotCreated)
		sev.Year, sev.Names = snapshot.Year, []string{snapshot.ExpenseName}
		s.events.notify(ctx, sev)
	}

	ev := amqp.NewChangeEvent(amqp.EventExpenseUpdated)
	ev.ID, ev.Name = updated.ID, updated.Name
	s.events.notify(ctx, ev)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}

	ev := amqp.NewChangeEvent(amqp.EventExpenseDeleted)
	ev.ID = id
	s.events.notify(ctx, ev)
	return nil
}
