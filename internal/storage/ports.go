package storage

import (
	"context"

	"casa/internal/core"
)

// Ports implemented by every record store backend.
type (
	ExpenseRepository interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, id int64) error
		DeleteAllExpenses(ctx context.Context) error
	}

	// CategoryRepository seeds the default categories the first time the
	// list is read while empty.
	CategoryRepository interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
		DeleteCategory(ctx context.Context, id int64) error
		DeleteAllCategories(ctx context.Context) error
	}

	// SplitSettingsRepository guarantees a row exists: the first read
	// creates core.DefaultSplitSettings.
	SplitSettingsRepository interface {
		GetSplitSettings(ctx context.Context) (core.SplitSettings, error)
		UpdateSplitSettings(ctx context.Context, s core.SplitSettings) (core.SplitSettings, error)
	}

	HistoricalRepository interface {
		ListHistorical(ctx context.Context, year int) ([]core.HistoricalExpense, error)
		ListAllHistorical(ctx context.Context) ([]core.HistoricalExpense, error)
		GetHistorical(ctx context.Context, id int64) (core.HistoricalExpense, error)
		// CreateHistoricalIfAbsent inserts h unless a snapshot for
		// (h.ExpenseName, h.Year) exists. It returns the stored row and
		// whether it was created by this call.
		CreateHistoricalIfAbsent(ctx context.Context, h core.HistoricalExpense) (core.HistoricalExpense, bool, error)
		DeleteHistorical(ctx context.Context, id int64) error
	}

	Repository interface {
		ExpenseRepository
		CategoryRepository
		SplitSettingsRepository
		HistoricalRepository
	}

	// Store is a Repository that can run a group of operations atomically.
	Store interface {
		Repository
		// WithinTx runs fn against a transactional view of the store. The
		// changes are committed when fn returns nil and discarded otherwise.
		WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
		Ping(ctx context.Context) error
		Close() error
	}
)
