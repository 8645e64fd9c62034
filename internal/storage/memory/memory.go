// Package memory is an in-process storage.Store used for tests and the
// demo backend. Data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"casa/internal/core"
	"casa/internal/storage"
)

type state struct {
	nextID     int64
	expenses   map[int64]core.Expense
	categories map[int64]core.Category
	historical map[int64]core.HistoricalExpense
	split      *core.SplitSettings
}

func newState() *state {
	return &state{
		expenses:   map[int64]core.Expense{},
		categories: map[int64]core.Category{},
		historical: map[int64]core.HistoricalExpense{},
	}
}

func (st *state) clone() *state {
	c := &state{
		nextID:     st.nextID,
		expenses:   make(map[int64]core.Expense, len(st.expenses)),
		categories: make(map[int64]core.Category, len(st.categories)),
		historical: make(map[int64]core.HistoricalExpense, len(st.historical)),
	}
	for id, e := range st.expenses {
		c.expenses[id] = copyExpense(e)
	}
	for id, cat := range st.categories {
		c.categories[id] = cat
	}
	for id, h := range st.historical {
		c.historical[id] = h
	}
	if st.split != nil {
		s := *st.split
		c.split = &s
	}
	return c
}

func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

func copyExpense(e core.Expense) core.Expense {
	if e.VariableMonth != nil {
		m := *e.VariableMonth
		e.VariableMonth = &m
	}
	if e.VariableYear != nil {
		y := *e.VariableYear
		e.VariableYear = &y
	}
	return e
}

type Store struct {
	mu    sync.Mutex
	st    *state
	seeds []core.Category
	now   func() time.Time
}

var _ storage.Store = (*Store)(nil)

type Option func(*Store)

// WithCategorySeed replaces the categories seeded on the first empty read.
func WithCategorySeed(seeds []core.Category) Option {
	return func(s *Store) { s.seeds = seeds }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		st:    newState(),
		seeds: storage.DefaultCategories(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) view(st *state) *view {
	return &view{st: st, seeds: s.seeds, now: s.now}
}

func (s *Store) locked(fn func(v *view) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.view(s.st))
}

// WithinTx runs fn on a copy of the data and swaps it in when fn succeeds.
// Store methods must not be called from fn.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, s.view(work)); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) ListExpenses(ctx context.Context) (out []core.Expense, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListExpenses(ctx); return err })
	return out, err
}

func (s *Store) GetExpense(ctx context.Context, id int64) (out core.Expense, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetExpense(ctx, id); return err })
	return out, err
}

func (s *Store) CreateExpense(ctx context.Context, e core.Expense) (out core.Expense, err error) {
	err = s.locked(func(v *view) error { out, err = v.CreateExpense(ctx, e); return err })
	return out, err
}

func (s *Store) UpdateExpense(ctx context.Context, e core.Expense) (out core.Expense, err error) {
	err = s.locked(func(v *view) error { out, err = v.UpdateExpense(ctx, e); return err })
	return out, err
}

func (s *Store) DeleteExpense(ctx context.Context, id int64) error {
	return s.locked(func(v *view) error { return v.DeleteExpense(ctx, id) })
}

func (s *Store) DeleteAllExpenses(ctx context.Context) error {
	return s.locked(func(v *view) error { return v.DeleteAllExpenses(ctx) })
}

func (s *Store) ListCategories(ctx context.Context) (out []core.Category, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListCategories(ctx); return err })
	return out, err
}

func (s *Store) GetCategory(ctx context.Context, id int64) (out core.Category, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetCategory(ctx, id); return err })
	return out, err
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (out core.Category, err error) {
	err = s.locked(func(v *view) error { out, err = v.CreateCategory(ctx, c); return err })
	return out, err
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (out core.Category, err error) {
	err = s.locked(func(v *view) error { out, err = v.UpdateCategory(ctx, c); return err })
	return out, err
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	return s.locked(func(v *view) error { return v.DeleteCategory(ctx, id) })
}

func (s *Store) DeleteAllCategories(ctx context.Context) error {
	return s.locked(func(v *view) error { return v.DeleteAllCategories(ctx) })
}

func (s *Store) GetSplitSettings(ctx context.Context) (out core.SplitSettings, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetSplitSettings(ctx); return err })
	return out, err
}

func (s *Store) UpdateSplitSettings(ctx context.Context, in core.SplitSettings) (out core.SplitSettings, err error) {
	err = s.locked(func(v *view) error { out, err = v.UpdateSplitSettings(ctx, in); return err })
	return out, err
}

func (s *Store) ListHistorical(ctx context.Context, year int) (out []core.HistoricalExpense, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListHistorical(ctx, year); return err })
	return out, err
}

func (s *Store) ListAllHistorical(ctx context.Context) (out []core.HistoricalExpense, err error) {
	err = s.locked(func(v *view) error { out, err = v.ListAllHistorical(ctx); return err })
	return out, err
}

func (s *Store) GetHistorical(ctx context.Context, id int64) (out core.HistoricalExpense, err error) {
	err = s.locked(func(v *view) error { out, err = v.GetHistorical(ctx, id); return err })
	return out, err
}

func (s *Store) CreateHistoricalIfAbsent(ctx context.Context, h core.HistoricalExpense) (out core.HistoricalExpense, created bool, err error) {
	err = s.locked(func(v *view) error { out, created, err = v.CreateHistoricalIfAbsent(ctx, h); return err })
	return out, created, err
}

func (s *Store) DeleteHistorical(ctx context.Context, id int64) error {
	return s.locked(func(v *view) error { return v.DeleteHistorical(ctx, id) })
}

// view implements storage.Repository over a state the caller has locked.
type view struct {
	st    *state
	seeds []core.Category
	now   func() time.Time
}

func (v *view) timestamp() time.Time {
	return time.Unix(v.now().Unix(), 0).UTC()
}

func (v *view) ListExpenses(context.Context) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(v.st.expenses))
	for _, e := range v.st.expenses {
		out = append(out, copyExpense(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetExpense(_ context.Context, id int64) (core.Expense, error) {
	e, ok := v.st.expenses[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	return copyExpense(e), nil
}

func (v *view) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	e = copyExpense(e)
	e.ID = v.st.id()
	e.CreatedAt = v.timestamp()
	e.UpdatedAt = e.CreatedAt
	v.st.expenses[e.ID] = e
	return copyExpense(e), nil
}

func (v *view) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	cur, ok := v.st.expenses[e.ID]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}
	e = copyExpense(e)
	e.CreatedAt = cur.CreatedAt
	e.UpdatedAt = v.timestamp()
	v.st.expenses[e.ID] = e
	return copyExpense(e), nil
}

func (v *view) DeleteExpense(_ context.Context, id int64) error {
	if _, ok := v.st.expenses[id]; !ok {
		return fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	delete(v.st.expenses, id)
	return nil
}

func (v *view) DeleteAllExpenses(context.Context) error {
	v.st.expenses = map[int64]core.Expense{}
	return nil
}

func (v *view) sortedCategories() []core.Category {
	out := make([]core.Category, 0, len(v.st.categories))
	for _, c := range v.st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (v *view) ListCategories(context.Context) ([]core.Category, error) {
	if len(v.st.categories) == 0 {
		ts := v.timestamp()
		for _, c := range v.seeds {
			if v.categoryNamed(c.Name, 0) {
				continue
			}
			c.ID = v.st.id()
			c.CreatedAt = ts
			v.st.categories[c.ID] = c
		}
	}
	return v.sortedCategories(), nil
}

// categoryNamed reports whether a category other than skip uses name.
func (v *view) categoryNamed(name string, skip int64) bool {
	for id, c := range v.st.categories {
		if id != skip && c.Name == name {
			return true
		}
	}
	return false
}

func (v *view) GetCategory(_ context.Context, id int64) (core.Category, error) {
	c, ok := v.st.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (v *view) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if v.categoryNamed(c.Name, 0) {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
	}
	c.ID = v.st.id()
	c.CreatedAt = v.timestamp()
	v.st.categories[c.ID] = c
	return c, nil
}

func (v *view) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	cur, ok := v.st.categories[c.ID]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", c.ID, core.ErrNotFound)
	}
	if v.categoryNamed(c.Name, c.ID) {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
	}
	c.CreatedAt = cur.CreatedAt
	v.st.categories[c.ID] = c
	return c, nil
}

func (v *view) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := v.st.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	delete(v.st.categories, id)
	return nil
}

func (v *view) DeleteAllCategories(context.Context) error {
	v.st.categories = map[int64]core.Category{}
	return nil
}

func (v *view) GetSplitSettings(context.Context) (core.SplitSettings, error) {
	if v.st.split == nil {
		d := core.DefaultSplitSettings()
		d.ID = 1
		d.UpdatedAt = v.timestamp()
		v.st.split = &d
	}
	return *v.st.split, nil
}

func (v *view) UpdateSplitSettings(_ context.Context, s core.SplitSettings) (core.SplitSettings, error) {
	s.ID = 1
	s.UpdatedAt = v.timestamp()
	v.st.split = &s
	return s, nil
}

func (v *view) collectHistorical(keep func(core.HistoricalExpense) bool) []core.HistoricalExpense {
	out := make([]core.HistoricalExpense, 0)
	for _, h := range v.st.historical {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *view) ListHistorical(_ context.Context, year int) ([]core.HistoricalExpense, error) {
	return v.collectHistorical(func(h core.HistoricalExpense) bool { return h.Year == year }), nil
}

func (v *view) ListAllHistorical(context.Context) ([]core.HistoricalExpense, error) {
	return v.collectHistorical(func(core.HistoricalExpense) bool { return true }), nil
}

func (v *view) GetHistorical(_ context.Context, id int64) (core.HistoricalExpense, error) {
	h, ok := v.st.historical[id]
	if !ok {
		return core.HistoricalExpense{}, fmt.Errorf("historical expense %d: %w", id, core.ErrNotFound)
	}
	return h, nil
}

func (v *view) CreateHistoricalIfAbsent(_ context.Context, h core.HistoricalExpense) (core.HistoricalExpense, bool, error) {
	for _, existing := range v.st.historical {
		if existing.ExpenseName == h.ExpenseName && existing.Year == h.Year {
			return existing, false, nil
		}
	}
	h.ID = v.st.id()
	h.CreatedAt = v.timestamp()
	v.st.historical[h.ID] = h
	return h, true, nil
}

func (v *view) DeleteHistorical(_ context.Context, id int64) error {
	if _, ok := v.st.historical[id]; !ok {
		return fmt.Errorf("historical expense %d: %w", id, core.ErrNotFound)
	}
	delete(v.st.historical, id)
	return nil
}
