// Package analytics turns the household records into the yearly overview:
// monthly totals, per-person shares, category breakdown, the 12-month trend
// and the year-over-year change of fixed costs.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/metrics"
)

// Reader is the read side of the record store the engine depends on.
type Reader interface {
	ListExpenses(ctx context.Context) ([]core.Expense, error)
	ListHistorical(ctx context.Context, year int) ([]core.HistoricalExpense, error)
	GetSplitSettings(ctx context.Context) (core.SplitSettings, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
}

type Engine struct {
	store  Reader
	now    func() time.Time
	labels core.MonthLabels
	logger *log.Logger
}

type Option func(*Engine)

// WithClock sets the source of the real current month and year.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMonthLabels(labels core.MonthLabels) Option {
	return func(e *Engine) { e.labels = labels }
}

func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.logger = logger.WithComponent(log.ComponentAnalytics) }
}

func New(store Reader, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		now:    time.Now,
		labels: core.MonthLabelsEN,
		logger: log.FromSlog(nil, log.ComponentAnalytics),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Inputs is everything one computation reads.
type Inputs struct {
	// Records is the working set: live expenses for the current year,
	// snapshots of the report year otherwise.
	Records    []core.Expense
	Previous   []core.HistoricalExpense
	Split      core.SplitSettings
	Categories []core.Category
}

// Compute returns the analytics for year.
func (e *Engine) Compute(ctx context.Context, year int) (core.Analytics, error) {
	r, err := e.Report(ctx, year)
	if err != nil {
		return core.Analytics{}, err
	}
	return r.Analytics, nil
}

// Report returns the analytics for year together with the working set they
// were computed from.
func (e *Engine) Report(ctx context.Context, year int) (core.YearReport, error) {
	start := time.Now()
	scope := core.NewScope(e.now(), year)
	mode := metrics.ModeHistorical
	if scope.IsCurrentYear() {
		mode = metrics.ModeCurrent
	}

	in, err := e.load(ctx, scope)
	if err != nil {
		metrics.ObserveAnalytics(mode, metrics.ResultError, time.Since(start))
		return core.YearReport{}, err
	}
	e.flagUnknownFrequencies(ctx, in)

	a := Aggregate(scope, in, e.labels)
	metrics.ObserveAnalytics(mode, metrics.ResultSuccess, time.Since(start))

	e.logger.DebugContext(ctx, "Analytics computed",
		log.FieldYear, year,
		"mode", mode,
		"records", len(in.Records),
		"monthly_total", a.MonthlyTotal,
		"duration", time.Since(start))

	return core.YearReport{Year: year, Expenses: in.Records, Analytics: a}, nil
}

func (e *Engine) load(ctx context.Context, scope core.Scope) (Inputs, error) {
	var in Inputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if scope.IsCurrentYear() {
			expenses, err := e.store.ListExpenses(gctx)
			if err != nil {
				return fmt.Errorf("load expenses: %w", err)
			}
			in.Records = expenses
			return nil
		}
		snaps, err := e.store.ListHistorical(gctx, scope.Year)
		if err != nil {
			return fmt.Errorf("load snapshots for %d: %w", scope.Year, err)
		}
		in.Records = make([]core.Expense, 0, len(snaps))
		for _, h := range snaps {
			in.Records = append(in.Records, h.AsExpense())
		}
		return nil
	})
	g.Go(func() error {
		prev, err := e.store.ListHistorical(gctx, scope.Year-1)
		if err != nil {
			return fmt.Errorf("load snapshots for %d: %w", scope.Year-1, err)
		}
		in.Previous = prev
		return nil
	})
	g.Go(func() error {
		s, err := e.store.GetSplitSettings(gctx)
		if err != nil {
			return fmt.Errorf("load split settings: %w", err)
		}
		in.Split = s
		return nil
	})
	g.Go(func() error {
		cats, err := e.store.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		in.Categories = cats
		return nil
	})

	if err := g.Wait(); err != nil {
		return Inputs{}, err
	}
	return in, nil
}

func (e *Engine) flagUnknownFrequencies(ctx context.Context, in Inputs) {
	warn := func(name string, f core.Frequency, source string) {
		metrics.IncUnknownFrequency()
		e.logger.WarnContext(ctx, "Unknown frequency, using amount as monthly value",
			log.FieldExpenseName, name,
			log.FieldFrequency, string(f),
			"source", source)
	}
	for _, r := range in.Records {
		if _, ok := r.Frequency.Months(); !ok {
			warn(r.Name, r.Frequency, "working_set")
		}
	}
	for _, h := range in.Previous {
		if _, ok := h.Frequency.Months(); !ok {
			warn(h.ExpenseName, h.Frequency, "previous_year")
		}
	}
}

var hundred = decimal.NewFromInt(100)

// Aggregate computes the analytics of in for scope. Sums are exact; every
// money figure is rounded once, on the way out.
func Aggregate(scope core.Scope, in Inputs, labels core.MonthLabels) core.Analytics {
	monthly := decimal.Zero
	fixed := decimal.Zero
	for _, r := range in.Records {
		monthly = monthly.Add(scope.Instant(r))
		fixed = fixed.Add(scope.Fixed(r))
	}

	previous := decimal.Zero
	for _, h := range in.Previous {
		m, _ := core.MonthlyEquivalent(core.Dec(h.Amount), h.Frequency)
		previous = previous.Add(m)
	}

	trend := decimal.Zero
	if previous.IsPositive() {
		trend = fixed.Sub(previous).Div(previous).Mul(hundred)
	}

	series := make([]core.MonthAmount, 12)
	for i := range series {
		month := i + 1
		amount := fixed
		for _, r := range in.Records {
			amount = amount.Add(scope.VariableIn(r, month))
		}
		series[i] = core.MonthAmount{Month: labels[i], Amount: core.RoundMoney(amount)}
	}

	share := func(pct int) float64 {
		return core.RoundMoney(monthly.Mul(decimal.NewFromInt(int64(pct))).Div(hundred))
	}

	records := in.Records
	if records == nil {
		records = []core.Expense{}
	}

	return core.Analytics{
		MonthlyTotal:      core.RoundMoney(monthly),
		User1Share:        share(in.Split.User1Percentage),
		User2Share:        share(in.Split.User2Percentage),
		User1Name:         in.Split.User1Name,
		User2Name:         in.Split.User2Name,
		User1ProfileImage: in.Split.User1ProfileImage,
		User2ProfileImage: in.Split.User2ProfileImage,
		ActiveExpenses:    len(records),
		MonthlyTrend:      series,
		FixedCostsTotal:   core.RoundMoney(fixed),
		FixedCostsTrend:   core.RoundMoney(trend),
		SplitData:         categorySplit(scope, records, in.Categories),
	}
}

// categorySplit groups this month's spend by category, in first-seen order.
func categorySplit(scope core.Scope, records []core.Expense, categories []core.Category) []core.CategorySplit {
	colors := make(map[string]string, len(categories))
	for _, c := range categories {
		colors[c.Name] = c.Color
	}

	var order []string
	totals := map[string]decimal.Decimal{}
	sum := decimal.Zero
	for _, r := range records {
		amount, ok := scope.Split(r)
		if !ok || amount.IsZero() {
			continue
		}
		if _, seen := totals[r.Category]; !seen {
			order = append(order, r.Category)
		}
		totals[r.Category] = totals[r.Category].Add(amount)
		sum = sum.Add(amount)
	}

	out := make([]core.CategorySplit, 0, len(order))
	for _, name := range order {
		color := colors[name]
		if color == "" {
			color = core.FallbackColor
		}
		out = append(out, core.CategorySplit{
			Name:   name,
			Value:  core.Percent(totals[name], sum),
			Amount: core.RoundMoney(totals[name]),
			Color:  color,
		})
	}
	return out
}
