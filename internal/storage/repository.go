package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"casa/internal/core"
	"casa/internal/log"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// SQLRepository is the database/sql backed Store used for both sqlite and
// postgres.
type SQLRepository struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	seeds   []core.Category
	now     func() time.Time
	logger  *log.Logger
}

var _ Store = (*SQLRepository)(nil)

// Option customizes a SQLRepository.
type Option func(*SQLRepository)

// WithCategorySeed replaces the categories seeded into an empty table.
func WithCategorySeed(seeds []core.Category) Option {
	return func(r *SQLRepository) { r.seeds = seeds }
}

// WithLogger sets the logger; records carry the storage component.
func WithLogger(logger *log.Logger) Option {
	return func(r *SQLRepository) {
		if logger != nil {
			r.logger = logger.WithComponent(log.ComponentStorage)
		}
	}
}

// WithClock overrides the clock used for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *SQLRepository) { r.now = now }
}

// SQLiteDSN adds the pragmas the repository relies on to a database path.
func SQLiteDSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return openRepository(DialectSQLite, SQLiteDSN(dbPath), opts...)
}

func NewPostgresRepository(dsn string, opts ...Option) (*SQLRepository, error) {
	return openRepository(DialectPostgres, dsn, opts...)
}

func openRepository(dialect Dialect, dsn string, opts ...Option) (*SQLRepository, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLRepository{
		db:      db,
		q:       db,
		dialect: dialect,
		seeds:   DefaultCategories(),
		now:     time.Now,
		logger:  log.FromSlog(nil, log.ComponentStorage),
	}
	for _, opt := range opts {
		opt(repo)
	}

	return repo, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := *r
	txRepo.q = tx

	if err := fn(ctx, &txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.ErrorContext(ctx, "Rollback failed", log.FieldError, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLRepository) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.dialect.rebind(query), args...)
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.dialect.rebind(query), args...)
}

func (r *SQLRepository) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.dialect.rebind(query), args...)
}

func (r *SQLRepository) timestamp() int64 {
	return r.now().UTC().Unix()
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

// requireAffected turns a zero row count into core.ErrNotFound.
func requireAffected(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d rows affected: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, core.ErrNotFound)
	}
	return nil
}

// Expenses

const expenseColumns = `id, name, amount, frequency, category, is_variable, is_income,
	icon, image_url, variable_month, variable_year, created_at, updated_at`

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e                  core.Expense
		freq               string
		icon, imageURL     sql.NullString
		varMonth, varYear  sql.NullInt64
		createdAt, updated int64
	)
	if err := s.Scan(&e.ID, &e.Name, &e.Amount, &freq, &e.Category, &e.IsVariable, &e.IsIncome,
		&icon, &imageURL, &varMonth, &varYear, &createdAt, &updated); err != nil {
		return core.Expense{}, err
	}
	e.Frequency = core.Frequency(freq)
	e.Icon = icon.String
	e.ImageURL = imageURL.String
	e.VariableMonth = intPtr(varMonth)
	e.VariableYear = intPtr(varYear)
	e.CreatedAt = fromUnix(createdAt)
	e.UpdatedAt = fromUnix(updated)
	return e, nil
}

func (r *SQLRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.query(ctx, `SELECT `+expenseColumns+` FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(r.queryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	ts := r.timestamp()
	err := r.queryRow(ctx, `INSERT INTO expenses
		(name, amount, frequency, category, is_variable, is_income, icon, image_url,
		 variable_month, variable_year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		e.Name, e.Amount, string(e.Frequency), e.Category, e.IsVariable, e.IsIncome,
		nullString(e.Icon), nullString(e.ImageURL), nullInt(e.VariableMonth), nullInt(e.VariableYear), ts, ts,
	).Scan(&e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.CreatedAt = fromUnix(ts)
	e.UpdatedAt = e.CreatedAt

	r.logger.DebugContext(ctx, "Expense saved",
		log.FieldExpenseID, e.ID,
		log.FieldExpenseName, e.Name,
		log.FieldAmount, e.Amount,
		log.FieldFrequency, e.Frequency,
		log.FieldIsVariable, e.IsVariable,
		log.FieldIsIncome, e.IsIncome)

	return e, nil
}

func (r *SQLRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	res, err := r.exec(ctx, `UPDATE expenses SET
		name = ?, amount = ?, frequency = ?, category = ?, is_variable = ?, is_income = ?,
		icon = ?, image_url = ?, variable_month = ?, variable_year = ?, updated_at = ?
		WHERE id = ?`,
		e.Name, e.Amount, string(e.Frequency), e.Category, e.IsVariable, e.IsIncome,
		nullString(e.Icon), nullString(e.ImageURL), nullInt(e.VariableMonth), nullInt(e.VariableYear),
		r.timestamp(), e.ID,
	)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if err := requireAffected(res, "expense", e.ID); err != nil {
		return core.Expense{}, err
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *SQLRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if err := requireAffected(res, "expense", id); err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "Expense deleted", log.FieldExpenseID, id)
	return nil
}

func (r *SQLRepository) DeleteAllExpenses(ctx context.Context) error {
	if _, err := r.exec(ctx, `DELETE FROM expenses`); err != nil {
		return fmt.Errorf("delete all expenses: %w", err)
	}
	return nil
}

// Categories

const categoryColumns = `id, name, icon, color, created_at`

func scanCategory(s rowScanner) (core.Category, error) {
	var (
		c  core.Category
		ts int64
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &ts); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = fromUnix(ts)
	return c, nil
}

func (r *SQLRepository) listCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := r.listCategories(ctx)
	if err != nil || len(cats) > 0 || len(r.seeds) == 0 {
		return cats, err
	}

	ts := r.timestamp()
	for _, c := range r.seeds {
		if _, err := r.exec(ctx, `INSERT INTO categories (name, icon, color, created_at)
			VALUES (?, ?, ?, ?) ON CONFLICT (name) DO NOTHING`, c.Name, c.Icon, c.Color, ts); err != nil {
			return nil, fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}
	r.logger.InfoContext(ctx, "Seeded default categories", "count", len(r.seeds))

	return r.listCategories(ctx)
}

func (r *SQLRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.queryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	ts := r.timestamp()
	err := r.queryRow(ctx, `INSERT INTO categories (name, icon, color, created_at)
		VALUES (?, ?, ?, ?) RETURNING id`, c.Name, c.Icon, c.Color, ts).Scan(&c.ID)
	if isUniqueViolation(err) {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.CreatedAt = fromUnix(ts)
	return c, nil
}

func (r *SQLRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.exec(ctx, `UPDATE categories SET name = ?, icon = ?, color = ? WHERE id = ?`,
		c.Name, c.Icon, c.Color, c.ID)
	if isUniqueViolation(err) {
		return core.Category{}, fmt.Errorf("category %q: %w", c.Name, core.ErrConflict)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if err := requireAffected(res, "category", c.ID); err != nil {
		return core.Category{}, err
	}
	return r.GetCategory(ctx, c.ID)
}

func (r *SQLRepository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	return requireAffected(res, "category", id)
}

func (r *SQLRepository) DeleteAllCategories(ctx context.Context) error {
	if _, err := r.exec(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("delete all categories: %w", err)
	}
	return nil
}

// Split settings

func (r *SQLRepository) readSplitSettings(ctx context.Context) (core.SplitSettings, error) {
	var (
		s          core.SplitSettings
		img1, img2 sql.NullString
		ts         int64
	)
	err := r.queryRow(ctx, `SELECT id, user1_name, user1_percentage, user1_profile_image,
		user2_name, user2_percentage, user2_profile_image, updated_at
		FROM split_settings WHERE id = 1`).Scan(
		&s.ID, &s.User1Name, &s.User1Percentage, &img1,
		&s.User2Name, &s.User2Percentage, &img2, &ts)
	if err != nil {
		return core.SplitSettings{}, err
	}
	s.User1ProfileImage = img1.String
	s.User2ProfileImage = img2.String
	s.UpdatedAt = fromUnix(ts)
	return s, nil
}

func (r *SQLRepository) GetSplitSettings(ctx context.Context) (core.SplitSettings, error) {
	s, err := r.readSplitSettings(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.SplitSettings{}, fmt.Errorf("get split settings: %w", err)
	}

	d := core.DefaultSplitSettings()
	if _, err := r.exec(ctx, `INSERT INTO split_settings
		(id, user1_name, user1_percentage, user2_name, user2_percentage, updated_at)
		VALUES (1, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		d.User1Name, d.User1Percentage, d.User2Name, d.User2Percentage, r.timestamp()); err != nil {
		return core.SplitSettings{}, fmt.Errorf("initialize split settings: %w", err)
	}
	r.logger.InfoContext(ctx, "Initialized default split settings")

	s, err = r.readSplitSettings(ctx)
	if err != nil {
		return core.SplitSettings{}, fmt.Errorf("get split settings: %w", err)
	}
	return s, nil
}

func (r *SQLRepository) UpdateSplitSettings(ctx context.Context, s core.SplitSettings) (core.SplitSettings, error) {
	if _, err := r.GetSplitSettings(ctx); err != nil {
		return core.SplitSettings{}, err
	}
	_, err := r.exec(ctx, `UPDATE split_settings SET
		user1_name = ?, user1_percentage = ?, user1_profile_image = ?,
		user2_name = ?, user2_percentage = ?, user2_profile_image = ?, updated_at = ?
		WHERE id = 1`,
		s.User1Name, s.User1Percentage, nullString(s.User1ProfileImage),
		s.User2Name, s.User2Percentage, nullString(s.User2ProfileImage), r.timestamp())
	if err != nil {
		return core.SplitSettings{}, fmt.Errorf("update split settings: %w", err)
	}
	return r.GetSplitSettings(ctx)
}

// Historical expenses

const historicalColumns = `id, expense_name, year, amount, frequency, category, created_at`

func scanHistorical(s rowScanner) (core.HistoricalExpense, error) {
	var (
		h    core.HistoricalExpense
		freq string
		ts   int64
	)
	if err := s.Scan(&h.ID, &h.ExpenseName, &h.Year, &h.Amount, &freq, &h.Category, &ts); err != nil {
		return core.HistoricalExpense{}, err
	}
	h.Frequency = core.Frequency(freq)
	h.CreatedAt = fromUnix(ts)
	return h, nil
}

func (r *SQLRepository) listHistorical(ctx context.Context, query string, args ...any) ([]core.HistoricalExpense, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list historical expenses: %w", err)
	}
	defer rows.Close()

	var out []core.HistoricalExpense
	for rows.Next() {
		h, err := scanHistorical(rows)
		if err != nil {
			return nil, fmt.Errorf("scan historical expense: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate historical expenses: %w", err)
	}
	return out, nil
}

func (r *SQLRepository) ListHistorical(ctx context.Context, year int) ([]core.HistoricalExpense, error) {
	return r.listHistorical(ctx, `SELECT `+historicalColumns+` FROM historical_expenses
		WHERE year = ? ORDER BY id`, year)
}

func (r *SQLRepository) ListAllHistorical(ctx context.Context) ([]core.HistoricalExpense, error) {
	return r.listHistorical(ctx, `SELECT `+historicalColumns+` FROM historical_expenses
		ORDER BY year, id`)
}

func (r *SQLRepository) GetHistorical(ctx context.Context, id int64) (core.HistoricalExpense, error) {
	h, err := scanHistorical(r.queryRow(ctx, `SELECT `+historicalColumns+` FROM historical_expenses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.HistoricalExpense{}, fmt.Errorf("historical expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.HistoricalExpense{}, fmt.Errorf("get historical expense %d: %w", id, err)
	}
	return h, nil
}

func (r *SQLRepository) CreateHistoricalIfAbsent(ctx context.Context, h core.HistoricalExpense) (core.HistoricalExpense, bool, error) {
	ts := r.timestamp()
	err := r.queryRow(ctx, `INSERT INTO historical_expenses
		(expense_name, year, amount, frequency, category, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (expense_name, year) DO NOTHING
		RETURNING id`,
		h.ExpenseName, h.Year, h.Amount, string(h.Frequency), h.Category, ts,
	).Scan(&h.ID)
	switch {
	case err == nil:
		h.CreatedAt = fromUnix(ts)
		r.logger.DebugContext(ctx, "Historical row inserted",
			"id", h.ID,
			log.FieldExpenseName, h.ExpenseName,
			log.FieldYear, h.Year)
		return h, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := scanHistorical(r.queryRow(ctx, `SELECT `+historicalColumns+`
			FROM historical_expenses WHERE expense_name = ? AND year = ?`, h.ExpenseName, h.Year))
		if err != nil {
			return core.HistoricalExpense{}, false, fmt.Errorf("read existing snapshot %q/%d: %w", h.ExpenseName, h.Year, err)
		}
		return existing, false, nil
	default:
		return core.HistoricalExpense{}, false, fmt.Errorf("create historical expense: %w", err)
	}
}

func (r *SQLRepository) DeleteHistorical(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM historical_expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete historical expense %d: %w", id, err)
	}
	return requireAffected(res, "historical expense", id)
}
