package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	// IncomeCategory and IncomeIcon are forced onto every income record.
	IncomeCategory = "Income"
	IncomeIcon     = "trending-up"

	DefaultExpenseIcon   = "receipt"
	DefaultCategoryIcon  = "ellipsis-h"
	DefaultCategoryColor = "bg-gray-100 text-gray-500"

	maxNameLength = 200
)

type (
	Expense struct {
		ID            int64     `json:"id"`
		Name          string    `json:"name"`
		Amount        float64   `json:"amount"`
		Frequency     Frequency `json:"frequency"`
		Category      string    `json:"category"`
		IsVariable    bool      `json:"isVariable"`
		IsIncome      bool      `json:"isIncome"`
		Icon          string    `json:"icon,omitempty"`
		ImageURL      string    `json:"imageUrl,omitempty"`
		VariableMonth *int      `json:"variableMonth"`
		VariableYear  *int      `json:"variableYear"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
	}

	// ExpensePatch carries a partial update. Nil fields are left untouched.
	ExpensePatch struct {
		Name          *string    `json:"name,omitempty"`
		Amount        *float64   `json:"amount,omitempty"`
		Frequency     *Frequency `json:"frequency,omitempty"`
		Category      *string    `json:"category,omitempty"`
		IsVariable    *bool      `json:"isVariable,omitempty"`
		IsIncome      *bool      `json:"isIncome,omitempty"`
		Icon          *string    `json:"icon,omitempty"`
		ImageURL      *string    `json:"imageUrl,omitempty"`
		VariableMonth *int       `json:"variableMonth,omitempty"`
		VariableYear  *int       `json:"variableYear,omitempty"`
	}

	Category struct {
		ID        int64     `json:"id"`
		Name      string    `json:"name" yaml:"name"`
		Icon      string    `json:"icon" yaml:"icon"`
		Color     string    `json:"color" yaml:"color"`
		CreatedAt time.Time `json:"createdAt" yaml:"-"`
	}

	// CategoryPatch carries a partial category update.
	CategoryPatch struct {
		Name  *string `json:"name,omitempty"`
		Icon  *string `json:"icon,omitempty"`
		Color *string `json:"color,omitempty"`
	}

	// SplitSettings is the household singleton describing how spend is shared.
	SplitSettings struct {
		ID                int64     `json:"id"`
		User1Name         string    `json:"user1Name"`
		User1Percentage   int       `json:"user1Percentage"`
		User1ProfileImage string    `json:"user1ProfileImage,omitempty"`
		User2Name         string    `json:"user2Name"`
		User2Percentage   int       `json:"user2Percentage"`
		User2ProfileImage string    `json:"user2ProfileImage,omitempty"`
		UpdatedAt         time.Time `json:"updatedAt"`
	}

	// HistoricalExpense is the yearly snapshot of a fixed expense's billing
	// terms. At most one exists per (ExpenseName, Year).
	HistoricalExpense struct {
		ID          int64     `json:"id"`
		ExpenseName string    `json:"expenseName"`
		Year        int       `json:"year"`
		Amount      float64   `json:"amount"`
		Frequency   Frequency `json:"frequency"`
		Category    string    `json:"category"`
		CreatedAt   time.Time `json:"createdAt"`
	}
)

// ValidationError marks input rejected at the write boundary.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// NewValidationError builds an ad-hoc validation error.
func NewValidationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")

	ErrEmptyName             = NewValidationError("empty name")
	ErrNameTooLong           = NewValidationError("name too long (max 200 characters)")
	ErrInvalidAmount         = NewValidationError("invalid amount")
	ErrInvalidFrequency      = NewValidationError("invalid frequency")
	ErrEmptyCategory         = NewValidationError("empty category")
	ErrMissingVariablePeriod = NewValidationError("variable expense requires variableMonth and variableYear")
	ErrInvalidVariableMonth  = NewValidationError("variableMonth must be between 1 and 12")
	ErrInvalidYear           = NewValidationError("invalid year")
	ErrInvalidPercentage     = NewValidationError("split percentages must be between 0 and 100")
	ErrPercentagesNotHundred = NewValidationError("split percentages must add up to 100")
	ErrEmptyUserName         = NewValidationError("empty user name")
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func validAmount(amount float64) error {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}

func validYear(year int) bool {
	return year >= 1900 && year <= 9999
}

// ValidateYear rejects report and snapshot years outside 1900..9999.
func ValidateYear(year int) error {
	if !validYear(year) {
		return ErrInvalidYear
	}
	return nil
}

// Normalize applies the write-time rules every stored expense obeys:
// canonical frequency, income category/icon coercion and cleared variable
// period on fixed expenses.
func (e *Expense) Normalize() {
	e.Name = strings.TrimSpace(e.Name)
	e.Category = strings.TrimSpace(e.Category)
	if f, ok := e.Frequency.Canonical(); ok {
		e.Frequency = f
	}
	if e.IsIncome {
		e.Category = IncomeCategory
		e.Icon = IncomeIcon
	}
	if e.Icon == "" || e.Icon == "default" {
		e.Icon = DefaultExpenseIcon
	}
	if !e.IsVariable {
		e.VariableMonth = nil
		e.VariableYear = nil
	}
}

func (e Expense) Validate() error {
	if err := validName(e.Name); err != nil {
		return err
	}
	if err := validAmount(e.Amount); err != nil {
		return err
	}
	if !e.Frequency.IsValid() {
		return ErrInvalidFrequency
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.IsVariable {
		if e.VariableMonth == nil || e.VariableYear == nil {
			return ErrMissingVariablePeriod
		}
		if *e.VariableMonth < 1 || *e.VariableMonth > 12 {
			return ErrInvalidVariableMonth
		}
		if !validYear(*e.VariableYear) {
			return ErrInvalidYear
		}
	}
	return nil
}

// IsFixed reports whether the expense recurs and is not income.
func (e Expense) IsFixed() bool {
	return !e.IsVariable && !e.IsIncome
}

// InPeriod reports whether a variable expense is pinned to month/year.
func (e Expense) InPeriod(month, year int) bool {
	return e.VariableMonth != nil && e.VariableYear != nil &&
		*e.VariableMonth == month && *e.VariableYear == year
}

// Apply returns a copy of e with the patch applied.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Frequency != nil {
		e.Frequency = *p.Frequency
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.IsVariable != nil {
		e.IsVariable = *p.IsVariable
	}
	if p.IsIncome != nil {
		e.IsIncome = *p.IsIncome
	}
	if p.Icon != nil {
		e.Icon = *p.Icon
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.VariableMonth != nil {
		m := *p.VariableMonth
		e.VariableMonth = &m
	}
	if p.VariableYear != nil {
		y := *p.VariableYear
		e.VariableYear = &y
	}
	return e
}

// ChangesBilling reports whether applying p to e alters amount or frequency.
func (p ExpensePatch) ChangesBilling(e Expense) bool {
	if p.Amount != nil && *p.Amount != e.Amount {
		return true
	}
	if p.Frequency != nil {
		f := *p.Frequency
		if c, ok := f.Canonical(); ok {
			f = c
		}
		if f != e.Frequency {
			return true
		}
	}
	return false
}

// Snapshot copies the billing terms of e into a historical record for year.
func (e Expense) Snapshot(year int) HistoricalExpense {
	return HistoricalExpense{
		ExpenseName: e.Name,
		Year:        year,
		Amount:      e.Amount,
		Frequency:   e.Frequency,
		Category:    e.Category,
	}
}

func (c *Category) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	if strings.TrimSpace(c.Icon) == "" {
		c.Icon = DefaultCategoryIcon
	}
	if strings.TrimSpace(c.Color) == "" {
		c.Color = DefaultCategoryColor
	}
}

func (c Category) Validate() error {
	return validName(c.Name)
}

func (p CategoryPatch) Apply(c Category) Category {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	return c
}

// DefaultSplitSettings is the split created on first read.
func DefaultSplitSettings() SplitSettings {
	return SplitSettings{
		User1Name:       "You",
		User1Percentage: 60,
		User2Name:       "Partner",
		User2Percentage: 40,
	}
}

// ResetSplitSettings is the split applied when the database is cleared.
func ResetSplitSettings() SplitSettings {
	return SplitSettings{
		User1Name:       "User 1",
		User1Percentage: 50,
		User2Name:       "User 2",
		User2Percentage: 50,
	}
}

// Validate enforces the write-boundary invariant that both percentages are in
// range and add up to 100. The engine itself tolerates any pair.
func (s SplitSettings) Validate() error {
	if strings.TrimSpace(s.User1Name) == "" || strings.TrimSpace(s.User2Name) == "" {
		return ErrEmptyUserName
	}
	for _, p := range []int{s.User1Percentage, s.User2Percentage} {
		if p < 0 || p > 100 {
			return ErrInvalidPercentage
		}
	}
	if s.User1Percentage+s.User2Percentage != 100 {
		return ErrPercentagesNotHundred
	}
	return nil
}

// Validate accepts any frequency that canonicalizes, including the legacy
// aliases found in older snapshots.
func (h HistoricalExpense) Validate() error {
	if err := validName(h.ExpenseName); err != nil {
		return err
	}
	if !validYear(h.Year) {
		return ErrInvalidYear
	}
	if err := validAmount(h.Amount); err != nil {
		return err
	}
	if _, ok := h.Frequency.Canonical(); !ok {
		return ErrInvalidFrequency
	}
	if strings.TrimSpace(h.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// AsExpense maps a snapshot into the expense shape used by the engine:
// always fixed, never income.
func (h HistoricalExpense) AsExpense() Expense {
	return Expense{
		ID:        h.ID,
		Name:      h.ExpenseName,
		Amount:    h.Amount,
		Frequency: h.Frequency,
		Category:  h.Category,
		Icon:      DefaultExpenseIcon,
		CreatedAt: h.CreatedAt,
		UpdatedAt: h.CreatedAt,
	}
}
