package core

import (
	"errors"
	"fmt"
	"testing"
)

func intp(v int) *int { return &v }

func TestExpenseValidate(t *testing.T) {
	good := Expense{Name: "Rent", Amount: 900, Frequency: FrequencyMonthly, Category: "Housing"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	variable := Expense{Name: "Car repair", Amount: 50, Frequency: FrequencyMonthly, Category: "Transportation",
		IsVariable: true, VariableMonth: intp(3), VariableYear: intp(2025)}
	if err := variable.Validate(); err != nil {
		t.Fatalf("expected ok for variable expense, got %v", err)
	}

	cases := []struct {
		name string
		e    Expense
		want error
	}{
		{"empty name", Expense{Name: " ", Amount: 1, Frequency: FrequencyMonthly, Category: "c"}, ErrEmptyName},
		{"zero amount", Expense{Name: "a", Amount: 0, Frequency: FrequencyMonthly, Category: "c"}, ErrInvalidAmount},
		{"negative amount", Expense{Name: "a", Amount: -5, Frequency: FrequencyMonthly, Category: "c"}, ErrInvalidAmount},
		{"unknown frequency", Expense{Name: "a", Amount: 1, Frequency: "weekly", Category: "c"}, ErrInvalidFrequency},
		{"empty category", Expense{Name: "a", Amount: 1, Frequency: FrequencyMonthly}, ErrEmptyCategory},
		{"variable without period", Expense{Name: "a", Amount: 1, Frequency: FrequencyMonthly, Category: "c", IsVariable: true}, ErrMissingVariablePeriod},
		{"variable month out of range", Expense{Name: "a", Amount: 1, Frequency: FrequencyMonthly, Category: "c",
			IsVariable: true, VariableMonth: intp(13), VariableYear: intp(2025)}, ErrInvalidVariableMonth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.e.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsValidation(err) {
				t.Fatalf("expected a validation error, got %T", err)
			}
		})
	}
}

func TestExpenseNormalizeIncome(t *testing.T) {
	e := Expense{Name: " Salary ", Amount: 3000, Frequency: "Monthly", Category: "Other", Icon: "car", IsIncome: true}
	e.Normalize()
	if e.Category != IncomeCategory || e.Icon != IncomeIcon {
		t.Fatalf("income not coerced: category=%q icon=%q", e.Category, e.Icon)
	}
	if e.Name != "Salary" {
		t.Fatalf("name not trimmed: %q", e.Name)
	}
	if e.Frequency != FrequencyMonthly {
		t.Fatalf("frequency not canonical: %q", e.Frequency)
	}
}

func TestExpenseNormalizeClearsPeriodOnFixed(t *testing.T) {
	e := Expense{Name: "Gym", Amount: 30, Frequency: FrequencyMonthly, Category: "Other",
		VariableMonth: intp(4), VariableYear: intp(2025)}
	e.Normalize()
	if e.VariableMonth != nil || e.VariableYear != nil {
		t.Fatalf("fixed expense kept its variable period")
	}
	if e.Icon != DefaultExpenseIcon {
		t.Fatalf("expected default icon, got %q", e.Icon)
	}
}

func TestExpensePatch(t *testing.T) {
	base := Expense{ID: 7, Name: "Internet", Amount: 40, Frequency: FrequencyMonthly, Category: "Utilities"}

	amount := 45.0
	p := ExpensePatch{Amount: &amount}
	if !p.ChangesBilling(base) {
		t.Fatalf("amount change not detected")
	}
	got := p.Apply(base)
	if got.Amount != 45 || got.ID != 7 || got.Name != "Internet" {
		t.Fatalf("unexpected patched expense: %+v", got)
	}
	if base.Amount != 40 {
		t.Fatalf("Apply mutated its input")
	}

	same := 40.0
	if (ExpensePatch{Amount: &same}).ChangesBilling(base) {
		t.Fatalf("unchanged amount reported as change")
	}

	alias := Frequency("Monthly")
	if (ExpensePatch{Frequency: &alias}).ChangesBilling(base) {
		t.Fatalf("alias of the same frequency reported as change")
	}

	name := "Fiber"
	if (ExpensePatch{Name: &name}).ChangesBilling(base) {
		t.Fatalf("rename reported as billing change")
	}
}

func TestSplitSettingsValidate(t *testing.T) {
	cases := []struct {
		u1, u2 int
		want   error
	}{
		{60, 40, nil},
		{100, 0, nil},
		{70, 40, ErrPercentagesNotHundred},
		{-10, 110, ErrInvalidPercentage},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_%d", tc.u1, tc.u2), func(t *testing.T) {
			s := SplitSettings{User1Name: "A", User1Percentage: tc.u1, User2Name: "B", User2Percentage: tc.u2}
			if err := s.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if err := DefaultSplitSettings().Validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	if err := ResetSplitSettings().Validate(); err != nil {
		t.Fatalf("reset settings invalid: %v", err)
	}
	if err := (SplitSettings{User1Percentage: 50, User2Percentage: 50}).Validate(); !errors.Is(err, ErrEmptyUserName) {
		t.Fatalf("expected empty user name error, got %v", err)
	}
}

func TestHistoricalExpense(t *testing.T) {
	h := HistoricalExpense{ExpenseName: "Insurance", Year: 2024, Amount: 600, Frequency: "jährlich", Category: "Insurance"}
	if err := h.Validate(); err != nil {
		t.Fatalf("legacy alias should validate: %v", err)
	}
	h.Frequency = "fortnightly"
	if err := h.Validate(); !errors.Is(err, ErrInvalidFrequency) {
		t.Fatalf("expected invalid frequency, got %v", err)
	}

	e := HistoricalExpense{ID: 3, ExpenseName: "Rent", Year: 2024, Amount: 900, Frequency: FrequencyMonthly, Category: "Housing"}.AsExpense()
	if e.IsVariable || e.IsIncome || e.Name != "Rent" || e.Icon != DefaultExpenseIcon {
		t.Fatalf("unexpected mapping: %+v", e)
	}
}

func TestExpenseSnapshot(t *testing.T) {
	e := Expense{Name: "Rent", Amount: 100, Frequency: FrequencyMonthly, Category: "Housing"}
	h := e.Snapshot(2024)
	if h.ExpenseName != "Rent" || h.Year != 2024 || h.Amount != 100 || h.Frequency != FrequencyMonthly || h.Category != "Housing" {
		t.Fatalf("unexpected snapshot: %+v", h)
	}
}

func TestCategoryNormalize(t *testing.T) {
	c := Category{Name: "  Pets "}
	c.Normalize()
	if c.Name != "Pets" || c.Icon != DefaultCategoryIcon || c.Color != DefaultCategoryColor {
		t.Fatalf("unexpected category: %+v", c)
	}
	if err := (Category{Name: ""}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected empty name, got %v", err)
	}
}

func TestValidateYear(t *testing.T) {
	for _, y := range []int{1900, 2025, 9999} {
		if err := ValidateYear(y); err != nil {
			t.Errorf("ValidateYear(%d) = %v", y, err)
		}
	}
	for _, y := range []int{0, 1899, 10000, -2025} {
		if err := ValidateYear(y); !errors.Is(err, ErrInvalidYear) {
			t.Errorf("ValidateYear(%d) = %v, want ErrInvalidYear", y, err)
		}
	}
}
