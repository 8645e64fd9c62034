package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Scope decides how a record contributes to a report for Year, given the
// real-world month and year the report is produced in.
//
// A report for the current year works on live expenses: fixed ones recur
// every month at their monthly equivalent, variable ones count only in the
// month they are pinned to. Any other year works on snapshots, which are
// fixed by construction.
type Scope struct {
	Year     int // report year
	NowYear  int
	NowMonth int
}

// NewScope builds a Scope for reportYear evaluated at now.
func NewScope(now time.Time, reportYear int) Scope {
	return Scope{
		Year:     reportYear,
		NowYear:  now.Year(),
		NowMonth: int(now.Month()),
	}
}

// IsCurrentYear reports whether the report covers the real current year.
func (s Scope) IsCurrentYear() bool {
	return s.Year == s.NowYear
}

func monthly(e Expense) decimal.Decimal {
	m, _ := MonthlyEquivalent(Dec(e.Amount), e.Frequency)
	return m
}

// Instant is the record's share of this month's total.
func (s Scope) Instant(e Expense) decimal.Decimal {
	if !s.IsCurrentYear() {
		return monthly(e)
	}
	if e.IsVariable {
		if e.InPeriod(s.NowMonth, s.NowYear) {
			return Dec(e.Amount)
		}
		return decimal.Zero
	}
	return monthly(e)
}

// Fixed is the record's recurring monthly contribution; variable expenses
// never contribute.
func (s Scope) Fixed(e Expense) decimal.Decimal {
	if !s.IsCurrentYear() {
		return monthly(e)
	}
	if e.IsVariable {
		return decimal.Zero
	}
	return monthly(e)
}

// VariableIn is the raw amount a variable expense adds to month of the
// report year. Snapshots carry no variability and always yield zero.
func (s Scope) VariableIn(e Expense, month int) decimal.Decimal {
	if !s.IsCurrentYear() || !e.IsVariable {
		return decimal.Zero
	}
	if e.InPeriod(month, s.Year) {
		return Dec(e.Amount)
	}
	return decimal.Zero
}

// Split is the record's contribution to the category breakdown of the real
// current month. Income never counts; the second result is false when the
// record is left out entirely.
func (s Scope) Split(e Expense) (decimal.Decimal, bool) {
	if e.IsIncome {
		return decimal.Zero, false
	}
	if e.IsVariable {
		if e.InPeriod(s.NowMonth, s.NowYear) {
			return Dec(e.Amount), true
		}
		return decimal.Zero, false
	}
	return monthly(e), true
}
