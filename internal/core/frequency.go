package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Frequency is the billing cadence of an expense.
type Frequency string

const (
	FrequencyMonthly      Frequency = "monthly"
	FrequencyQuarterly    Frequency = "quarterly"
	FrequencySemiAnnually Frequency = "semi-annually"
	FrequencyYearly       Frequency = "yearly"
	FrequencyOneTime      Frequency = "one-time"
)

// Canonical maps aliases and case variants onto one of the five canonical
// values. The second result is false for anything else.
func (f Frequency) Canonical() (Frequency, bool) {
	switch strings.ToLower(strings.TrimSpace(string(f))) {
	case "monthly", "monatlich":
		return FrequencyMonthly, true
	case "quarterly", "vierteljährlich":
		return FrequencyQuarterly, true
	case "semi-annually", "halbjährlich":
		return FrequencySemiAnnually, true
	case "yearly", "jährlich":
		return FrequencyYearly, true
	case "one-time", "einmalig":
		return FrequencyOneTime, true
	default:
		return f, false
	}
}

// IsValid reports whether f is one of the canonical values.
func (f Frequency) IsValid() bool {
	_, ok := f.months()
	return ok
}

// Months returns how many months one billing period spans. Aliases are
// resolved first; unknown values report false.
func (f Frequency) Months() (int, bool) {
	if c, ok := f.Canonical(); ok {
		f = c
	}
	return f.months()
}

func (f Frequency) months() (int, bool) {
	switch f {
	case FrequencyMonthly:
		return 1, true
	case FrequencyQuarterly:
		return 3, true
	case FrequencySemiAnnually:
		return 6, true
	case FrequencyYearly:
		return 12, true
	case FrequencyOneTime:
		// one-off costs are spread over a year
		return 12, true
	default:
		return 0, false
	}
}

// MonthlyEquivalent converts amount billed at f into a per-month figure.
// An unknown frequency passes the amount through unchanged and reports false
// so callers can flag the record. No rounding happens here.
func MonthlyEquivalent(amount decimal.Decimal, f Frequency) (decimal.Decimal, bool) {
	months, ok := f.Months()
	if !ok {
		return amount, false
	}
	if months == 1 {
		return amount, true
	}
	return amount.Div(decimal.NewFromInt(int64(months))), true
}
