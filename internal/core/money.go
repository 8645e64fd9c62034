// Package core provides money parsing and handling utilities.
//
// This file contains the conversions between the float amounts stored on
// records and the decimal values used for every sum, plus the rounding
// applied when results leave the engine.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Dec converts a stored amount into a decimal for arithmetic.
func Dec(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount)
}

// RoundMoney rounds to two decimal places, half away from zero.
func RoundMoney(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// Percent returns part/total*100 rounded to an integer, or 0 when total is 0.
func Percent(part, total decimal.Decimal) int {
	if total.IsZero() {
		return 0
	}
	return int(part.Div(total).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// ParseAmount parses a positive amount, accepting either a dot (12.34) or a
// comma (12,34) as decimal separator.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}
