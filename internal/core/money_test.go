package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out float64
		ok  bool
	}{
		{"1", 1, true},
		{"1.23", 1.23, true},
		{"1,23", 1.23, true},
		{" 2.50 ", 2.5, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %v, got %v (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestRoundMoney(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"33.333333", 33.33},
		{"66.666666", 66.67},
		{"0.125", 0.13},
		{"-0.125", -0.13},
		{"100", 100},
	}
	for _, tc := range cases {
		if got := RoundMoney(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Fatalf("RoundMoney(%s) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPercent(t *testing.T) {
	third := decimal.NewFromInt(100).Div(decimal.NewFromInt(3))
	if got := Percent(third, decimal.NewFromInt(100)); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	if got := Percent(decimal.NewFromInt(60), decimal.NewFromInt(100)); got != 60 {
		t.Fatalf("expected 60, got %d", got)
	}
	if got := Percent(decimal.NewFromInt(1), decimal.Zero); got != 0 {
		t.Fatalf("expected 0 for zero total, got %d", got)
	}
}
