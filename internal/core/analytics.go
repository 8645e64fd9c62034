package core

import (
	"strings"
	"time"
)

type (
	// MonthAmount is one point of the 12-month trend.
	MonthAmount struct {
		Month  string  `json:"month"`
		Amount float64 `json:"amount"`
	}

	// CategorySplit is one slice of the category breakdown. Value is an
	// integer percent; values are rounded independently and may not add up
	// to exactly 100.
	CategorySplit struct {
		Name   string  `json:"name"`
		Value  int     `json:"value"`
		Amount float64 `json:"amount"`
		Color  string  `json:"color"`
	}

	// Analytics is the household overview for one report year. All money
	// fields are rounded to two decimals.
	Analytics struct {
		MonthlyTotal      float64         `json:"monthlyTotal"`
		User1Share        float64         `json:"user1Share"`
		User2Share        float64         `json:"user2Share"`
		User1Name         string          `json:"user1Name"`
		User2Name         string          `json:"user2Name"`
		User1ProfileImage string          `json:"user1ProfileImage,omitempty"`
		User2ProfileImage string          `json:"user2ProfileImage,omitempty"`
		ActiveExpenses    int             `json:"activeExpenses"`
		MonthlyTrend      []MonthAmount   `json:"monthlyTrend"`
		FixedCostsTotal   float64         `json:"fixedCostsTotal"`
		FixedCostsTrend   float64         `json:"fixedCostsTrend"`
		SplitData         []CategorySplit `json:"splitData"`
	}

	// YearReport pairs the analytics of a year with the records they were
	// computed from.
	YearReport struct {
		Year      int
		Expenses  []Expense
		Analytics Analytics
	}

	// SnapshotResult lists the expense names a year transition snapshotted.
	SnapshotResult struct {
		Year        int      `json:"year"`
		Snapshotted []string `json:"snapshotted"`
	}

	// Backup is the portable dump of the whole household database.
	Backup struct {
		Expenses           []Expense           `json:"expenses"`
		SplitSettings      *SplitSettings      `json:"splitSettings,omitempty"`
		Categories         []Category          `json:"categories"`
		HistoricalExpenses []HistoricalExpense `json:"historicalExpenses"`
		ExportDate         time.Time           `json:"exportDate"`
		Version            string              `json:"version"`
	}
)

// BackupVersion is written into every export.
const BackupVersion = "1.0.0"

// FallbackColor is used for categories without a stored color.
const FallbackColor = "gray"

// MonthLabels are the twelve trend labels, January first.
type MonthLabels [12]string

var (
	MonthLabelsEN = MonthLabels{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}
	MonthLabelsDE = MonthLabels{"Jan", "Feb", "Mar", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"}
	MonthLabelsIT = MonthLabels{"Gen", "Feb", "Mar", "Apr", "Mag", "Giu", "Lug", "Ago", "Set", "Ott", "Nov", "Dic"}
)

// MonthLabelsFor returns the labels for a locale code such as "de" or "en-US".
func MonthLabelsFor(locale string) (MonthLabels, bool) {
	lang, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(locale)), "-")
	switch lang {
	case "en":
		return MonthLabelsEN, true
	case "de":
		return MonthLabelsDE, true
	case "it":
		return MonthLabelsIT, true
	default:
		return MonthLabelsEN, false
	}
}
