package memory

import (
	"context"
	"fmt"
	"sync"

	"casa/internal/core"
)

// Writer keeps exported year reports in memory, keyed by year. It stands in
// for the Google Sheets writer in tests and when no spreadsheet is configured.
type Writer struct {
	mu      sync.Mutex
	reports map[int]core.YearReport
	writes  int
}

func New() *Writer {
	return &Writer{reports: map[int]core.YearReport{}}
}

// WriteYear replaces the stored report for the year and returns a synthetic reference.
func (w *Writer) WriteYear(ctx context.Context, r core.YearReport) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reports[r.Year] = r
	w.writes++
	return fmt.Sprintf("mem:%d#%d", r.Year, w.writes), nil
}

// Report returns the last report written for year.
func (w *Writer) Report(year int) (core.YearReport, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.reports[year]
	return r, ok
}

// Writes counts every WriteYear call.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
