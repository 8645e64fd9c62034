package memory

import (
	"context"
	"testing"

	"casa/internal/core"
	"casa/internal/sheets"
)

var _ sheets.BackupWriter = (*Writer)(nil)

func TestWriterReplacesYear(t *testing.T) {
	w := New()
	ctx := context.Background()

	ref, err := w.WriteYear(ctx, core.YearReport{Year: 2024, Expenses: []core.Expense{{Name: "Rent"}}})
	if err != nil || ref != "mem:2024#1" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}
	ref, err = w.WriteYear(ctx, core.YearReport{Year: 2024})
	if err != nil || ref != "mem:2024#2" {
		t.Fatalf("unexpected second write: ref=%q err=%v", ref, err)
	}

	got, ok := w.Report(2024)
	if !ok {
		t.Fatal("expected report for 2024")
	}
	if len(got.Expenses) != 0 {
		t.Errorf("expected replaced report, got %d expenses", len(got.Expenses))
	}
	if _, ok := w.Report(2023); ok {
		t.Error("unexpected report for 2023")
	}
	if w.Writes() != 2 {
		t.Errorf("writes = %d, want 2", w.Writes())
	}
}

func TestWriterCanceledContext(t *testing.T) {
	w := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.WriteYear(ctx, core.YearReport{Year: 2025}); err == nil {
		t.Fatal("expected error for canceled context")
	}
	if w.Writes() != 0 {
		t.Errorf("writes = %d, want 0", w.Writes())
	}
}
