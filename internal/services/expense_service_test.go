package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/storage"
	"casa/internal/storage/memory"
)

type failingUpdateRepo struct {
	storage.Repository
}

func (failingUpdateRepo) UpdateExpense(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, errors.New("disk full")
}

// failingUpdateStore lets everything through except UpdateExpense inside a
// transaction.
type failingUpdateStore struct {
	*memory.Store
}

func (s failingUpdateStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.Repository) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx storage.Repository) error {
		return fn(ctx, failingUpdateRepo{tx})
	})
}

func TestExpenseService_Create(t *testing.T) {
	tests := []struct {
		name    string
		in      core.Expense
		want    func(t *testing.T, got core.Expense)
		wantErr bool
	}{
		{
			name: "fixed expense",
			in:   fixed("Rent", 1200, core.FrequencyMonthly),
			want: func(t *testing.T, got core.Expense) {
				if got.ID == 0 || got.Icon != core.DefaultExpenseIcon {
					t.Errorf("unexpected stored expense: %+v", got)
				}
			},
		},
		{
			name: "income is coerced",
			in:   core.Expense{Name: "Salary", Amount: 3000, Frequency: core.FrequencyMonthly, Category: "Whatever", IsIncome: true},
			want: func(t *testing.T, got core.Expense) {
				if got.Category != core.IncomeCategory || got.Icon != core.IncomeIcon {
					t.Errorf("income not coerced: %+v", got)
				}
			},
		},
		{
			name: "legacy frequency is canonicalized",
			in:   fixed("Insurance", 600, core.Frequency("jährlich")),
			want: func(t *testing.T, got core.Expense) {
				if got.Frequency != core.FrequencyYearly {
					t.Errorf("frequency = %q, want yearly", got.Frequency)
				}
			},
		},
		{
			name:    "negative amount",
			in:      fixed("Rent", -1, core.FrequencyMonthly),
			wantErr: true,
		},
		{
			name:    "variable without period",
			in:      core.Expense{Name: "Repair", Amount: 90, Frequency: core.FrequencyOneTime, Category: "Other", IsVariable: true},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc := NewExpenseService(newStore(), pub, testOpts()...)

			got, err := svc.Create(context.Background(), tt.in)
			if tt.wantErr {
				if !core.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				if len(pub.types()) != 0 {
					t.Errorf("no event expected on rejected write, got %v", pub.types())
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			tt.want(t, got)
			if !reflect.DeepEqual(pub.types(), []amqp.EventType{amqp.EventExpenseCreated}) {
				t.Errorf("events = %v", pub.types())
			}
		})
	}
}

func TestExpenseService_UpdateSnapshotsPreviousTerms(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	pub := &fakePublisher{}
	svc := NewExpenseService(store, pub, testOpts()...)

	rent, err := svc.Create(ctx, fixed("Rent", 1000, core.FrequencyMonthly))
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, rent.ID, core.ExpensePatch{Amount: ptr(1100.0)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Amount != 1100 {
		t.Errorf("amount = %v, want 1100", updated.Amount)
	}

	hist, err := store.ListHistorical(ctx, fixedNow.Year()-1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Fatalf("expected one snapshot, got %d", len(hist))
	}
	if hist[0].ExpenseName != "Rent" || hist[0].Amount != 1000 || hist[0].Frequency != core.FrequencyMonthly {
		t.Errorf("snapshot should hold pre-update terms, got %+v", hist[0])
	}

	want := []amqp.EventType{amqp.EventExpenseCreated, amqp.EventSnapshotCreated, amqp.EventExpenseUpdated}
	if !reflect.DeepEqual(pub.types(), want) {
		t.Errorf("events = %v, want %v", pub.types(), want)
	}

	// A second billing change keeps the first snapshot.
	if _, err := svc.Update(ctx, rent.ID, core.ExpensePatch{Frequency: ptr(core.FrequencyQuarterly)}); err != nil {
		t.Fatal(err)
	}
	hist, _ = store.ListHistorical(ctx, fixedNow.Year()-1)
	if len(hist) != 1 || hist[0].Amount != 1000 {
		t.Errorf("existing snapshot must not be overwritten: %+v", hist)
	}
}

func TestExpenseService_UpdateWithoutSnapshot(t *testing.T) {
	month, year := 2, 2025
	tests := []struct {
		name  string
		in    core.Expense
		patch core.ExpensePatch
	}{
		{
			name:  "rename only",
			in:    fixed("Rent", 1000, core.FrequencyMonthly),
			patch: core.ExpensePatch{Name: ptr("Apartment")},
		},
		{
			name:  "same amount",
			in:    fixed("Rent", 1000, core.FrequencyMonthly),
			patch: core.ExpensePatch{Amount: ptr(1000.0)},
		},
		{
			name:  "alias of current frequency",
			in:    fixed("Rent", 1000, core.FrequencyMonthly),
			patch: core.ExpensePatch{Frequency: ptr(core.Frequency("monatlich"))},
		},
		{
			name: "variable expense",
			in: core.Expense{Name: "Repair", Amount: 90, Frequency: core.FrequencyOneTime, Category: "Other",
				IsVariable: true, VariableMonth: &month, VariableYear: &year},
			patch: core.ExpensePatch{Amount: ptr(120.0)},
		},
		{
			name:  "income",
			in:    core.Expense{Name: "Salary", Amount: 3000, Frequency: core.FrequencyMonthly, IsIncome: true},
			patch: core.ExpensePatch{Amount: ptr(3200.0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()
			svc := NewExpenseService(store, nil, testOpts()...)

			e, err := svc.Create(ctx, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := svc.Update(ctx, e.ID, tt.patch); err != nil {
				t.Fatalf("Update: %v", err)
			}
			all, _ := store.ListAllHistorical(ctx)
			if len(all) != 0 {
				t.Errorf("expected no snapshot, got %+v", all)
			}
		})
	}
}

func TestExpenseService_UpdateRollsBackSnapshot(t *testing.T) {
	ctx := context.Background()
	mem := newStore()
	rent, err := mem.CreateExpense(ctx, fixed("Rent", 1000, core.FrequencyMonthly))
	if err != nil {
		t.Fatal(err)
	}

	svc := NewExpenseService(failingUpdateStore{mem}, nil, testOpts()...)
	if _, err := svc.Update(ctx, rent.ID, core.ExpensePatch{Amount: ptr(1500.0)}); err == nil {
		t.Fatal("expected update error")
	}

	all, _ := mem.ListAllHistorical(ctx)
	if len(all) != 0 {
		t.Errorf("snapshot must not survive a failed update: %+v", all)
	}
	got, _ := mem.GetExpense(ctx, rent.ID)
	if got.Amount != 1000 {
		t.Errorf("amount = %v, want unchanged 1000", got.Amount)
	}
}

func TestExpenseService_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	svc := NewExpenseService(store, nil, testOpts()...)

	rent, _ := svc.Create(ctx, fixed("Rent", 1000, core.FrequencyMonthly))

	_, err := svc.Update(ctx, rent.ID, core.ExpensePatch{Amount: ptr(-5.0)})
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	all, _ := store.ListAllHistorical(ctx)
	if len(all) != 0 {
		t.Errorf("rejected update must not snapshot: %+v", all)
	}
}

func TestExpenseService_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewExpenseService(newStore(), nil, testOpts()...)

	if _, err := svc.Get(ctx, 42); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, 42, core.ExpensePatch{Name: ptr("x")}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Update: expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, 42); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestExpenseService_Delete(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc := NewExpenseService(newStore(), pub, testOpts()...)

	e, _ := svc.Create(ctx, fixed("Rent", 1000, core.FrequencyMonthly))
	if err := svc.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
	if types := pub.types(); types[len(types)-1] != amqp.EventExpenseDeleted {
		t.Errorf("last event = %v", types[len(types)-1])
	}
}
