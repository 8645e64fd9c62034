package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"casa/internal/amqp"
	"casa/internal/core"
	"casa/internal/log"
	"casa/internal/storage/memory"
)

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakePublisher struct {
	mu     sync.Mutex
	events []amqp.ChangeEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, ev amqp.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newStore() *memory.Store {
	return memory.New(memory.WithClock(clock))
}

func testOpts() []Option {
	return []Option{WithClock(clock), WithLogger(log.Discard())}
}

func fixed(name string, amount float64, f core.Frequency) core.Expense {
	return core.Expense{Name: name, Amount: amount, Frequency: f, Category: "Housing"}
}

func ptr[T any](v T) *T { return &v }

func TestNotifier_NilPublisher(t *testing.T) {
	n := notifier{logger: log.Discard()}
	n.notify(context.Background(), amqp.NewChangeEvent(amqp.EventDataCleared))
}

func TestNotifier_PublishErrorIsSwallowed(t *testing.T) {
	store := newStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, pub, testOpts()...)

	if _, err := svc.Create(context.Background(), fixed("Rent", 1000, core.FrequencyMonthly)); err != nil {
		t.Fatalf("create must not fail when publishing fails: %v", err)
	}
	got, _ := store.ListExpenses(context.Background())
	if len(got) != 1 {
		t.Fatalf("expected the expense to be stored, got %d", len(got))
	}
}
