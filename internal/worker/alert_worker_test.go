package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
)

type fakeReporter struct {
	mu      sync.Mutex
	months  []core.MonthKey
	current core.MonthKey
	err     error
}

func (f *fakeReporter) Report(_ context.Context, m core.MonthKey) ([]core.BudgetAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.months = append(f.months, m)
	if f.err != nil {
		return nil, f.err
	}
	return []core.BudgetAlert{{BudgetID: "b1", Status: core.StatusWarning}}, nil
}

func (f *fakeReporter) CurrentMonth() core.MonthKey { return f.current }

func (f *fakeReporter) reported() []core.MonthKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.MonthKey(nil), f.months...)
}

func TestHandleChange(t *testing.T) {
	march := core.MonthKey{Year: 2024, Month: 3}
	tests := []struct {
		name   string
		months []string
		want   []core.MonthKey
	}{
		{"named months deduplicated and ordered", []string{"2024-03", "2024-02", "2024-03"}, []core.MonthKey{{Year: 2024, Month: 2}, march}},
		{"no months uses current", nil, []core.MonthKey{march}},
		{"malformed months skipped", []string{"bad"}, []core.MonthKey{march}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeReporter{current: march}
			w := NewAlertWorker(r, Config{}, nil)
			msg := amqp.NewChangeMessage(amqp.EntityTransaction, "create", "t1", tt.months...)

			if err := w.HandleChange(context.Background(), msg); err != nil {
				t.Fatalf("handle: %v", err)
			}
			got := r.reported()
			if len(got) != len(tt.want) {
				t.Fatalf("reported %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("reported %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestHandleChange_Error(t *testing.T) {
	r := &fakeReporter{current: core.MonthKey{Year: 2024, Month: 3}, err: errors.New("db down")}
	w := NewAlertWorker(r, Config{}, nil)
	if err := w.HandleChange(context.Background(), amqp.NewChangeMessage(amqp.EntityBudget, "upsert", "b1")); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

type fakeConsumer struct {
	msgs []*amqp.ChangeMessage
}

func (c *fakeConsumer) Consume(ctx context.Context, handler amqp.Handler) error {
	for _, m := range c.msgs {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRun(t *testing.T) {
	r := &fakeReporter{current: core.MonthKey{Year: 2024, Month: 3}}
	w := NewAlertWorker(r, Config{SweepInterval: time.Hour}, nil)
	c := &fakeConsumer{msgs: []*amqp.ChangeMessage{amqp.NewChangeMessage(amqp.EntityTransaction, "create", "t1", "2024-01")}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, c) }()

	deadline := time.After(2 * time.Second)
	for len(r.reported()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected startup sweep and message, got %v", r.reported())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}
