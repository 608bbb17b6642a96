// Package worker recomputes budget alerts in the background, driven by
// change messages and by a periodic sweep of the current month.
package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
)

// AlertReporter is satisfied by *services.BudgetService.
type AlertReporter interface {
	Report(ctx context.Context, month core.MonthKey) ([]core.BudgetAlert, error)
	CurrentMonth() core.MonthKey
}

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

type Config struct {
	// SweepInterval of zero disables the periodic sweep.
	SweepInterval time.Duration
}

type AlertWorker struct {
	reporter AlertReporter
	config   Config
	logger   *log.Logger

	mu      sync.Mutex
	running bool
}

func NewAlertWorker(reporter AlertReporter, config Config, logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &AlertWorker{
		reporter: reporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange recomputes the alerts of every month named by msg, or of the
// current month when the message names none.
func (w *AlertWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	months, err := monthsOf(msg)
	if err != nil {
		// malformed months cannot succeed on redelivery
		w.logger.WarnContext(ctx, "ignoring change message months",
			log.FieldMessageID, msg.ID,
			log.FieldError, err.Error())
	}
	if len(months) == 0 {
		months = []core.MonthKey{w.reporter.CurrentMonth()}
	}

	w.logger.InfoContext(ctx, "processing change message",
		log.FieldOperation, log.OpConsume,
		log.FieldMessageID, msg.ID,
		"entity", msg.Entity,
		log.FieldCount, len(months))

	for _, m := range months {
		if _, err := w.reporter.Report(ctx, m); err != nil {
			return fmt.Errorf("report alerts for %s: %w", m, err)
		}
	}
	return nil
}

// Sweep recomputes the current month.
func (w *AlertWorker) Sweep(ctx context.Context) error {
	month := w.reporter.CurrentMonth()
	alerts, err := w.reporter.Report(ctx, month)
	if err != nil {
		return fmt.Errorf("sweep %s: %w", month, err)
	}
	attention := 0
	for _, a := range alerts {
		if a.Status != core.StatusOK {
			attention++
		}
	}
	w.logger.InfoContext(ctx, "budget sweep completed",
		log.FieldOperation, log.OpSweep,
		log.FieldMonth, month.String(),
		log.FieldCount, len(alerts),
		"attention", attention)
	return nil
}

// Run sweeps once, then consumes change messages from c (when non-nil) and
// sweeps on the configured interval until ctx is done.
func (w *AlertWorker) Run(ctx context.Context, c Consumer) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("alert worker is already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.Sweep(ctx); err != nil {
		w.logger.ErrorContext(ctx, "startup sweep failed", log.FieldError, err.Error())
	}

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	if c != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Consume(ctx, w.HandleChange); err != nil && ctx.Err() == nil {
				errCh <- err
			}
		}()
	}

	var tick <-chan time.Time
	if w.config.SweepInterval > 0 {
		ticker := time.NewTicker(w.config.SweepInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			w.logger.Info("alert worker stopped", log.FieldOperation, log.OpShutdown)
			return nil
		case err := <-errCh:
			wg.Wait()
			return fmt.Errorf("consume change messages: %w", err)
		case <-tick:
			if err := w.Sweep(ctx); err != nil {
				w.logger.ErrorContext(ctx, "periodic sweep failed", log.FieldError, err.Error())
			}
		}
	}
}

func monthsOf(msg *amqp.ChangeMessage) ([]core.MonthKey, error) {
	seen := map[core.MonthKey]bool{}
	var out []core.MonthKey
	var firstErr error
	for _, s := range msg.Months {
		m, err := core.ParseMonthKey(s)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, firstErr
}
