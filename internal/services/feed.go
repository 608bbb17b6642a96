package services

import (
	"context"
	"sort"
	"sync"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/log"
)

// Change describes one successful write.
type Change struct {
	Entity    string // amqp.Entity*
	Operation string // log.Op*
	EntityID  string
	WalletID  string
	Months    []core.MonthKey
}

// ChangeFeed fans write notifications out to subscribers. Subscribers run
// synchronously in subscription order on the writer's goroutine.
type ChangeFeed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(context.Context, Change)
	logger *log.Logger
}

func NewChangeFeed(logger *log.Logger) *ChangeFeed {
	if logger == nil {
		logger = log.Discard()
	}
	return &ChangeFeed{
		subs:   make(map[int]func(context.Context, Change)),
		logger: logger,
	}
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is a no-op.
func (f *ChangeFeed) Subscribe(fn func(context.Context, Change)) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *ChangeFeed) Publish(ctx context.Context, ch Change) {
	f.mu.RLock()
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(context.Context, Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.subs[id])
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(ctx, ch)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *ChangeFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// ChangePublisher is satisfied by *amqp.Client.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// BridgeToAMQP forwards every change to pub. Publish failures are logged
// and never fail the write that caused them.
func BridgeToAMQP(feed *ChangeFeed, pub ChangePublisher, logger *log.Logger) (unsubscribe func()) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentAMQP)
	return feed.Subscribe(func(ctx context.Context, ch Change) {
		months := make([]string, 0, len(ch.Months))
		for _, m := range ch.Months {
			months = append(months, m.String())
		}
		msg := amqp.NewChangeMessage(ch.Entity, ch.Operation, ch.EntityID, months...)
		msg.WalletID = ch.WalletID
		if err := pub.PublishChange(context.WithoutCancel(ctx), msg); err != nil {
			logger.WarnContext(ctx, "change message not published",
				log.FieldOperation, log.OpPublish,
				log.FieldMessageID, msg.ID,
				log.FieldError, err.Error())
		}
	})
}
