// Package services composes the storage ports, the aggregation engine and
// the budget engine into the views served over HTTP and the alert worker.
package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/budget"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/source"
)

// ErrInvalidInput wraps every validation failure of a write request.
var ErrInvalidInput = errors.New("invalid input")

type Config struct {
	// Location is the user's time zone; periods and months resolve in it.
	Location         *time.Location
	WarningThreshold float64
	CacheSize        int
	// CacheTTL of zero disables view caching.
	CacheTTL time.Duration
	Now      func() time.Time
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Config) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().In(c.location())
}

func (c Config) engine() budget.Engine {
	return budget.Engine{WarningThreshold: c.WarningThreshold}
}

// Services bundles every view and the change feed they invalidate on.
type Services struct {
	Feed         *ChangeFeed
	Dashboard    *DashboardService
	Wallets      *WalletService
	Categories   *CategoryService
	Budgets      *BudgetService
	Transactions *TransactionService

	cleaners []cache.Cleaner
}

// New wires the services over reader. writer may be nil for read-only
// backends; writes then fail with source.ErrReadOnly.
func New(reader source.Reader, writer source.Writer, cfg Config, rates RateProvider, logger *log.Logger) *Services {
	if logger == nil {
		logger = log.Discard()
	}
	feed := NewChangeFeed(logger)

	s := &Services{
		Feed:         feed,
		Dashboard:    NewDashboardService(reader, cfg, rates, logger),
		Wallets:      NewWalletService(reader, cfg, rates, logger),
		Categories:   NewCategoryService(reader, cfg, rates, logger),
		Budgets:      NewBudgetService(reader, writer, feed, cfg, logger),
		Transactions: NewTransactionService(reader, writer, feed, cfg, logger),
	}

	if s.Dashboard.cache != nil {
		s.cleaners = append(s.cleaners, s.Dashboard.cache)
	}
	if s.Budgets.cache != nil {
		s.cleaners = append(s.cleaners, s.Budgets.cache)
	}
	feed.Subscribe(func(context.Context, Change) {
		s.Invalidate()
	})
	return s
}

// Cleaners returns the view caches for periodic expiry sweeps.
func (s *Services) Cleaners() []cache.Cleaner {
	return s.cleaners
}

// Invalidate drops every cached view.
func (s *Services) Invalidate() {
	if s.Dashboard.cache != nil {
		s.Dashboard.cache.Clear()
	}
	if s.Budgets.cache != nil {
		s.Budgets.cache.Clear()
	}
}

func newViewCache[T any](cfg Config) *cache.LRUCache[T] {
	if cfg.CacheTTL <= 0 {
		return nil
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 100
	}
	return cache.NewLRUCache[T](size, cfg.CacheTTL)
}

// cached serves key from c or computes it. A result computed after ctx was
// cancelled, or after the cache was invalidated mid-build, is returned but
// not cached.
func cached[T any](ctx context.Context, c *cache.LRUCache[T], key string, load func(context.Context) (T, error)) (T, error) {
	var gen uint64
	if c != nil {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		gen = c.Generation()
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	if c != nil {
		c.SetIfGeneration(key, v, gen)
	}
	return v, nil
}

// snapshot is the raw material of one view.
type snapshot struct {
	transactions []core.Transaction
	wallets      []core.Wallet
	categories   []core.Category
	budgets      []core.Budget
}

type want struct {
	filter     *source.TransactionFilter
	wallets    bool
	categories bool
	budgets    bool
}

// load fetches the requested collections concurrently.
func load(ctx context.Context, r source.Reader, w want) (snapshot, error) {
	var snap snapshot
	g, ctx := errgroup.WithContext(ctx)

	if w.filter != nil {
		f := *w.filter
		g.Go(func() error {
			txs, err := r.ListTransactions(ctx, f)
			snap.transactions = txs
			return wrap("list transactions", err)
		})
	}
	if w.wallets {
		g.Go(func() error {
			ws, err := r.ListWallets(ctx)
			snap.wallets = ws
			return wrap("list wallets", err)
		})
	}
	if w.categories {
		g.Go(func() error {
			cs, err := r.ListCategories(ctx)
			snap.categories = cs
			return wrap("list categories", err)
		})
	}
	if w.budgets {
		g.Go(func() error {
			bs, err := r.ListBudgets(ctx)
			snap.budgets = bs
			return wrap("list budgets", err)
		})
	}

	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Op: op, Err: err}
}

// FetchError marks a failure of the storage collaborator, as opposed to a
// bad request.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }
