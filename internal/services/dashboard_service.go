package services

import (
	"context"
	"strings"
	"time"

	"finanzas/internal/aggregate"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/rates"
	"finanzas/internal/source"
)

// RateProvider is satisfied by *rates.Client.
type RateProvider interface {
	Current(ctx context.Context) *rates.Rate
}

// PeriodQuery is the period filter shared by the period-scoped views.
type PeriodQuery struct {
	Selector core.Selector
	Start    *time.Time // Custom only
	End      *time.Time // Custom only
	WalletID string     // "" or core.GlobalWalletID for every wallet
}

func (q PeriodQuery) key(p core.Period) string {
	wallet := q.WalletID
	if wallet == "" {
		wallet = core.GlobalWalletID
	}
	return strings.Join([]string{string(q.Selector), p.Key(), wallet}, "|")
}

// PeriodView echoes the resolved period back to clients.
type PeriodView struct {
	Selector core.Selector `json:"selector"`
	Start    *time.Time    `json:"start"`
	End      *time.Time    `json:"end"`
}

type Dashboard struct {
	Period            PeriodView         `json:"period"`
	Summary           core.Totals        `json:"summary"`
	TopCategory       *core.Bucket       `json:"top_category"`
	ExpenseByCategory []core.Bucket      `json:"expense_by_category"`
	Daily             []core.Bucket      `json:"daily"`
	Month             string             `json:"month"`
	Alerts            []core.BudgetAlert `json:"alerts"`
	Rate              *rates.Rate        `json:"rate"`
}

type DashboardService struct {
	reader source.Reader
	cfg    Config
	rates  RateProvider
	cache  *cache.LRUCache[Dashboard]
	logger *log.Logger
}

func NewDashboardService(reader source.Reader, cfg Config, rates RateProvider, logger *log.Logger) *DashboardService {
	if logger == nil {
		logger = log.Discard()
	}
	return &DashboardService{
		reader: reader,
		cfg:    cfg,
		rates:  rates,
		cache:  newViewCache[Dashboard](cfg),
		logger: logger.WithComponent(log.ComponentDashboard),
	}
}

// Get builds the dashboard for the query. The exchange rate is looked up
// on every call and never cached with the view.
func (s *DashboardService) Get(ctx context.Context, q PeriodQuery) (Dashboard, error) {
	now := s.cfg.now()
	p := core.ResolvePeriod(q.Selector, now, q.Start, q.End)

	d, err := cached(ctx, s.cache, q.key(p), func(ctx context.Context) (Dashboard, error) {
		return s.build(ctx, q, p, now)
	})
	if err != nil {
		return Dashboard{}, err
	}
	if s.rates != nil {
		d.Rate = s.rates.Current(ctx)
	}
	return d, nil
}

func (s *DashboardService) build(ctx context.Context, q PeriodQuery, p core.Period, now time.Time) (Dashboard, error) {
	filter := source.TransactionFilter{WalletID: q.WalletID}.ForPeriod(p)
	snap, err := load(ctx, s.reader, want{filter: &filter, categories: true, budgets: true})
	if err != nil {
		return Dashboard{}, err
	}

	opts := aggregate.Options{Period: p, Now: now, Categories: snap.categories}
	byCategory := aggregate.Aggregate(snap.transactions, aggregate.ByCategory, opts)
	expenses := aggregate.Series(byCategory, core.Expense)

	month := core.ReferenceMonth(p, now)
	alerts := s.cfg.engine().ComputeAlerts(snap.budgets, aggregate.ExpenseTotals(byCategory), month)

	d := Dashboard{
		Period:            PeriodView{Selector: q.Selector, Start: p.Start, End: p.End},
		Summary:           aggregate.Summarize(snap.transactions, p),
		ExpenseByCategory: nonNil(expenses),
		Daily:             aggregate.Aggregate(snap.transactions, aggregate.ByDay, opts),
		Month:             month.String(),
		Alerts:            nonNil(alerts),
	}
	if len(expenses) > 0 {
		top := expenses[0]
		d.TopCategory = &top
	}

	s.logger.DebugContext(ctx, "dashboard computed",
		log.FieldOperation, log.OpAggregate,
		log.FieldPeriod, p.String(),
		log.FieldWalletID, q.WalletID,
		log.FieldCount, d.Summary.Count)
	return d, nil
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
