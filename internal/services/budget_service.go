package services

import (
	"context"
	"fmt"
	"strings"

	"finanzas/internal/aggregate"
	"finanzas/internal/amqp"
	"finanzas/internal/cache"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/source"
)

type BudgetSummary struct {
	TotalBudget core.Money `json:"total_budget"`
	TotalSpent  core.Money `json:"total_spent"`
	Available   core.Money `json:"available"`
	InControl   int        `json:"in_control"`
	Warning     int        `json:"warning"`
	Exceeded    int        `json:"exceeded"`
}

type BudgetsView struct {
	Month   string             `json:"month"`
	Budgets []core.BudgetAlert `json:"budgets"`
	Summary BudgetSummary      `json:"summary"`
}

// BudgetInput is a budget write request as entered by the user.
type BudgetInput struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Month      string `json:"month"` // YYYY-MM
}

type BudgetService struct {
	reader source.Reader
	writer source.Writer
	feed   *ChangeFeed
	cfg    Config
	cache  *cache.LRUCache[BudgetsView]
	logs   *log.StructuredLogger
	logger *log.Logger
}

func NewBudgetService(reader source.Reader, writer source.Writer, feed *ChangeFeed, cfg Config, logger *log.Logger) *BudgetService {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBudget)
	return &BudgetService{
		reader: reader,
		writer: writer,
		feed:   feed,
		cfg:    cfg,
		cache:  newViewCache[BudgetsView](cfg),
		logs:   log.NewStructuredLogger(logger),
		logger: logger,
	}
}

// CurrentMonth is the month containing now in the configured location.
func (s *BudgetService) CurrentMonth() core.MonthKey {
	return core.MonthOf(s.cfg.now())
}

// ForMonth returns the utilization of every budget for month, spending
// measured over the whole month across all wallets.
func (s *BudgetService) ForMonth(ctx context.Context, month core.MonthKey) (BudgetsView, error) {
	return cached(ctx, s.cache, "budgets|"+month.String(), func(ctx context.Context) (BudgetsView, error) {
		return s.build(ctx, month)
	})
}

func (s *BudgetService) build(ctx context.Context, month core.MonthKey) (BudgetsView, error) {
	p := month.Period(s.cfg.location())
	filter := source.TransactionFilter{Kind: core.Expense}.ForPeriod(p)
	snap, err := load(ctx, s.reader, want{filter: &filter, categories: true, budgets: true})
	if err != nil {
		return BudgetsView{}, err
	}

	buckets := aggregate.Aggregate(snap.transactions, aggregate.ByCategory, aggregate.Options{
		Period:     p,
		Categories: snap.categories,
	})
	alerts := s.cfg.engine().ComputeAlerts(snap.budgets, aggregate.ExpenseTotals(buckets), month)

	view := BudgetsView{Month: month.String(), Budgets: nonNil(alerts)}
	for _, a := range alerts {
		view.Summary.TotalBudget = view.Summary.TotalBudget.Add(a.Limit)
		view.Summary.TotalSpent = view.Summary.TotalSpent.Add(a.Spent)
		switch a.Status {
		case core.StatusExceeded:
			view.Summary.Exceeded++
		case core.StatusWarning:
			view.Summary.Warning++
			view.Summary.InControl++
		default:
			view.Summary.InControl++
		}
	}
	view.Summary.Available = view.Summary.TotalBudget.Sub(view.Summary.TotalSpent)
	return view, nil
}

// Alerts returns the budgets of month that need attention.
func (s *BudgetService) Alerts(ctx context.Context, month core.MonthKey) ([]core.BudgetAlert, error) {
	view, err := s.ForMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	out := []core.BudgetAlert{}
	for _, a := range view.Budgets {
		if a.Status != core.StatusOK {
			out = append(out, a)
		}
	}
	return out, nil
}

// Report logs every alert of month and returns them.
func (s *BudgetService) Report(ctx context.Context, month core.MonthKey) ([]core.BudgetAlert, error) {
	view, err := s.build(ctx, month)
	if err != nil {
		return nil, err
	}
	for _, a := range view.Budgets {
		s.logs.LogBudgetAlert(ctx, a.BudgetID, a.CategoryLabel, view.Month, a.Percentage, string(a.Status))
	}
	return view.Budgets, nil
}

func (s *BudgetService) Upsert(ctx context.Context, in BudgetInput) (core.Budget, error) {
	if s.writer == nil {
		return core.Budget{}, source.ErrReadOnly
	}

	b, err := in.parse()
	if err != nil {
		return core.Budget{}, err
	}
	saved, err := s.writer.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	s.logger.InfoContext(ctx, "budget saved",
		log.FieldOperation, log.OpUpsert,
		log.FieldBudgetID, saved.ID,
		log.FieldCategoryID, saved.CategoryID,
		log.FieldMonth, saved.Period.String())
	s.feed.Publish(ctx, Change{
		Entity:    amqp.EntityBudget,
		Operation: log.OpUpsert,
		EntityID:  saved.ID,
		Months:    []core.MonthKey{saved.Period},
	})
	return saved, nil
}

func (in BudgetInput) parse() (core.Budget, error) {
	if strings.TrimSpace(in.CategoryID) == "" {
		return core.Budget{}, fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	limit, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: amount: %w", ErrInvalidInput, err)
	}
	month, err := core.ParseMonthKey(in.Month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: month: %w", ErrInvalidInput, err)
	}
	return core.Budget{CategoryID: strings.TrimSpace(in.CategoryID), Limit: limit, Period: month}, nil
}
