package services

import (
	"context"

	"finanzas/internal/aggregate"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/source"
)

type CategoriesView struct {
	Period        PeriodView    `json:"period"`
	Expense       []core.Bucket `json:"expense"`
	Income        []core.Bucket `json:"income"`
	Totals        core.Totals   `json:"totals"`
	CategoryCount int           `json:"category_count"`
	Local         *LocalTotals  `json:"local"`
}

type CategoryService struct {
	reader source.Reader
	cfg    Config
	rates  RateProvider
	logger *log.Logger
}

func NewCategoryService(reader source.Reader, cfg Config, rates RateProvider, logger *log.Logger) *CategoryService {
	if logger == nil {
		logger = log.Discard()
	}
	return &CategoryService{reader: reader, cfg: cfg, rates: rates, logger: logger.WithComponent(log.ComponentSource)}
}

// List splits the period's activity into the expense and income series.
// Known categories without activity are appended with zero totals to the
// series of their declared kind, expense when undeclared.
func (s *CategoryService) List(ctx context.Context, q PeriodQuery) (CategoriesView, error) {
	p := core.ResolvePeriod(q.Selector, s.cfg.now(), q.Start, q.End)
	filter := source.TransactionFilter{WalletID: q.WalletID}.ForPeriod(p)
	snap, err := load(ctx, s.reader, want{filter: &filter, categories: true})
	if err != nil {
		return CategoriesView{}, err
	}

	buckets := aggregate.Aggregate(snap.transactions, aggregate.ByCategory, aggregate.Options{
		Period:     p,
		Categories: snap.categories,
	})
	expense := aggregate.Series(buckets, core.Expense)
	income := aggregate.Series(buckets, core.Income)

	seen := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		seen[b.Key] = true
	}
	for _, c := range snap.categories {
		if seen[c.ID] {
			continue
		}
		kind := aggregate.InferKind(c.Kind, core.Money{}, core.Money{})
		b := core.Bucket{
			Key:          c.ID,
			Label:        core.Label(c.Name, core.UncategorizedLabel),
			Kind:         kind,
			CategoryKind: kind,
		}
		if kind == core.Income {
			income = append(income, b)
		} else {
			expense = append(expense, b)
		}
	}

	totals := aggregate.Summarize(snap.transactions, p)
	return CategoriesView{
		Period:        PeriodView{Selector: q.Selector, Start: p.Start, End: p.End},
		Expense:       nonNil(expense),
		Income:        nonNil(income),
		Totals:        totals,
		CategoryCount: len(snap.categories),
		Local:         localTotals(ctx, s.rates, totals),
	}, nil
}
