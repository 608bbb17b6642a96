package services

import (
	"context"
	"sort"

	"finanzas/internal/aggregate"
	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/source"
)

type WalletsView struct {
	Period  PeriodView    `json:"period"`
	Wallets []core.Bucket `json:"wallets"`
	Totals  core.Totals   `json:"totals"`
	Balance core.Money    `json:"balance"`
	// Local is null when the exchange rate is unavailable.
	Local   *LocalTotals  `json:"local"`
}

type WalletService struct {
	reader source.Reader
	cfg    Config
	rates  RateProvider
	logger *log.Logger
}

func NewWalletService(reader source.Reader, cfg Config, rates RateProvider, logger *log.Logger) *WalletService {
	if logger == nil {
		logger = log.Discard()
	}
	return &WalletService{reader: reader, cfg: cfg, rates: rates, logger: logger.WithComponent(log.ComponentSource)}
}

// List returns every wallet with its balance for the period, highest
// balance first. Wallets without transactions are listed with zeros.
func (s *WalletService) List(ctx context.Context, q PeriodQuery) (WalletsView, error) {
	p := core.ResolvePeriod(q.Selector, s.cfg.now(), q.Start, q.End)
	filter := source.TransactionFilter{}.ForPeriod(p)
	snap, err := load(ctx, s.reader, want{filter: &filter, wallets: true})
	if err != nil {
		return WalletsView{}, err
	}

	buckets := aggregate.Aggregate(snap.transactions, aggregate.ByWallet, aggregate.Options{
		Period:  p,
		Wallets: snap.wallets,
	})
	seen := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		seen[b.Key] = true
	}
	for _, w := range snap.wallets {
		if !seen[w.ID] {
			buckets = append(buckets, core.Bucket{Key: w.ID, Label: core.Label(w.Name, core.UnnamedLabel)})
		}
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Balance.Cents > buckets[j].Balance.Cents
	})

	totals := aggregate.Summarize(snap.transactions, p)
	return WalletsView{
		Period:  PeriodView{Selector: q.Selector, Start: p.Start, End: p.End},
		Wallets: nonNil(buckets),
		Totals:  totals,
		Balance: totals.Net,
		Local:   localTotals(ctx, s.rates, totals),
	}, nil
}
