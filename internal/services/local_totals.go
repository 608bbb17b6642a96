package services

import (
	"context"

	"github.com/shopspring/decimal"

	"finanzas/internal/core"
)

// LocalCurrency is the currency totals are converted into at the BCV rate.
const LocalCurrency = "VES"

// LocalTotals are a view's dollar totals expressed in bolivars.
type LocalTotals struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
	Income   decimal.Decimal `json:"income"`
	Expense  decimal.Decimal `json:"expense"`
	Net      decimal.Decimal `json:"net"`
}

// localTotals converts t at the current rate, or returns nil when no rate
// is available.
func localTotals(ctx context.Context, rp RateProvider, t core.Totals) *LocalTotals {
	if rp == nil {
		return nil
	}
	r := rp.Current(ctx)
	if r == nil {
		return nil
	}
	convert := func(m core.Money) decimal.Decimal {
		return r.Convert(decimal.New(m.Cents, -2))
	}
	return &LocalTotals{
		Currency: LocalCurrency,
		Rate:     r.Average,
		Income:   convert(t.Income),
		Expense:  convert(t.Expense),
		Net:      convert(t.Net),
	}
}
