// Package aggregate groups normalized transactions into buckets by wallet,
// category or day within a period.
//
// Every function here is pure: inputs are never modified and nothing is
// cached between calls.
package aggregate

import (
	"sort"
	"strings"
	"time"

	"finanzas/internal/budget"
	"finanzas/internal/core"
)

// Dimension selects how transactions are grouped.
type Dimension int

const (
	ByWallet Dimension = iota
	ByCategory
	ByDay
)

func (d Dimension) String() string {
	switch d {
	case ByWallet:
		return "wallet"
	case ByCategory:
		return "category"
	case ByDay:
		return "day"
	}
	return "unknown"
}

// ChartWindowDays is the length of the daily series when the period is
// open on either side.
const ChartWindowDays = 30

// MaxDailyBuckets bounds the daily series. Longer periods keep their most
// recent MaxDailyBuckets days.
const MaxDailyBuckets = 366

type Options struct {
	Period core.Period
	// Now anchors the daily series when Period has an open bound.
	Now time.Time
	// Wallets and Categories supply display names and declared kinds.
	// Both are optional.
	Wallets    []core.Wallet
	Categories []core.Category
}

// Aggregate filters txs to opts.Period and groups them along dim.
func Aggregate(txs []core.Transaction, dim Dimension, opts Options) []core.Bucket {
	in := Filter(txs, opts.Period)
	switch dim {
	case ByWallet:
		return byWallet(in, opts)
	case ByCategory:
		return byCategory(in, opts)
	case ByDay:
		return byDay(in, opts)
	}
	return nil
}

// Filter returns the transactions inside p, bounds included.
func Filter(txs []core.Transaction, p core.Period) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if p.Contains(tx.OccurredAt) {
			out = append(out, tx)
		}
	}
	return out
}

// Summarize returns income, expense and net totals for the period.
func Summarize(txs []core.Transaction, p core.Period) core.Totals {
	var t core.Totals
	for _, tx := range txs {
		if !p.Contains(tx.OccurredAt) {
			continue
		}
		switch tx.Kind {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
		t.Count++
	}
	t.Net = t.Income.Sub(t.Expense)
	return t
}

// ExpenseTotals indexes the expense series of a ByCategory result for the
// budget engine.
func ExpenseTotals(buckets []core.Bucket) *budget.Totals {
	totals := budget.NewTotals()
	for _, b := range buckets {
		if b.Kind != core.Expense {
			continue
		}
		id := b.Key
		if strings.HasPrefix(id, labelKeyPrefix) {
			id = ""
		}
		totals.Add(id, b.Label, b.Total)
	}
	return totals
}

// InferKind resolves a category's effective kind. A declared kind wins;
// otherwise the kind with the larger observed total, defaulting to Expense.
func InferKind(declared core.Kind, income, expense core.Money) core.Kind {
	if declared.Valid() {
		return declared
	}
	if income.Cents > expense.Cents {
		return core.Income
	}
	return core.Expense
}

// accumulator sums the income and expense sides of a wallet or day bucket.
type accumulator struct {
	core.Bucket
}

func (b *accumulator) add(tx core.Transaction) {
	switch tx.Kind {
	case core.Income:
		b.Income = b.Income.Add(tx.Amount)
		b.PositiveCount++
	case core.Expense:
		b.Expense = b.Expense.Add(tx.Amount)
		b.NegativeCount++
	}
	b.Count++
}

func (b *accumulator) finish() core.Bucket {
	out := b.Bucket
	out.Total = out.Income.Add(out.Expense)
	out.Balance = out.Income.Sub(out.Expense)
	return out
}

func byWallet(txs []core.Transaction, opts Options) []core.Bucket {
	names := make(map[string]string, len(opts.Wallets))
	for _, w := range opts.Wallets {
		names[w.ID] = w.Name
	}

	index := map[string]*accumulator{}
	var order []*accumulator
	for _, tx := range txs {
		acc, ok := index[tx.WalletID]
		if !ok {
			acc = &accumulator{core.Bucket{Key: tx.WalletID, Label: walletLabel(tx, names)}}
			index[tx.WalletID] = acc
			order = append(order, acc)
		}
		acc.add(tx)
	}

	out := make([]core.Bucket, 0, len(order))
	for _, acc := range order {
		out = append(out, acc.finish())
	}
	setPercentages(out)
	sortByTotal(out)
	return out
}

func walletLabel(tx core.Transaction, names map[string]string) string {
	if tx.WalletID == "" {
		return core.NoWalletLabel
	}
	if name, ok := names[tx.WalletID]; ok {
		return core.Label(name, core.UnnamedLabel)
	}
	return core.Label(tx.WalletLabel, core.UnnamedLabel)
}

// labelKeyPrefix marks category keys derived from a label because the
// transaction had no category id.
const labelKeyPrefix = "label:"

type categoryStat struct {
	key, id, label string
	declared       core.Kind
	income         core.Bucket
	expense        core.Bucket
}

func byCategory(txs []core.Transaction, opts Options) []core.Bucket {
	known := make(map[string]core.Category, len(opts.Categories))
	for _, c := range opts.Categories {
		known[c.ID] = c
	}

	index := map[string]*categoryStat{}
	var order []*categoryStat
	for _, tx := range txs {
		key := CategoryKey(tx.CategoryID, tx.CategoryLabel)
		st, ok := index[key]
		if !ok {
			st = &categoryStat{key: key, id: tx.CategoryID, label: core.Label(tx.CategoryLabel, core.UncategorizedLabel), declared: tx.CategoryKind}
			if c, found := known[tx.CategoryID]; tx.CategoryID != "" && found {
				st.label = core.Label(c.Name, core.UncategorizedLabel)
				if c.Kind.Valid() {
					st.declared = c.Kind
				}
			}
			index[key] = st
			order = append(order, st)
		}
		if !st.declared.Valid() && tx.CategoryKind.Valid() {
			st.declared = tx.CategoryKind
		}
		series := &st.expense
		if tx.Kind == core.Income {
			series = &st.income
		}
		series.Total = series.Total.Add(tx.Amount)
		series.Count++
	}

	var expenses, incomes []core.Bucket
	for _, st := range order {
		kind := InferKind(st.declared, st.income.Total, st.expense.Total)
		if st.expense.Count > 0 {
			expenses = append(expenses, st.bucket(core.Expense, st.expense, kind))
		}
		if st.income.Count > 0 {
			incomes = append(incomes, st.bucket(core.Income, st.income, kind))
		}
	}
	setPercentages(expenses)
	setPercentages(incomes)
	sortByTotal(expenses)
	sortByTotal(incomes)
	return append(expenses, incomes...)
}

func (st *categoryStat) bucket(series core.Kind, acc core.Bucket, kind core.Kind) core.Bucket {
	return core.Bucket{
		Key:          st.key,
		Label:        st.label,
		Kind:         series,
		CategoryKind: kind,
		Total:        acc.Total,
		Count:        acc.Count,
	}
}

// CategoryKey groups transactions by category id, or by lower-cased label
// when the id is absent.
func CategoryKey(id, label string) string {
	if id != "" {
		return id
	}
	return labelKeyPrefix + strings.ToLower(core.Label(label, core.UncategorizedLabel))
}

// Series returns the buckets of one kind from a ByCategory result.
func Series(buckets []core.Bucket, kind core.Kind) []core.Bucket {
	var out []core.Bucket
	for _, b := range buckets {
		if b.Kind == kind {
			out = append(out, b)
		}
	}
	return out
}

func byDay(txs []core.Transaction, opts Options) []core.Bucket {
	start, end := DayRange(opts.Period, opts.Now)
	loc := start.Location()

	var out []core.Bucket
	index := map[string]int{}
	for d := start; !d.After(end); d = time.Date(d.Year(), d.Month(), d.Day()+1, 0, 0, 0, 0, loc) {
		key := d.Format(time.DateOnly)
		index[key] = len(out)
		out = append(out, core.Bucket{Key: key, Label: d.Format("02/01"), Date: d})
	}

	accs := make([]accumulator, len(out))
	for i := range out {
		accs[i] = accumulator{out[i]}
	}
	for _, tx := range txs {
		if tx.OccurredAt.Before(start) || tx.OccurredAt.After(end) {
			continue
		}
		if i, ok := index[tx.OccurredAt.In(loc).Format(time.DateOnly)]; ok {
			accs[i].add(tx)
		}
	}
	for i := range accs {
		out[i] = accs[i].finish()
	}
	setPercentages(out)
	return out
}

// DayRange returns the first and last day covered by the daily series.
// An open end becomes the end of today; an open start becomes the start of
// the day ChartWindowDays-1 days before the end. The range never spans more
// than MaxDailyBuckets days.
func DayRange(p core.Period, now time.Time) (time.Time, time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	end := core.EndOfDay(now)
	if p.End != nil {
		end = *p.End
	}
	start := core.StartOfDay(end.AddDate(0, 0, -(ChartWindowDays - 1)))
	if p.Start != nil {
		start = core.StartOfDay(*p.Start)
	}
	if earliest := core.StartOfDay(end.AddDate(0, 0, -(MaxDailyBuckets - 1))); start.Before(earliest) {
		start = earliest
	}
	return start, end.In(start.Location())
}

func setPercentages(buckets []core.Bucket) {
	var sum core.Money
	for _, b := range buckets {
		sum = sum.Add(b.Total)
	}
	for i := range buckets {
		buckets[i].Percentage = core.Percent(buckets[i].Total, sum)
	}
}

func sortByTotal(buckets []core.Bucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Total.Cents > buckets[j].Total.Cents
	})
}
