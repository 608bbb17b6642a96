// Package budget computes budget utilization alerts from monthly limits and
// per-category expense totals.
package budget

import (
	"strings"

	"finanzas/internal/core"
)

// DefaultWarningThreshold is the utilization percentage at which a budget
// turns into a warning.
const DefaultWarningThreshold = 80.0

// MaxPercentage caps reported utilization.
const MaxPercentage = 999.0

// Totals holds expense totals per category, indexed by id and by
// lower-cased display label.
type Totals struct {
	byID    map[string]core.Money
	byLabel map[string]core.Money
}

func NewTotals() *Totals {
	return &Totals{
		byID:    make(map[string]core.Money),
		byLabel: make(map[string]core.Money),
	}
}

// Add accumulates an expense amount. An empty id only feeds the label index.
func (t *Totals) Add(categoryID, label string, amount core.Money) {
	if categoryID != "" {
		t.byID[categoryID] = t.byID[categoryID].Add(amount)
	}
	key := strings.ToLower(label)
	t.byLabel[key] = t.byLabel[key].Add(amount)
}

// Lookup returns the spent amount for a category: by id first, then by
// case-insensitive label, else zero.
func (t *Totals) Lookup(categoryID, label string) core.Money {
	if t == nil {
		return core.Money{}
	}
	if categoryID != "" {
		if m, ok := t.byID[categoryID]; ok {
			return m
		}
	}
	return t.byLabel[strings.ToLower(label)]
}

// Engine classifies budget utilization. The zero value uses
// DefaultWarningThreshold.
type Engine struct {
	WarningThreshold float64
}

func (e Engine) threshold() float64 {
	if e.WarningThreshold <= 0 {
		return DefaultWarningThreshold
	}
	return e.WarningThreshold
}

// ComputeAlerts returns one alert per budgeted category for the target month.
// The result depends only on the arguments.
func (e Engine) ComputeAlerts(budgets []core.Budget, totals *Totals, target core.MonthKey) []core.BudgetAlert {
	selected := Consolidate(ForMonth(budgets, target))
	if len(selected) == 0 {
		return nil
	}

	alerts := make([]core.BudgetAlert, 0, len(selected))
	for _, b := range selected {
		alerts = append(alerts, e.Alert(b, totals.Lookup(b.CategoryID, b.CategoryLabel)))
	}
	return alerts
}

// Alert builds the alert for a single budget and spent amount.
func (e Engine) Alert(b core.Budget, spent core.Money) core.BudgetAlert {
	pct := clamp(core.Percent(spent, b.Limit))
	return core.BudgetAlert{
		BudgetID:      b.ID,
		CategoryID:    b.CategoryID,
		CategoryLabel: b.CategoryLabel,
		Period:        b.Period,
		Limit:         b.Limit,
		Spent:         spent,
		Available:     b.Limit.Sub(spent),
		Percentage:    pct,
		Status:        e.Classify(pct),
	}
}

// Classify maps a utilization percentage onto a status.
func (e Engine) Classify(pct float64) core.Status {
	switch {
	case pct >= 100:
		return core.StatusExceeded
	case pct >= e.threshold():
		return core.StatusWarning
	default:
		return core.StatusOK
	}
}

// ForMonth keeps budgets scoped to target. When none match, undated budgets
// are returned instead; they never supplement a non-empty month.
func ForMonth(budgets []core.Budget, target core.MonthKey) []core.Budget {
	var scoped, undated []core.Budget
	for _, b := range budgets {
		switch {
		case b.Period.IsZero():
			undated = append(undated, b)
		case b.Period == target:
			scoped = append(scoped, b)
		}
	}
	if len(scoped) > 0 {
		return scoped
	}
	return undated
}

// Consolidate keeps one budget per category. The budget with the later
// period wins; on a tie the one seen later wins. Categories keep the order
// in which they first appear.
func Consolidate(budgets []core.Budget) []core.Budget {
	index := make(map[string]int, len(budgets))
	out := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		key := Key(b)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, b)
			continue
		}
		// undated sorts before every dated month
		if !b.Period.Before(out[i].Period) {
			out[i] = b
		}
	}
	return out
}

// Key identifies the category a budget applies to.
func Key(b core.Budget) string {
	if b.CategoryID != "" {
		return b.CategoryID
	}
	return strings.ToLower(b.CategoryLabel)
}

func clamp(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > MaxPercentage {
		return MaxPercentage
	}
	return pct
}
