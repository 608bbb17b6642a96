package rows

import (
	"strings"
	"time"

	"finanzas/internal/core"
)

// Normalizer converts rows into domain records. Location is used for
// timestamps stored without a zone; nil means UTC.
type Normalizer struct {
	Location *time.Location
}

// NormalizeTransactions normalizes with zone-less timestamps read as UTC.
func NormalizeTransactions(in []TransactionRow) []core.Transaction {
	return Normalizer{}.Transactions(in)
}

func NormalizeWallets(in []WalletRow) []core.Wallet {
	return Normalizer{}.Wallets(in)
}

func NormalizeCategories(in []CategoryRow) []core.Category {
	return Normalizer{}.Categories(in)
}

func NormalizeBudgets(in []BudgetRow) []core.Budget {
	return Normalizer{}.Budgets(in)
}

// Transactions keeps rows with a coercible amount, a known kind and a
// parsable date. Order follows the input but callers must not rely on it.
func (n Normalizer) Transactions(in []TransactionRow) []core.Transaction {
	out := make([]core.Transaction, 0, len(in))
	for _, row := range in {
		if tx, ok := n.transaction(row); ok {
			out = append(out, tx)
		}
	}
	return out
}

func (n Normalizer) transaction(row TransactionRow) (core.Transaction, bool) {
	amount, err := core.CoerceAmount(row.Monto.Raw())
	if err != nil {
		return core.Transaction{}, false
	}
	kind, ok := core.ParseKind(deref(row.Tipo))
	if !ok {
		return core.Transaction{}, false
	}
	if row.FechaTransaccion == nil {
		return core.Transaction{}, false
	}
	occurred, err := ParseTime(*row.FechaTransaccion, n.Location)
	if err != nil {
		return core.Transaction{}, false
	}

	tx := core.Transaction{
		ID:            row.ID,
		Amount:        amount,
		Kind:          kind,
		OccurredAt:    occurred,
		Description:   strings.TrimSpace(deref(row.Descripcion)),
		CategoryID:    deref(row.CategoriaID),
		CategoryLabel: core.UncategorizedLabel,
		WalletID:      deref(row.BilleteraID),
	}
	if cat, ok := row.Categorias.Get(); ok {
		if cat.ID != nil {
			tx.CategoryID = *cat.ID
		}
		tx.CategoryLabel = core.Label(deref(cat.Nombre), core.UncategorizedLabel)
		tx.CategoryKind, _ = core.ParseKind(deref(cat.Tipo))
	}
	if w, ok := row.Billeteras.Get(); ok {
		if w.ID != nil {
			tx.WalletID = *w.ID
		}
		tx.WalletLabel = core.Label(deref(w.Nombre), core.UnnamedLabel)
	}
	return tx, true
}

func (n Normalizer) Wallets(in []WalletRow) []core.Wallet {
	out := make([]core.Wallet, 0, len(in))
	for _, row := range in {
		if strings.TrimSpace(row.ID) == "" {
			continue
		}
		out = append(out, core.Wallet{
			ID:   row.ID,
			Name: core.Label(deref(row.Nombre), core.UnnamedLabel),
		})
	}
	return out
}

// Categories keeps unknown tipo values as an unset kind.
func (n Normalizer) Categories(in []CategoryRow) []core.Category {
	out := make([]core.Category, 0, len(in))
	for _, row := range in {
		if strings.TrimSpace(row.ID) == "" {
			continue
		}
		kind, _ := core.ParseKind(deref(row.Tipo))
		out = append(out, core.Category{
			ID:   row.ID,
			Name: core.Label(deref(row.Nombre), core.UncategorizedLabel),
			Kind: kind,
		})
	}
	return out
}

// Budgets drops rows with a non-numeric limit. An unparsable periodo makes
// the budget undated rather than dropping it.
func (n Normalizer) Budgets(in []BudgetRow) []core.Budget {
	out := make([]core.Budget, 0, len(in))
	for _, row := range in {
		limit, err := core.CoerceAmount(row.Monto.Raw())
		if err != nil {
			continue
		}
		b := core.Budget{
			ID:            row.ID,
			CategoryID:    deref(row.CategoriaID),
			CategoryLabel: core.UncategorizedLabel,
			Limit:         limit,
		}
		if cat, ok := row.Categorias.Get(); ok {
			if cat.ID != nil {
				b.CategoryID = *cat.ID
			}
			b.CategoryLabel = core.Label(deref(cat.Nombre), core.UncategorizedLabel)
		}
		if row.Periodo != nil {
			if month, err := core.ParseMonthKey(*row.Periodo); err == nil {
				b.Period = month
			}
		}
		out = append(out, b)
	}
	return out
}
