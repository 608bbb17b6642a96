// Package source defines the storage collaborator ports the services read
// from and write to, plus helpers shared by their implementations.
package source

import (
	"context"
	"errors"
	"time"

	"finanzas/internal/core"
)

var (
	// ErrReadOnly is returned by backends that cannot accept writes.
	ErrReadOnly    = errors.New("backend is read-only")
	ErrNotFound    = errors.New("not found")
	ErrWalletInUse = errors.New("wallet has transactions")
)

// TransactionFilter narrows a transaction read. Zero fields do not filter.
type TransactionFilter struct {
	WalletID   string // core.GlobalWalletID means every wallet
	CategoryID string
	Kind       core.Kind
	From       *time.Time
	To         *time.Time
	Limit      int
}

// ForPeriod returns a copy of f bounded to p.
func (f TransactionFilter) ForPeriod(p core.Period) TransactionFilter {
	f.From, f.To = p.Start, p.End
	return f
}

// AllWallets reports whether the filter spans every wallet.
func (f TransactionFilter) AllWallets() bool {
	return f.WalletID == "" || f.WalletID == core.GlobalWalletID
}

// Match reports whether tx satisfies the filter, ignoring Limit.
func (f TransactionFilter) Match(tx core.Transaction) bool {
	if !f.AllWallets() && tx.WalletID != f.WalletID {
		return false
	}
	if f.CategoryID != "" && tx.CategoryID != f.CategoryID {
		return false
	}
	if f.Kind.IsSet() && tx.Kind != f.Kind {
		return false
	}
	return core.Period{Start: f.From, End: f.To}.Contains(tx.OccurredAt)
}

// Apply filters txs, orders them newest first and applies Limit.
func (f TransactionFilter) Apply(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	core.SortByOccurredDesc(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Ports for outbound adapters.
type (
	TransactionReader interface {
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)
	}

	WalletReader interface {
		ListWallets(ctx context.Context) ([]core.Wallet, error)
	}

	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// BudgetReader returns every budget, dated and undated. Month scoping is
	// the budget engine's job.
	BudgetReader interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	Reader interface {
		TransactionReader
		WalletReader
		CategoryReader
		BudgetReader
	}

	// Writer persists user edits. Implementations assign ids when empty.
	Writer interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		CreateWallet(ctx context.Context, w core.Wallet) (core.Wallet, error)
		// DeleteWallet fails with ErrWalletInUse while transactions reference it.
		DeleteWallet(ctx context.Context, id string) error
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// UpsertBudget keeps one budget per category and month.
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
	}
)
