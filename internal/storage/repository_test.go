package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/source"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "finanzas.db"), time.UTC, nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_TransactionsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	w, err := repo.CreateWallet(ctx, core.Wallet{Name: "  Cash "})
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if w.ID == "" || w.Name != "Cash" {
		t.Fatalf("unexpected wallet %+v", w)
	}
	c, err := repo.CreateCategory(ctx, core.Category{Name: "Food", Kind: core.Expense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	march := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	saved, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 1250}, Kind: core.Expense, OccurredAt: march,
		Description: "lunch", WalletID: w.ID, CategoryID: c.ID,
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if saved.CategoryLabel != "Food" || saved.WalletLabel != "Cash" || saved.CategoryKind != core.Expense {
		t.Fatalf("joined labels missing: %+v", saved)
	}
	if !saved.OccurredAt.Equal(march) || saved.Amount.Cents != 1250 {
		t.Fatalf("round trip mismatch: %+v", saved)
	}

	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 5000}, Kind: core.Income, OccurredAt: march.AddDate(0, 0, 5),
	}); err != nil {
		t.Fatalf("create income: %v", err)
	}

	all, err := repo.ListTransactions(ctx, source.TransactionFilter{WalletID: core.GlobalWalletID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Kind != core.Income {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if all[0].CategoryLabel != core.UncategorizedLabel || all[0].WalletID != "" {
		t.Fatalf("expected uncategorized without wallet: %+v", all[0])
	}

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		filter source.TransactionFilter
		want   int
	}{
		{"by wallet", source.TransactionFilter{WalletID: w.ID}, 1},
		{"by category", source.TransactionFilter{CategoryID: c.ID}, 1},
		{"by kind", source.TransactionFilter{Kind: core.Income}, 1},
		{"by range", source.TransactionFilter{From: &from, To: &to}, 1},
		{"limit", source.TransactionFilter{Limit: 1}, 1},
		{"unknown wallet", source.TransactionFilter{WalletID: "missing"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.filter)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, len(got))
			}
		})
	}
}

func TestSQLiteRepository_CreateTransactionUnknownWallet(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.CreateTransaction(context.Background(), core.Transaction{
		Amount: core.Money{Cents: 100}, Kind: core.Expense,
		OccurredAt: time.Now(), WalletID: "ghost",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepository_DeleteWallet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	used, _ := repo.CreateWallet(ctx, core.Wallet{Name: "Bank"})
	free, _ := repo.CreateWallet(ctx, core.Wallet{Name: "Spare"})
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		Amount: core.Money{Cents: 100}, Kind: core.Expense, OccurredAt: time.Now(), WalletID: used.ID,
	}); err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	if err := repo.DeleteWallet(ctx, used.ID); !errors.Is(err, ErrWalletInUse) {
		t.Fatalf("expected ErrWalletInUse, got %v", err)
	}
	if err := repo.DeleteWallet(ctx, free.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteWallet(ctx, free.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	wallets, _ := repo.ListWallets(ctx)
	if len(wallets) != 1 || wallets[0].ID != used.ID {
		t.Fatalf("unexpected wallets %+v", wallets)
	}
}

func TestSQLiteRepository_UpsertBudget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	c, _ := repo.CreateCategory(ctx, core.Category{Name: "Rent"})
	march := core.MonthKey{Year: 2024, Month: 3}

	first, err := repo.UpsertBudget(ctx, core.Budget{CategoryID: c.ID, Limit: core.Money{Cents: 10000}, Period: march})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := repo.UpsertBudget(ctx, core.Budget{CategoryID: c.ID, Limit: core.Money{Cents: 12000}, Period: march})
	if err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same budget id, got %s and %s", first.ID, second.ID)
	}
	if second.CategoryLabel != "Rent" {
		t.Fatalf("expected resolved label, got %q", second.CategoryLabel)
	}

	budgets, err := repo.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("list budgets: %v", err)
	}
	if len(budgets) != 1 || budgets[0].Limit.Cents != 12000 || budgets[0].Period != march {
		t.Fatalf("unexpected budgets %+v", budgets)
	}

	_, err = repo.UpsertBudget(ctx, core.Budget{CategoryID: "ghost", Limit: core.Money{Cents: 1}, Period: march})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown category, got %v", err)
	}
}

func TestSQLiteRepository_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finanzas.db")
	repo, err := NewSQLiteRepository(path, time.UTC, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := repo.CreateWallet(context.Background(), core.Wallet{Name: "Cash"}); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	repo.Close()

	again, err := NewSQLiteRepository(path, time.UTC, nil)
	if err != nil {
		t.Fatalf("reopen should skip applied migrations: %v", err)
	}
	defer again.Close()
	if err := again.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	wallets, _ := again.ListWallets(context.Background())
	if len(wallets) != 1 {
		t.Fatalf("expected persisted wallet, got %+v", wallets)
	}
}
