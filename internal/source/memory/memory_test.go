package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/rows"
	"finanzas/internal/source"
)

const seedJSON = `{
  "billeteras": [{"id": "w1", "nombre": "Cash"}, {"id": "w2", "nombre": ""}],
  "categorias": [{"id": "c1", "nombre": "Food", "tipo": "gasto"}],
  "transacciones": [
    {"id": "t1", "monto": "10.00", "tipo": "gasto", "fecha_transaccion": "2024-03-02", "billetera_id": "w1", "categoria_id": "c1"},
    {"id": "t2", "monto": 20, "tipo": "ingreso", "fecha_transaccion": "2024-03-05T09:00:00Z", "billetera_id": "w2"},
    {"id": "broken", "monto": "x", "tipo": "gasto", "fecha_transaccion": "2024-03-05"}
  ],
  "presupuestos": [{"id": "b1", "categoria_id": "c1", "monto": 100, "periodo": "2024-03-01"}]
}`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	if err := os.WriteFile(path, []byte(seedJSON), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestNewFromFile(t *testing.T) {
	s, err := NewFromFile(writeSeed(t), rows.Normalizer{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ctx := context.Background()

	txs, _ := s.ListTransactions(ctx, source.TransactionFilter{})
	if len(txs) != 2 {
		t.Fatalf("expected malformed row dropped, got %d transactions", len(txs))
	}
	if txs[0].ID != "t2" {
		t.Fatalf("expected newest first, got %s", txs[0].ID)
	}
	if txs[1].CategoryLabel != "Food" || txs[1].WalletLabel != "Cash" || txs[1].CategoryKind != core.Expense {
		t.Fatalf("labels not resolved: %+v", txs[1])
	}

	wallets, _ := s.ListWallets(ctx)
	if len(wallets) != 2 || wallets[1].Name != core.UnnamedLabel {
		t.Fatalf("unexpected wallets %+v", wallets)
	}

	budgets, _ := s.ListBudgets(ctx)
	if len(budgets) != 1 || budgets[0].CategoryLabel != "Food" {
		t.Fatalf("unexpected budgets %+v", budgets)
	}
}

func TestNewFromFile_Missing(t *testing.T) {
	s, err := NewFromFile(filepath.Join(t.TempDir(), "nope.json"), rows.Normalizer{})
	if err != nil || s == nil {
		t.Fatalf("missing seed should give empty store: %v", err)
	}
}

func TestListTransactions_Filter(t *testing.T) {
	s, _ := NewFromFile(writeSeed(t), rows.Normalizer{})
	from := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	got, _ := s.ListTransactions(context.Background(), source.TransactionFilter{From: &from})
	if len(got) != 1 || got[0].ID != "t2" {
		t.Fatalf("date filter failed: %+v", got)
	}
	got, _ = s.ListTransactions(context.Background(), source.TransactionFilter{WalletID: "w1"})
	if len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("wallet filter failed: %+v", got)
	}
	got, _ = s.ListTransactions(context.Background(), source.TransactionFilter{WalletID: core.GlobalWalletID, Kind: core.Income})
	if len(got) != 1 || got[0].ID != "t2" {
		t.Fatalf("kind filter failed: %+v", got)
	}
}

func TestDeleteWallet(t *testing.T) {
	s, _ := NewFromFile(writeSeed(t), rows.Normalizer{})
	ctx := context.Background()

	if err := s.DeleteWallet(ctx, "w1"); !errors.Is(err, source.ErrWalletInUse) {
		t.Fatalf("expected ErrWalletInUse, got %v", err)
	}
	if err := s.DeleteWallet(ctx, "missing"); !errors.Is(err, source.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	w, err := s.CreateWallet(ctx, core.Wallet{Name: " Savings "})
	if err != nil || w.ID == "" || w.Name != "Savings" {
		t.Fatalf("create wallet: %+v %v", w, err)
	}
	if err := s.DeleteWallet(ctx, w.ID); err != nil {
		t.Fatalf("delete unused wallet: %v", err)
	}
}

func TestUpsertBudget(t *testing.T) {
	s, _ := NewFromFile(writeSeed(t), rows.Normalizer{})
	ctx := context.Background()
	march := core.MonthKey{Year: 2024, Month: 3}

	b, err := s.UpsertBudget(ctx, core.Budget{CategoryID: "c1", Limit: core.Money{Cents: 25000}, Period: march})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if b.ID != "b1" || b.CategoryLabel != "Food" {
		t.Fatalf("expected existing budget replaced, got %+v", b)
	}
	budgets, _ := s.ListBudgets(ctx)
	if len(budgets) != 1 || budgets[0].Limit.Cents != 25000 {
		t.Fatalf("unexpected budgets %+v", budgets)
	}

	if _, err := s.UpsertBudget(ctx, core.Budget{CategoryID: "c1"}); err == nil {
		t.Fatalf("expected validation error")
	}
}
