package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	goption "google.golang.org/api/option"

	"finanzas/internal/core"
	"finanzas/internal/rows"
	"finanzas/internal/source"
)

func TestParseTable(t *testing.T) {
	values := [][]any{
		{"ID", " Monto ", "tipo"},
		{"t1", 12.5, "gasto"},
		{"", "", ""},
		{"t2"},
	}
	got := parseTable(values)
	if len(got) != 2 {
		t.Fatalf("expected blank row skipped, got %d rows", len(got))
	}
	if got[0]["id"] != "t1" || got[0]["monto"] != 12.5 {
		t.Fatalf("unexpected first row %v", got[0])
	}
	if _, ok := got[1]["monto"]; ok {
		t.Fatalf("short row should leave monto unset")
	}
	if parseTable(nil) != nil {
		t.Fatalf("empty values should give nil table")
	}
}

func TestTransactionRowsJoin(t *testing.T) {
	txs := parseTable([][]any{
		{"id", "monto", "tipo", "fecha_transaccion", "categoria_id", "billetera_id"},
		{"t1", "12.50", "gasto", "2024-03-15", "c1", float64(7)},
		{"t2", 3.0, "ingreso", "2024-03-16", "missing", ""},
	})
	cats := parseTable([][]any{{"id", "nombre", "tipo"}, {"c1", "Comida", "gasto"}})
	wallets := parseTable([][]any{{"id", "nombre"}, {float64(7), "Cash"}})

	in := transactionRows(txs, cats, wallets)
	got := rows.NormalizeTransactions(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if got[0].CategoryLabel != "Comida" || got[0].WalletID != "7" || got[0].WalletLabel != "Cash" || got[0].Amount.Cents != 1250 {
		t.Fatalf("join failed: %+v", got[0])
	}
	if got[1].CategoryID != "missing" || got[1].CategoryLabel != core.UncategorizedLabel || got[1].WalletID != "" {
		t.Fatalf("dangling references should stay uncategorized: %+v", got[1])
	}
}

func TestBudgetRowsJoin(t *testing.T) {
	budgets := parseTable([][]any{{"id", "categoria_id", "monto", "periodo"}, {"b1", "c1", 100.0, "2024-03-01"}})
	cats := parseTable([][]any{{"id", "nombre"}, {"c1", "Food"}})

	got := rows.NormalizeBudgets(budgetRows(budgets, cats))
	if len(got) != 1 || got[0].CategoryLabel != "Food" || got[0].Limit.Cents != 10000 {
		t.Fatalf("unexpected budgets %+v", got)
	}
}

func TestNew_MissingSpreadsheet(t *testing.T) {
	if _, err := New(context.Background(), Config{}, nil); err == nil {
		t.Fatalf("expected error for missing spreadsheet id")
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := New(context.Background(), Config{SpreadsheetID: "sheet"}, nil); err == nil {
		t.Fatalf("expected error for missing credentials")
	}
}

func TestClient_ListTransactionsOverAPI(t *testing.T) {
	tabs := map[string][][]any{
		"transacciones": {
			{"id", "monto", "tipo", "fecha_transaccion", "categoria_id", "billetera_id"},
			{"t1", 10, "gasto", "2024-03-01", "c1", "w1"},
			{"t2", 20, "ingreso", "2024-03-02", "", "w2"},
			{"bad", "x", "gasto", "2024-03-02", "", ""},
		},
		"categorias": {{"id", "nombre", "tipo"}, {"c1", "Food", "gasto"}},
		"billeteras": {{"id", "nombre"}, {"w1", "Cash"}, {"w2", "Bank"}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		type valueRange struct {
			Range  string  `json:"range"`
			Values [][]any `json:"values"`
		}
		var resp struct {
			SpreadsheetID string       `json:"spreadsheetId"`
			ValueRanges   []valueRange `json:"valueRanges"`
		}
		resp.SpreadsheetID = "sheet"
		for _, name := range r.URL.Query()["ranges"] {
			resp.ValueRanges = append(resp.ValueRanges, valueRange{Range: name, Values: tabs[name]})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet"}, nil,
		goption.WithEndpoint(srv.URL+"/"), goption.WithoutAuthentication(), goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	txs, err := c.ListTransactions(context.Background(), source.TransactionFilter{WalletID: "w1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "t1" || txs[0].CategoryLabel != "Food" || txs[0].WalletLabel != "Cash" {
		t.Fatalf("unexpected transactions %+v", txs)
	}

	wallets, err := c.ListWallets(context.Background())
	if err != nil || len(wallets) != 2 {
		t.Fatalf("unexpected wallets %+v err=%v", wallets, err)
	}
}
