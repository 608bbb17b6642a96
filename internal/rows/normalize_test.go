package rows

import (
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestNormalizeTransactions_ArrayRelationAndStringAmount(t *testing.T) {
	data := []byte(`[{
		"id": "t1",
		"monto": "12.50",
		"tipo": "gasto",
		"fecha_transaccion": "2024-03-15T10:00:00+00:00",
		"categorias": [{"id": "c1", "nombre": "Comida"}]
	}]`)

	in, skipped, err := Decode[TransactionRow](data)
	if err != nil || skipped != 0 {
		t.Fatalf("decode: skipped=%d err=%v", skipped, err)
	}
	got := NormalizeTransactions(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(got))
	}
	tx := got[0]
	if tx.Amount.Cents != 1250 {
		t.Errorf("amount = %d cents, want 1250", tx.Amount.Cents)
	}
	if tx.Kind != core.Expense {
		t.Errorf("kind = %q, want expense", tx.Kind)
	}
	if tx.CategoryID != "c1" || tx.CategoryLabel != "Comida" {
		t.Errorf("category = %q/%q", tx.CategoryID, tx.CategoryLabel)
	}
}

func TestNormalizeTransactions_DropsMalformedRows(t *testing.T) {
	data := []byte(`[
		{"id": "no-date", "monto": 10, "tipo": "ingreso"},
		{"id": "bad-date", "monto": 10, "tipo": "ingreso", "fecha_transaccion": "yesterday"},
		{"id": "no-kind", "monto": 10, "fecha_transaccion": "2024-03-01"},
		{"id": "bad-kind", "monto": 10, "tipo": "transfer", "fecha_transaccion": "2024-03-01"},
		{"id": "nan", "monto": "abc", "tipo": "gasto", "fecha_transaccion": "2024-03-01"},
		{"id": "negative", "monto": -4, "tipo": "gasto", "fecha_transaccion": "2024-03-01"},
		{"id": "null-amount", "monto": null, "tipo": "gasto", "fecha_transaccion": "2024-03-01"},
		{"id": "ok", "monto": 7.25, "tipo": "ingreso", "fecha_transaccion": "2024-03-01 08:30:00"}
	]`)

	in, _, err := Decode[TransactionRow](data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := NormalizeTransactions(in)

	ids := map[string]core.Transaction{}
	for _, tx := range got {
		ids[tx.ID] = tx
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 retained rows, got %d: %v", len(got), got)
	}
	if tx, ok := ids["null-amount"]; !ok || tx.Amount.Cents != 0 {
		t.Errorf("null amount should coerce to zero, got %+v", tx)
	}
	if tx, ok := ids["ok"]; !ok || tx.Amount.Cents != 725 || tx.Kind != core.Income {
		t.Errorf("unexpected ok row %+v", tx)
	}
	if _, ok := ids["no-date"]; ok {
		t.Errorf("row without fecha_transaccion must be dropped")
	}
}

func TestNormalizeTransactions_RelationShapes(t *testing.T) {
	data := []byte(`[
		{"id": "obj", "monto": 1, "tipo": "gasto", "fecha_transaccion": "2024-03-01",
		 "categorias": {"id": "c2", "nombre": "  Casa  ", "tipo": "gasto"},
		 "billeteras": {"id": "w1", "nombre": ""}},
		{"id": "empty", "monto": 1, "tipo": "gasto", "fecha_transaccion": "2024-03-01",
		 "categoria_id": "c9", "categorias": []},
		{"id": "null", "monto": 1, "tipo": "gasto", "fecha_transaccion": "2024-03-01", "categorias": null}
	]`)

	in, _, err := Decode[TransactionRow](data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := NormalizeTransactions(in)
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}

	obj := got[0]
	if obj.CategoryID != "c2" || obj.CategoryLabel != "Casa" || obj.CategoryKind != core.Expense {
		t.Errorf("object relation not resolved: %+v", obj)
	}
	if obj.WalletID != "w1" || obj.WalletLabel != core.UnnamedLabel {
		t.Errorf("wallet relation not resolved: %+v", obj)
	}
	if got[1].CategoryID != "c9" || got[1].CategoryLabel != core.UncategorizedLabel {
		t.Errorf("empty relation should fall back to column: %+v", got[1])
	}
	if got[2].CategoryID != "" || got[2].CategoryLabel != core.UncategorizedLabel {
		t.Errorf("null relation should be uncategorized: %+v", got[2])
	}
}

func TestDecode_SkipsUndecodableRows(t *testing.T) {
	in, skipped, err := Decode[TransactionRow]([]byte(`[{"id": 5}, {"id": "a"}]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if skipped != 1 || len(in) != 1 {
		t.Fatalf("expected one skipped row, got skipped=%d len=%d", skipped, len(in))
	}

	if _, _, err := Decode[TransactionRow]([]byte(`{"id": "a"}`)); err == nil {
		t.Fatalf("non-array input must fail")
	}
}

func TestNormalizer_Location(t *testing.T) {
	loc := time.FixedZone("VET", -4*3600)
	in := []TransactionRow{{
		ID: "t", Monto: AmountOf("3"), Tipo: Text("ingreso"),
		FechaTransaccion: Text("2024-03-01T00:30:00"),
	}}
	got := Normalizer{Location: loc}.Transactions(in)
	if len(got) != 1 {
		t.Fatalf("expected 1 row")
	}
	want := time.Date(2024, 3, 1, 0, 30, 0, 0, loc)
	if !got[0].OccurredAt.Equal(want) {
		t.Fatalf("occurredAt = %v, want %v", got[0].OccurredAt, want)
	}
}

func TestNormalizeBudgets(t *testing.T) {
	data := []byte(`[
		{"id": "b1", "categoria_id": "c1", "monto": "100", "periodo": "2024-03-01",
		 "categorias": [{"id": "c1", "nombre": "Food"}]},
		{"id": "b2", "categoria_id": "c2", "monto": "lots", "periodo": "2024-03-01"},
		{"id": "b3", "categoria_id": "c3", "monto": 50, "periodo": "someday"}
	]`)
	in, _, err := Decode[BudgetRow](data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := NormalizeBudgets(in)
	if len(got) != 2 {
		t.Fatalf("expected 2 budgets, got %d", len(got))
	}
	if got[0].Period != (core.MonthKey{Year: 2024, Month: 3}) || got[0].CategoryLabel != "Food" || got[0].Limit.Cents != 10000 {
		t.Errorf("unexpected budget %+v", got[0])
	}
	if !got[1].Period.IsZero() {
		t.Errorf("unparsable periodo should be undated, got %v", got[1].Period)
	}
}

func TestNormalizeWalletsAndCategories(t *testing.T) {
	wallets := NormalizeWallets([]WalletRow{{ID: "w1", Nombre: Text(" Cash ")}, {ID: "w2"}, {ID: ""}})
	if len(wallets) != 2 || wallets[0].Name != "Cash" || wallets[1].Name != core.UnnamedLabel {
		t.Fatalf("unexpected wallets %+v", wallets)
	}

	cats := NormalizeCategories([]CategoryRow{{ID: "c1", Nombre: Text("Salary"), Tipo: Text("ingreso")}, {ID: "c2", Nombre: Text("Misc")}})
	if len(cats) != 2 || cats[0].Kind != core.Income || cats[1].Kind.IsSet() {
		t.Fatalf("unexpected categories %+v", cats)
	}
}
