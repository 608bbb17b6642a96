package google

import (
	"fmt"
	"strconv"
	"strings"

	"finanzas/internal/rows"
)

// table is a tab's data rows keyed by lower-cased header.
type table []map[string]any

// parseTable uses the first row as header. Rows shorter than the header
// leave the remaining columns unset.
func parseTable(values [][]any) table {
	if len(values) == 0 {
		return nil
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = strings.ToLower(strings.TrimSpace(fmt.Sprint(h)))
	}
	out := make(table, 0, len(values)-1)
	for _, row := range values[1:] {
		if blank(row) {
			continue
		}
		rec := make(map[string]any, len(header))
		for i, name := range header {
			if name == "" || i >= len(row) {
				continue
			}
			rec[name] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

func blank(row []any) bool {
	for _, v := range row {
		if strings.TrimSpace(fmt.Sprint(v)) != "" {
			return false
		}
	}
	return true
}

// text renders a cell as a string pointer; empty cells are nil.
func text(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = strings.TrimSpace(x)
	case float64:
		s = strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s = strings.TrimSpace(fmt.Sprint(x))
	}
	if s == "" {
		return nil
	}
	return &s
}

func id(v any) string {
	if s := text(v); s != nil {
		return *s
	}
	return ""
}

func related(t table) map[string]rows.Related {
	out := make(map[string]rows.Related, len(t))
	for _, rec := range t {
		key := id(rec["id"])
		if key == "" {
			continue
		}
		out[key] = rows.Related{ID: rows.Text(key), Nombre: text(rec["nombre"]), Tipo: text(rec["tipo"])}
	}
	return out
}

// transactionRows joins transactions with their category and wallet tabs
// the way the hosted backend embeds relations.
func transactionRows(txs, cats, wallets table) []rows.TransactionRow {
	catIndex := related(cats)
	walletIndex := related(wallets)
	out := make([]rows.TransactionRow, 0, len(txs))
	for _, rec := range txs {
		row := rows.TransactionRow{
			ID:               id(rec["id"]),
			Monto:            rows.AmountOf(rec["monto"]),
			Tipo:             text(rec["tipo"]),
			FechaTransaccion: text(rec["fecha_transaccion"]),
			Descripcion:      text(rec["descripcion"]),
			CategoriaID:      text(rec["categoria_id"]),
			BilleteraID:      text(rec["billetera_id"]),
		}
		if row.CategoriaID != nil {
			if c, ok := catIndex[*row.CategoriaID]; ok {
				row.Categorias = rows.One(c)
			}
		}
		if row.BilleteraID != nil {
			if w, ok := walletIndex[*row.BilleteraID]; ok {
				row.Billeteras = rows.One(w)
			}
		}
		out = append(out, row)
	}
	return out
}

func walletRows(t table) []rows.WalletRow {
	out := make([]rows.WalletRow, 0, len(t))
	for _, rec := range t {
		out = append(out, rows.WalletRow{ID: id(rec["id"]), Nombre: text(rec["nombre"])})
	}
	return out
}

func categoryRows(t table) []rows.CategoryRow {
	out := make([]rows.CategoryRow, 0, len(t))
	for _, rec := range t {
		out = append(out, rows.CategoryRow{ID: id(rec["id"]), Nombre: text(rec["nombre"]), Tipo: text(rec["tipo"])})
	}
	return out
}

func budgetRows(budgets, cats table) []rows.BudgetRow {
	catIndex := related(cats)
	out := make([]rows.BudgetRow, 0, len(budgets))
	for _, rec := range budgets {
		row := rows.BudgetRow{
			ID:          id(rec["id"]),
			CategoriaID: text(rec["categoria_id"]),
			Monto:       rows.AmountOf(rec["monto"]),
			Periodo:     text(rec["periodo"]),
		}
		if row.CategoriaID != nil {
			if c, ok := catIndex[*row.CategoriaID]; ok {
				row.Categorias = rows.One(c)
			}
		}
		out = append(out, row)
	}
	return out
}
