// Package rows turns raw persisted rows into canonical domain records.
//
// Rows mirror the storage tables (transacciones, billeteras, categorias,
// presupuestos) with every column nullable. Normalization never fails:
// malformed rows are dropped and callers can compare lengths to count them.
package rows

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"finanzas/internal/core"
)

type (
	// Related is the shape of an embedded categorias/billeteras join.
	Related struct {
		ID     *string `json:"id"`
		Nombre *string `json:"nombre"`
		Tipo   *string `json:"tipo"`
	}

	TransactionRow struct {
		ID               string            `json:"id"`
		Monto            Amount            `json:"monto"`
		Tipo             *string           `json:"tipo"`
		FechaTransaccion *string           `json:"fecha_transaccion"`
		Descripcion      *string           `json:"descripcion"`
		CategoriaID      *string           `json:"categoria_id"`
		BilleteraID      *string           `json:"billetera_id"`
		Categorias       Relation[Related] `json:"categorias"`
		Billeteras       Relation[Related] `json:"billeteras"`
	}

	WalletRow struct {
		ID     string  `json:"id"`
		Nombre *string `json:"nombre"`
	}

	CategoryRow struct {
		ID     string  `json:"id"`
		Nombre *string `json:"nombre"`
		Tipo   *string `json:"tipo"`
	}

	BudgetRow struct {
		ID          string            `json:"id"`
		CategoriaID *string           `json:"categoria_id"`
		Monto       Amount            `json:"monto"`
		Periodo     *string           `json:"periodo"`
		Categorias  Relation[Related] `json:"categorias"`
	}
)

// Text returns a pointer to s, for building rows by hand.
func Text(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime parses the timestamp formats the backends emit. Values without
// a zone are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrInvalidDate
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
}

// Decode unmarshals a JSON array of rows. Elements that do not decode are
// skipped and counted; only input that is not an array fails.
func Decode[T any](data []byte) ([]T, int, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, fmt.Errorf("decode rows: %w", err)
	}
	out := make([]T, 0, len(raw))
	skipped := 0
	for _, item := range raw {
		var row T
		if err := json.Unmarshal(item, &row); err != nil {
			skipped++
			continue
		}
		out = append(out, row)
	}
	return out, skipped, nil
}
