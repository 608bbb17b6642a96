package rows

import (
	"bytes"
	"encoding/json"
)

// Amount is a persisted monto column. It keeps the raw value (number,
// numeric string or null) until core.CoerceAmount decides whether the row
// survives.
type Amount struct {
	raw any
}

// AmountOf wraps a value read from a non-JSON source (SQLite, Sheets cells).
func AmountOf(v any) Amount {
	return Amount{raw: v}
}

// Raw returns the wrapped value: nil, a string or a json.Number.
func (a Amount) Raw() any {
	return a.raw
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case isNull(data):
		a.raw = nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.raw = s
	default:
		// booleans and objects end up here too and fail coercion later
		a.raw = json.Number(string(data))
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.raw)
}
