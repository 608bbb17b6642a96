package rows

import (
	"bytes"
	"encoding/json"
)

// Relation is a joined record that the backend returns either as a bare
// object, as an array (one-to-many join shape) or as null. Only the first
// element of an array is kept.
type Relation[T any] struct {
	Value T
	Valid bool
}

// One wraps v as a present relation.
func One[T any](v T) Relation[T] {
	return Relation[T]{Value: v, Valid: true}
}

// Get returns the record and whether it was present.
func (r Relation[T]) Get() (T, bool) {
	return r.Value, r.Valid
}

func (r *Relation[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if isNull(data) {
		*r = Relation[T]{}
		return nil
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if len(items) == 0 || isNull(bytes.TrimSpace(items[0])) {
			*r = Relation[T]{}
			return nil
		}
		data = items[0]
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = One(v)
	return nil
}

func (r Relation[T]) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

func isNull(data []byte) bool {
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
