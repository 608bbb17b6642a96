// Package core holds the domain types of the finance tracker and the pure
// helpers shared by the aggregation and budget engines.
//
// This file contains amount coercion for persisted rows and user input.
// Amounts are carried as integer cents so totals add up exactly.
package core

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var maxSafeUnits = decimal.NewFromInt(math.MaxInt64 / 100)

// CoerceAmount converts a persisted amount into Money.
//
// Stored amounts arrive as JSON numbers, numeric strings or null. Null and
// blank strings coerce to zero; anything that is not a finite, non-negative
// number is rejected with ErrInvalidAmount. Fractions of a cent are rounded
// half away from zero.
//
// Examples:
//
//	CoerceAmount("12.50")  -> 1250
//	CoerceAmount(85.0)     -> 8500
//	CoerceAmount(nil)      -> 0
//	CoerceAmount("abc")    -> ErrInvalidAmount
func CoerceAmount(v any) (Money, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return Money{}, nil
	case Money:
		d = decimal.New(x.Cents, -2)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Money{}, ErrInvalidAmount
		}
		d = decimal.NewFromFloat(x)
	case float32:
		return CoerceAmount(float64(x))
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		return CoerceAmount(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Money{}, nil
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return Money{}, ErrInvalidAmount
		}
		d = parsed
	default:
		return Money{}, ErrInvalidAmount
	}
	return fromDecimal(d)
}

// ParseAmount parses a user-entered amount. Both dot (12.34) and comma
// (12,34) decimal separators are accepted; the result must be positive.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	m, err := fromDecimal(d)
	if err != nil {
		return Money{}, err
	}
	if m.Cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(maxSafeUnits) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o. The result may be negative (balances, remaining budget).
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Units returns the amount in currency units for display and ratios.
// Use Cents for arithmetic.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with two decimals, e.g. "12.50".
func (m Money) String() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number in currency units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// Percent returns part/whole*100, or 0 when whole is zero.
func Percent(part, whole Money) float64 {
	if whole.Cents == 0 {
		return 0
	}
	return float64(part.Cents) / float64(whole.Cents) * 100
}
