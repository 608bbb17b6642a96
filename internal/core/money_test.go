package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestCoerceAmount(t *testing.T) {
	cases := []struct {
		in  any
		out int64
		ok  bool
	}{
		{"12.50", 1250, true},
		{" 7 ", 700, true},
		{85.0, 8500, true},
		{0.1 + 0.2, 30, true},
		{int64(3), 300, true},
		{json.Number("1.005"), 101, true}, // half away from zero
		{nil, 0, true},
		{"", 0, true},
		{"abc", 0, false},
		{"12,50", 0, false},
		{"-1", 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{true, 0, false},
		{"1e30", 0, false},
	}
	for _, tc := range cases {
		got, err := CoerceAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%v expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%v expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e2", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	if got := (Money{Cents: 1250}).String(); got != "12.50" {
		t.Fatalf("expected 12.50, got %s", got)
	}
	if got := (Money{Cents: -5}).String(); got != "-0.05" {
		t.Fatalf("expected -0.05, got %s", got)
	}
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{Money{Cents: 8500}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"amount":85.00}` {
		t.Fatalf("unexpected json: %s", b)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(Money{Cents: 85}, Money{Cents: 100}); got != 85 {
		t.Fatalf("expected 85, got %v", got)
	}
	if got := Percent(Money{Cents: 85}, Money{}); got != 0 {
		t.Fatalf("expected 0 for zero denominator, got %v", got)
	}
}
