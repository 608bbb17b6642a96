package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finanzas/internal/core"
	"finanzas/internal/source"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestListTransactions(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/transacciones" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("apikey") != "anon" || r.Header.Get("Authorization") != "Bearer anon" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "t1", "monto": "12.50", "tipo": "gasto", "fecha_transaccion": "2024-03-15T10:00:00+00:00",
			 "billetera_id": "w1", "categorias": [{"id": "c1", "nombre": "Comida"}]},
			{"id": "t2", "monto": 5, "tipo": "ingreso"}
		]`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/rest/v1", APIKey: "anon"}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	txs, err := c.ListTransactions(context.Background(), source.TransactionFilter{WalletID: "w1", Kind: core.Expense, From: &from})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].CategoryLabel != "Comida" || txs[0].Amount.Cents != 1250 {
		t.Fatalf("unexpected transactions %+v", txs)
	}
	for _, want := range []string{"billetera_id=eq.w1", "tipo=eq.gasto", "fecha_transaccion=gte.2024-03-01T00%3A00%3A00Z"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestListTransactions_GlobalWalletNotFiltered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("billetera_id") {
			t.Errorf("global wallet must not filter, got %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, APIKey: "anon"}, nil)
	if _, err := c.ListTransactions(context.Background(), source.TransactionFilter{WalletID: core.GlobalWalletID}); err != nil {
		t.Fatalf("list: %v", err)
	}
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"column categorias.tipo does not exist"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, APIKey: "anon"}, nil)
	_, err := c.ListCategories(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusBadRequest || !strings.Contains(se.Message, "tipo") {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestFetch_NotAnArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "w1"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, APIKey: "anon"}, nil)
	if _, err := c.ListWallets(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestListBudgets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "b1", "categoria_id": "c1", "monto": "100", "periodo": "2024-03-01",
			"categorias": {"id": "c1", "nombre": "Food"}}]`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, APIKey: "anon"}, nil)
	budgets, err := c.ListBudgets(context.Background())
	if err != nil || len(budgets) != 1 || budgets[0].Period.String() != "2024-03" {
		t.Fatalf("unexpected budgets %+v err=%v", budgets, err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{BaseURL: "not a url", APIKey: "k"}, nil); err == nil {
		t.Errorf("expected invalid url error")
	}
	if _, err := New(Config{BaseURL: "https://example.com"}, nil); err == nil {
		t.Errorf("expected missing api key error")
	}

	expired := signed(t, time.Now().Add(-time.Hour))
	if _, err := New(Config{BaseURL: "https://example.com", APIKey: "k", AccessToken: expired}, nil); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}

	valid := signed(t, time.Now().Add(time.Hour))
	if _, err := New(Config{BaseURL: "https://example.com", APIKey: "k", AccessToken: valid}, nil); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}

func TestTokenExpiry_Opaque(t *testing.T) {
	if _, ok := TokenExpiry("not-a-jwt"); ok {
		t.Fatalf("opaque tokens have no expiry")
	}
}
