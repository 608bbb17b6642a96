package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"finanzas/internal/services"
	"finanzas/internal/source"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"n": 2}).
		Write(rr)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Fatalf("content type = %q", got)
	}
	if rr.Header().Get("X-Test") != "1" {
		t.Fatal("missing custom header")
	}
	if rr.Body.String() != "{\"n\":2}\n" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestJSONResponseBuilder_NoContentAndEncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Body("ignored").Write(rr)
	if rr.Code != http.StatusNoContent || rr.Body.Len() != 0 {
		t.Fatalf("no content: status=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	NewJSONResponse().Body(math.Inf(1)).Write(rr)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("unencodable body: status=%d", rr.Code)
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"read only", source.ErrReadOnly, http.StatusNotImplemented, false},
		{"invalid input", fmt.Errorf("%w: amount", services.ErrInvalidInput), http.StatusBadRequest, false},
		{"not found", fmt.Errorf("create transaction: %w", source.ErrNotFound), http.StatusNotFound, false},
		{"wallet in use", fmt.Errorf("delete wallet: %w", source.ErrWalletInUse), http.StatusConflict, false},
		{"fetch failure", fmt.Errorf("dashboard: %w", &services.FetchError{Op: "list transactions", Err: errors.New("timeout")}), http.StatusBadGateway, true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			ErrorFor(tt.err).Write(rr)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			var body errorBody
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == "" {
				t.Fatal("empty error message")
			}
			if body.Retryable != tt.retryable {
				t.Fatalf("retryable = %v", body.Retryable)
			}
			if tt.retryable && rr.Header().Get("Retry-After") != "5" {
				t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
			}
		})
	}
}

func TestErrorForHidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorFor(errors.New("dial tcp 10.0.0.1:5432: secret")).Write(rr)
	var body errorBody
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Error != "internal error" {
		t.Fatalf("leaked error %q", body.Error)
	}
}
