// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// period filters, month selectors, limits and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
	"finanzas/internal/rows"
	"finanzas/internal/services"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("empty request body")

// ParsePeriodQuery reads period, start, end and wallet. A missing period
// means this month; start and end are only read for the custom selector.
func ParsePeriodQuery(query url.Values, loc *time.Location) (services.PeriodQuery, error) {
	q := services.PeriodQuery{
		Selector: core.ThisMonth,
		WalletID: sanitizeInput(query.Get("wallet")),
	}
	if v := strings.TrimSpace(query.Get("period")); v != "" {
		q.Selector = core.ParseSelector(v)
	}
	if q.Selector != core.Custom {
		return q, nil
	}

	var err error
	if q.Start, err = parseOptionalTime(query.Get("start"), loc); err != nil {
		return services.PeriodQuery{}, fmt.Errorf("start: %w", err)
	}
	if q.End, err = parseOptionalTime(query.Get("end"), loc); err != nil {
		return services.PeriodQuery{}, fmt.Errorf("end: %w", err)
	}
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		return services.PeriodQuery{}, errors.New("end is before start")
	}
	return q, nil
}

func parseOptionalTime(s string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := rows.ParseTime(s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseMonth reads the month parameter, falling back to def when absent.
func ParseMonth(query url.Values, def core.MonthKey) (core.MonthKey, error) {
	v := strings.TrimSpace(query.Get("month"))
	if v == "" {
		return def, nil
	}
	return core.ParseMonthKey(v)
}

// ParseLimit reads the limit parameter. Zero means the service default.
func ParseLimit(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

// DecodeJSON decodes a single JSON object from the request body into dst.
// Unknown fields are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
