// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the
// mapping from service errors onto status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"finanzas/internal/services"
	"finanzas/internal/source"
)

// retryAfterSeconds is the hint sent when a backend read fails.
const retryAfterSeconds = 5

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// RetryAfter adds a Retry-After header in seconds.
func (b *JSONResponseBuilder) RetryAfter(seconds int) *JSONResponseBuilder {
	return b.Header("Retry-After", strconv.Itoa(seconds))
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// errorBody is the JSON shape of every error reply.
type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// UpstreamError reports a failed backend read. Clients may retry.
func UpstreamError(message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusBadGateway).
		RetryAfter(retryAfterSeconds).
		Body(errorBody{Error: message, Retryable: true})
}

// ErrorFor maps a service error onto a response.
func ErrorFor(err error) *JSONResponseBuilder {
	var fetchErr *services.FetchError
	switch {
	case errors.Is(err, source.ErrReadOnly):
		return ErrorResponse(http.StatusNotImplemented, "the configured backend is read-only")
	case errors.Is(err, services.ErrInvalidInput):
		return BadRequestError(err.Error())
	case errors.Is(err, source.ErrNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, source.ErrWalletInUse):
		return ErrorResponse(http.StatusConflict, err.Error())
	case errors.As(err, &fetchErr):
		return UpstreamError("failed to load data, please retry")
	default:
		return InternalServerError("internal error")
	}
}
