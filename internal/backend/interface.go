package backend

import (
	"context"
	"time"

	"finanzas/internal/source"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is an opened backend. Writer is nil for read-only backends.
type Result struct {
	Type    BackendType
	Reader  source.Reader
	Writer  source.Writer
	Cleanup CleanupFunc
}

// ReadOnly reports whether the backend rejects writes.
func (r *Result) ReadOnly() bool {
	return r.Writer == nil
}

// Pinger is implemented by backends that can check connectivity cheaply.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the backend when it supports it.
func (r *Result) Ping(ctx context.Context) error {
	if p, ok := r.Reader.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (r *Result) Close() error {
	if r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory opens backends from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type     BackendType
	Location *time.Location

	// SQLite
	SQLiteDBPath string

	// Memory
	SeedFile string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// Hosted REST
	RESTURL         string
	RESTAPIKey      string
	RESTAccessToken string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	RESTBackend   BackendType = "rest"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend, RESTBackend:
		return true
	default:
		return false
	}
}
