package backend

import (
	"context"
	"fmt"

	"finanzas/internal/log"
	"finanzas/internal/rows"
	"finanzas/internal/source/google"
	"finanzas/internal/source/memory"
	"finanzas/internal/source/rest"
	"finanzas/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case RESTBackend:
		return f.createRESTBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, config.Location, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Type: SQLiteBackend, Reader: repo, Writer: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		ServiceAccountFile: config.GoogleServiceAccountFile,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		Tabs:               google.DefaultTabs(),
		Location:           config.Location,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("initialized Google Sheets backend (read-only)")
	return &Result{Type: SheetsBackend, Reader: cli}, nil
}

func (f *DefaultFactory) createRESTBackend(config Config) (*Result, error) {
	cli, err := rest.New(rest.Config{
		BaseURL:     config.RESTURL,
		APIKey:      config.RESTAPIKey,
		AccessToken: config.RESTAccessToken,
		Location:    config.Location,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize REST client: %w", err)
	}

	f.logger.Info("initialized REST backend (read-only)", "url", config.RESTURL)
	return &Result{Type: RESTBackend, Reader: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	store, err := memory.NewFromFile(config.SeedFile, rows.Normalizer{Location: config.Location})
	if err != nil {
		return nil, fmt.Errorf("failed to load memory backend: %w", err)
	}

	f.logger.Info("initialized memory backend", "seed_file", config.SeedFile)
	return &Result{Type: MemoryBackend, Reader: store, Writer: store}, nil
}
