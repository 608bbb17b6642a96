// Package google reads the finance tables from a Google Sheets spreadsheet.
// Each table lives in its own tab whose first row holds the column names
// (id, monto, tipo, fecha_transaccion, ...).
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/rows"
	"finanzas/internal/source"
)

// Tabs names the sheet tab of every table.
type Tabs struct {
	Transactions string
	Wallets      string
	Categories   string
	Budgets      string
}

func DefaultTabs() Tabs {
	return Tabs{
		Transactions: "transacciones",
		Wallets:      "billeteras",
		Categories:   "categorias",
		Budgets:      "presupuestos",
	}
}

type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
	Tabs               Tabs
	Location           *time.Location
}

// Client is a read-only source backed by the Sheets API.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabs          Tabs
	normalizer    rows.Normalizer
	logs          *log.StructuredLogger
}

var _ source.Reader = (*Client)(nil)

// New creates a client. Extra options replace the service account
// credentials, which lets tests point the client at a local endpoint.
func New(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSource)

	if len(opts) == 0 {
		creds, err := credentials(cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	tabs := cfg.Tabs
	defaults := DefaultTabs()
	if tabs.Transactions == "" {
		tabs.Transactions = defaults.Transactions
	}
	if tabs.Wallets == "" {
		tabs.Wallets = defaults.Wallets
	}
	if tabs.Categories == "" {
		tabs.Categories = defaults.Categories
	}
	if tabs.Budgets == "" {
		tabs.Budgets = defaults.Budgets
	}

	logger.InfoContext(ctx, "Google Sheets source ready", "spreadsheet_id", cfg.SpreadsheetID)
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		tabs:          tabs,
		normalizer:    rows.Normalizer{Location: cfg.Location},
		logs:          log.NewStructuredLogger(logger),
	}, nil
}

// credentials resolves service account JSON from inline config, a file, or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentials(cfg Config) ([]byte, error) {
	if js := strings.TrimSpace(cfg.ServiceAccountJSON); js != "" {
		return []byte(js), nil
	}
	path := strings.TrimSpace(cfg.ServiceAccountFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func (c *Client) ListTransactions(ctx context.Context, f source.TransactionFilter) ([]core.Transaction, error) {
	tables, err := c.read(ctx, c.tabs.Transactions, c.tabs.Categories, c.tabs.Wallets)
	if err != nil {
		return nil, err
	}
	in := transactionRows(tables[0], tables[1], tables[2])
	txs := c.normalizer.Transactions(in)
	c.logs.LogRowsDropped(ctx, c.tabs.Transactions, len(in)-len(txs))
	return f.Apply(txs), nil
}

func (c *Client) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	tables, err := c.read(ctx, c.tabs.Wallets)
	if err != nil {
		return nil, err
	}
	return c.normalizer.Wallets(walletRows(tables[0])), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	tables, err := c.read(ctx, c.tabs.Categories)
	if err != nil {
		return nil, err
	}
	return c.normalizer.Categories(categoryRows(tables[0])), nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	tables, err := c.read(ctx, c.tabs.Budgets, c.tabs.Categories)
	if err != nil {
		return nil, err
	}
	in := budgetRows(tables[0], tables[1])
	budgets := c.normalizer.Budgets(in)
	c.logs.LogRowsDropped(ctx, c.tabs.Budgets, len(in)-len(budgets))
	return budgets, nil
}

// read fetches whole tabs in a single batch call, returned in request order.
func (c *Client) read(ctx context.Context, tabs ...string) ([]table, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.BatchGet(c.spreadsheetID).
		Ranges(tabs...).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", strings.Join(tabs, ","), err)
	}
	if len(resp.ValueRanges) != len(tabs) {
		return nil, fmt.Errorf("read %s: expected %d ranges, got %d", strings.Join(tabs, ","), len(tabs), len(resp.ValueRanges))
	}
	out := make([]table, len(tabs))
	for i, vr := range resp.ValueRanges {
		out[i] = parseTable(vr.Values)
	}
	return out, nil
}
