// Package rest reads the finance tables from a hosted PostgREST endpoint
// (the backend-as-a-service the web client talks to).
package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/rows"
	"finanzas/internal/source"
)

const (
	transactionColumns = "id,monto,tipo,descripcion,fecha_transaccion,categoria_id,billetera_id," +
		"categorias(id,nombre,tipo),billeteras(id,nombre)"
	walletColumns   = "id,nombre"
	categoryColumns = "id,nombre,tipo"
	budgetColumns   = "id,categoria_id,monto,periodo,categorias:categoria_id(id,nombre)"

	maxErrorBody = 4 << 10
)

// ErrTokenExpired is returned by New when the configured access token has
// already expired.
var ErrTokenExpired = errors.New("access token expired")

type Config struct {
	BaseURL     string // e.g. https://project.supabase.co/rest/v1
	APIKey      string
	AccessToken string // optional user session token; APIKey is used when empty
	Timeout     time.Duration
	Location    *time.Location
}

// Client is a read-only source over PostgREST.
type Client struct {
	base       *url.URL
	apiKey     string
	token      string
	http       *http.Client
	normalizer rows.Normalizer
	logs       *log.StructuredLogger
}

var _ source.Reader = (*Client)(nil)

func New(cfg Config, logger *log.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid REST_URL %q", cfg.BaseURL)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing REST_API_KEY")
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		token = cfg.APIKey
	}
	if exp, ok := TokenExpiry(token); ok && time.Now().After(exp) {
		return nil, fmt.Errorf("%w at %s", ErrTokenExpired, exp.Format(time.RFC3339))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		base:       base,
		apiKey:     cfg.APIKey,
		token:      token,
		http:       newHTTPClient(timeout),
		normalizer: rows.Normalizer{Location: cfg.Location},
		logs:       log.NewStructuredLogger(logger),
	}, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: timeout,
			ForceAttemptHTTP2:     true,
		},
		Timeout: timeout,
	}
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The server verifies tokens; this only lets startup fail early.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (c *Client) ListTransactions(ctx context.Context, f source.TransactionFilter) ([]core.Transaction, error) {
	q := url.Values{}
	q.Set("select", transactionColumns)
	q.Set("order", "fecha_transaccion.desc")
	if !f.AllWallets() {
		q.Set("billetera_id", "eq."+f.WalletID)
	}
	if f.CategoryID != "" {
		q.Set("categoria_id", "eq."+f.CategoryID)
	}
	if f.Kind.IsSet() {
		q.Set("tipo", "eq."+string(f.Kind))
	}
	if f.From != nil {
		q.Add("fecha_transaccion", "gte."+f.From.UTC().Format(time.RFC3339Nano))
	}
	if f.To != nil {
		q.Add("fecha_transaccion", "lte."+f.To.UTC().Format(time.RFC3339Nano))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}

	in, err := fetch[rows.TransactionRow](ctx, c, "transacciones", q)
	if err != nil {
		return nil, err
	}
	txs := c.normalizer.Transactions(in)
	c.logs.LogRowsDropped(ctx, "transacciones", len(in)-len(txs))
	// the server already filtered; this re-applies ordering and the limit
	// after normalization dropped rows
	return f.Apply(txs), nil
}

func (c *Client) ListWallets(ctx context.Context) ([]core.Wallet, error) {
	q := url.Values{"select": {walletColumns}, "order": {"nombre.asc"}}
	in, err := fetch[rows.WalletRow](ctx, c, "billeteras", q)
	if err != nil {
		return nil, err
	}
	return c.normalizer.Wallets(in), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	q := url.Values{"select": {categoryColumns}, "order": {"nombre.asc"}}
	in, err := fetch[rows.CategoryRow](ctx, c, "categorias", q)
	if err != nil {
		return nil, err
	}
	return c.normalizer.Categories(in), nil
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	q := url.Values{"select": {budgetColumns}}
	in, err := fetch[rows.BudgetRow](ctx, c, "presupuestos", q)
	if err != nil {
		return nil, err
	}
	budgets := c.normalizer.Budgets(in)
	c.logs.LogRowsDropped(ctx, "presupuestos", len(in)-len(budgets))
	return budgets, nil
}

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Table   string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("read %s: status %d: %s", e.Table, e.Status, e.Message)
}

func fetch[T any](ctx context.Context, c *Client, table string, q url.Values) ([]T, error) {
	u := c.base.JoinPath(table)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Table: table, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", table, err)
	}
	out, skipped, err := rows.Decode[T](data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	c.logs.LogRowsDropped(ctx, table, skipped)
	return out, nil
}
