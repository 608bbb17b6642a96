// Package rates fetches the official BCV dollar rate used to show amounts
// converted for display. A failed fetch yields no rate, never an error to
// the caller's page.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"finanzas/internal/cache"
	"finanzas/internal/log"
)

const (
	DefaultURL      = "https://ve.dolarapi.com/v1/dolares/oficial"
	DefaultCacheTTL = 30 * time.Minute
	cacheKey        = "rate:bcv"
)

// Rate is one published quote.
type Rate struct {
	Average   decimal.Decimal `json:"average"`
	Source    string          `json:"source"`
	UpdatedAt time.Time       `json:"updated_at,omitzero"`
}

type quote struct {
	Fuente             string          `json:"fuente"`
	Nombre             string          `json:"nombre"`
	Promedio           decimal.Decimal `json:"promedio"`
	FechaActualizacion string          `json:"fechaActualizacion"`
}

type Config struct {
	URL      string
	CacheTTL time.Duration
	Timeout  time.Duration
}

type Client struct {
	url    string
	http   *http.Client
	cache  *cache.LRUCache[Rate]
	group  singleflight.Group
	logger *log.Logger
}

func New(cfg Config, logger *log.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		url:    cfg.URL,
		http:   &http.Client{Timeout: cfg.Timeout},
		cache:  cache.NewLRUCache[Rate](1, cfg.CacheTTL),
		logger: logger.WithComponent(log.ComponentRates),
	}
}

// Cache exposes the rate cache for registration with a cache.Manager.
func (c *Client) Cache() *cache.LRUCache[Rate] {
	return c.cache
}

// Current returns the cached rate or fetches it. Concurrent callers share
// one request. It returns nil when the rate is unavailable.
func (c *Client) Current(ctx context.Context) *Rate {
	if r, ok := c.cache.Get(cacheKey); ok {
		return &r
	}

	v, err, _ := c.group.Do(cacheKey, func() (any, error) {
		// shared by every waiting caller, so it outlives any one of them
		fetchCtx := context.WithoutCancel(ctx)
		r, err := c.Fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(cacheKey, r)
		return r, nil
	})
	if err != nil {
		c.logger.WarnContext(ctx, "exchange rate unavailable", log.FieldError, err.Error())
		return nil
	}
	r := v.(Rate)
	if ctx.Err() != nil {
		return nil
	}
	return &r
}

// Fetch always calls the remote endpoint.
func (c *Client) Fetch(ctx context.Context) (Rate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Rate{}, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Rate{}, fmt.Errorf("fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Rate{}, fmt.Errorf("fetch rate: unexpected status %d", resp.StatusCode)
	}

	var q quote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return Rate{}, fmt.Errorf("decode rate: %w", err)
	}
	if !q.Promedio.IsPositive() {
		return Rate{}, fmt.Errorf("decode rate: missing promedio")
	}

	r := Rate{Average: q.Promedio, Source: q.Fuente}
	if r.Source == "" {
		r.Source = q.Nombre
	}
	if t, err := time.Parse(time.RFC3339, q.FechaActualizacion); err == nil {
		r.UpdatedAt = t
	}
	c.logger.DebugContext(ctx, "exchange rate fetched", log.FieldRate, r.Average.String())
	return r, nil
}

// Convert returns a dollar amount expressed in bolivars at rate r, rounded
// to cents. A zero rate converts to zero.
func (r Rate) Convert(usd decimal.Decimal) decimal.Decimal {
	if r.Average.IsZero() {
		return decimal.Zero
	}
	return usd.Mul(r.Average).Round(2)
}
