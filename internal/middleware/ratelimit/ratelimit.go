// Package ratelimit throttles mutating API calls per client.
package ratelimit

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Config controls the token bucket handed to each client.
type Config struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration
	IdleTimeout       time.Duration
}

// DefaultConfig allows five writes per second with a burst of ten.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 5,
		Burst:             10,
		CleanupInterval:   5 * time.Minute,
		IdleTimeout:       10 * time.Minute,
	}
}

// Metrics tracks rate limiting events
type Metrics struct {
	Allowed  int64
	Rejected int64
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client IP.
type Limiter struct {
	cfg          Config
	mu           sync.Mutex
	clients      map[string]*clientLimiter
	metrics      Metrics
	now          func() time.Time
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

// New creates a limiter and starts its cleanup goroutine. Call Stop to release it.
func New(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst < 1 {
		cfg.Burst = max(1, int(cfg.RequestsPerSecond))
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}

	l := &Limiter{
		cfg:         cfg,
		clients:     make(map[string]*clientLimiter),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	go l.startCleanup()
	return l
}

func (l *Limiter) startCleanup() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanupIdle()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanupIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleTimeout)
	removed := 0
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.shutdownOnce.Do(func() {
		close(l.stopCleanup)
	})
}

// Allow reports whether the client may perform one more request now.
func (l *Limiter) Allow(clientIP string) bool {
	l.mu.Lock()
	now := l.now()
	c, ok := l.clients[clientIP]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[clientIP] = c
	}
	c.lastSeen = now
	allowed := c.limiter.AllowN(now, 1)
	l.mu.Unlock()

	if allowed {
		atomic.AddInt64(&l.metrics.Allowed, 1)
	} else {
		atomic.AddInt64(&l.metrics.Rejected, 1)
	}
	return allowed
}

// ActiveClients returns the number of tracked clients.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// GetMetrics returns a snapshot of the counters.
func (l *Limiter) GetMetrics() Metrics {
	return Metrics{
		Allowed:  atomic.LoadInt64(&l.metrics.Allowed),
		Rejected: atomic.LoadInt64(&l.metrics.Rejected),
	}
}

// Middleware rejects requests over the client's budget. onLimit writes the
// rejection; when nil a plain 429 is sent.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(extractIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", "1")
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
		})
	}
}
