package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finanzas/internal/log"
	"finanzas/internal/middleware/ratelimit"
	"finanzas/internal/middleware/security"
	"finanzas/internal/middleware/trace"
	"finanzas/internal/services"
)

// Options configures a Server. Zero values are usable.
type Options struct {
	// Location resolves custom period bounds given as dates.
	Location *time.Location
	// Ready reports backend reachability for /readyz.
	Ready func(ctx context.Context) error
	// WriteRateLimit is the sustained number of writes per second per client.
	WriteRateLimit float64
	Rates          services.RateProvider
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc      *services.Services
	rates    services.RateProvider
	ready    func(ctx context.Context) error
	loc      *time.Location
	logger   *log.Logger
	detector *security.Detector
	limiter  *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer wires the JSON API onto addr.
func NewServer(addr string, svc *services.Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	s := &Server{
		svc:      svc,
		rates:    opts.Rates,
		ready:    opts.Ready,
		loc:      loc,
		logger:   logger.WithComponent(log.ComponentHTTP),
		detector: security.NewDetector(logger),
		limiter:  ratelimit.New(ratelimit.Config{RequestsPerSecond: opts.WriteRateLimit}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/wallets", s.handleWallets)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/budgets", s.handleBudgets)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/transactions", s.handleRecentTransactions)
	mux.HandleFunc("GET /api/rate", s.handleRate)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "too many requests").Write(w)
	})
	mux.Handle("POST /api/transactions", limited(http.HandlerFunc(s.handleCreateTransaction)))
	mux.Handle("POST /api/wallets", limited(http.HandlerFunc(s.handleCreateWallet)))
	mux.Handle("DELETE /api/wallets/{id}", limited(http.HandlerFunc(s.handleDeleteWallet)))
	mux.Handle("POST /api/categories", limited(http.HandlerFunc(s.handleCreateCategory)))
	mux.Handle("POST /api/budgets", limited(http.HandlerFunc(s.handleUpsertBudget)))

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.limiter.Stop)
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "readiness check failed", log.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "backend unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

// fail logs err with the request logger and writes the mapped response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError && resp.statusCode != http.StatusNotImplemented {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "request failed", err, log.ComponentHTTP, op, nil)
	}
	resp.Write(w)
}
