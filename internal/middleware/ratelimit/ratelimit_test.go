package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *time.Time) {
	t.Helper()
	l := New(cfg)
	t.Cleanup(l.Stop)
	clock := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestAllowBurstThenRefill(t *testing.T) {
	l, clock := newTestLimiter(t, Config{RequestsPerSecond: 1, Burst: 2})

	if !l.Allow("1.1.1.1") || !l.Allow("1.1.1.1") {
		t.Fatal("burst should be allowed")
	}
	if l.Allow("1.1.1.1") {
		t.Fatal("third request should be rejected")
	}
	if !l.Allow("2.2.2.2") {
		t.Fatal("other clients have their own bucket")
	}

	*clock = clock.Add(time.Second)
	if !l.Allow("1.1.1.1") {
		t.Fatal("token should refill after one second")
	}

	m := l.GetMetrics()
	if m.Allowed != 4 || m.Rejected != 1 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestCleanupIdle(t *testing.T) {
	l, clock := newTestLimiter(t, Config{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute})

	l.Allow("a")
	*clock = clock.Add(2 * time.Minute)
	l.Allow("b")

	if removed := l.cleanupIdle(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if n := l.ActiveClients(); n != 1 {
		t.Fatalf("active = %d, want 1", n)
	}
}

func TestMiddleware(t *testing.T) {
	l, _ := newTestLimiter(t, Config{RequestsPerSecond: 1, Burst: 1})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	ip := func(*http.Request) string { return "9.9.9.9" }

	tests := []struct {
		name    string
		onLimit http.HandlerFunc
		want    []int
	}{
		{"default rejection", nil, []int{http.StatusCreated, http.StatusTooManyRequests}},
		{"custom rejection", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}, []int{http.StatusServiceUnavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := l.Middleware(ip, tt.onLimit)(next)
			for i, want := range tt.want {
				rr := httptest.NewRecorder()
				h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))
				if rr.Code != want {
					t.Fatalf("request %d: status = %d, want %d", i, rr.Code, want)
				}
				if rr.Code != http.StatusCreated && rr.Header().Get("Retry-After") == "" {
					t.Fatal("missing Retry-After")
				}
			}
		})
	}
}

func TestStopIdempotent(t *testing.T) {
	l := New(Config{})
	l.Stop()
	l.Stop()
	if l.cfg.RequestsPerSecond != 5 || l.cfg.Burst != 10 {
		t.Fatalf("defaults not applied: %+v", l.cfg)
	}
}
