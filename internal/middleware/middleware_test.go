package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bryanwahyu/aidentify/internal/infra/metrics"
	"github.com/bryanwahyu/aidentify/internal/middleware"
)

func TestRateLimiterPerClient(t *testing.T) {
	rl := middleware.NewRateLimiter(2, 0)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/image/analyze", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("10.0.0.1:5555"); code != http.StatusNoContent {
			t.Fatalf("request %d: want=204 got=%d", i, code)
		}
	}
	if code := call("10.0.0.1:6666"); code != http.StatusTooManyRequests {
		t.Fatalf("same ip other port: want=429 got=%d", code)
	}
	if code := call("10.0.0.2:5555"); code != http.StatusNoContent {
		t.Fatalf("other client: want=204 got=%d", code)
	}
}

func TestRateLimiterIgnoresForwardedHeader(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 0)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for _, fwd := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/image/analyze", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("rotating X-Forwarded-For: want=[204 429 429] got=%v", codes)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1)
	rl.Allow("a")
	if n := rl.Sweep(time.Now()); n != 0 {
		t.Fatalf("fresh bucket swept: got=%d", n)
	}
	if n := rl.Sweep(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("idle bucket: want=1 got=%d", n)
	}
}

func TestHealthHandler(t *testing.T) {
	ok := middleware.CheckFunc(func(context.Context) error { return nil })
	bad := middleware.CheckFunc(func(context.Context) error { return errors.New("bucket unreachable") })

	rec := httptest.NewRecorder()
	middleware.HealthHandler(map[string]middleware.HealthChecker{"db": ok}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthy: want=200 got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	middleware.HealthHandler(map[string]middleware.HealthChecker{"db": ok, "storage": bad}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy: want=503 got=%d", rec.Code)
	}
	var body middleware.HealthStatus
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Checks["storage"].Message != "bucket unreachable" || body.Checks["db"].Status != "healthy" {
		t.Fatalf("checks: got=%+v", body.Checks)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.Metrics)
	r.Get("/api/chat/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := metrics.HTTPRequests.WithLabelValues(http.MethodGet, "/api/chat/{id}", "404")
	before := testutil.ToFloat64(counter)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chat/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chat/def", nil))
	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("route counter: want=2 got=%v", got)
	}
}

func TestValidators(t *testing.T) {
	cases := []struct {
		email string
		ok    bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"", false},
		{"no-at-sign", false},
		{"user@host", false},
	}
	for _, c := range cases {
		if err := middleware.ValidateEmail(c.email); (err == nil) != c.ok {
			t.Fatalf("ValidateEmail(%q): want ok=%v got err=%v", c.email, c.ok, err)
		}
	}
	if err := middleware.ValidateChatID("4f1c2a9e-1b7d-4c3e-9a8f-0e6d5c4b3a21"); err != nil {
		t.Fatalf("uuid chat id: %v", err)
	}
	if err := middleware.ValidateChatID("../etc"); err == nil {
		t.Fatalf("traversal chat id accepted")
	}
	if got := middleware.ValidatePageSize(1000); got != 100 {
		t.Fatalf("page size cap: want=100 got=%d", got)
	}
	if got := middleware.ValidatePage(-3); got != 1 {
		t.Fatalf("page floor: want=1 got=%d", got)
	}
	if got := middleware.SanitizeString("  a\x00b\x07c  "); got != "abc" {
		t.Fatalf("sanitize: want=abc got=%q", got)
	}
}

func TestReadinessHandlerFollowsChecks(t *testing.T) {
	slow := middleware.CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	rec := httptest.NewRecorder()
	middleware.ReadinessHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("no checks: want=200 got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	middleware.ReadinessHandler(map[string]middleware.HealthChecker{"db": slow}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("hung check: want=503 got=%d", rec.Code)
	}
}
