package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// per-dependency budget; the whole probe is capped by probeTimeout
const (
	checkTimeout = 2 * time.Second
	probeTimeout = 5 * time.Second
)

// HealthChecker is one dependency probe (database, bucket, ...).
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings a database/sql pool.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

type CheckStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// probe runs every checker in parallel. Failures are reported per check,
// never short-circuiting the others.
func probe(ctx context.Context, checkers map[string]HealthChecker) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckStatus, len(checkers)),
	}

	var mu sync.Mutex
	var g errgroup.Group
	for name, checker := range checkers {
		g.Go(func() error {
			cctx, ccancel := context.WithTimeout(ctx, checkTimeout)
			defer ccancel()

			start := time.Now()
			err := checker.Check(cctx)
			st := CheckStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status = "unhealthy"
				st.Message = err.Error()
			}

			mu.Lock()
			health.Checks[name] = st
			if err != nil {
				health.Status = "unhealthy"
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return health
}

// HealthHandler reports every dependency; any failure turns the response into 503.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := probe(r.Context(), checkers)
		writeHealth(w, health.Status == "healthy", health)
	}
}

// ReadinessHandler answers ready/not-ready without the per-check detail,
// for load balancers that only look at the status code.
func ReadinessHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := probe(r.Context(), checkers)
		status := "ready"
		if health.Status != "healthy" {
			status = "not_ready"
		}
		writeHealth(w, status == "ready", map[string]any{
			"status":    status,
			"timestamp": health.Timestamp,
		})
	}
}

// LivenessHandler only proves the process is serving.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeHealth(w http.ResponseWriter, ok bool, body any) {
	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
