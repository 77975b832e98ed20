package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Pinger is the health surface a dependency exposes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	deps map[string]Pinger
}

// HealthHandlerOption configures the health handler.
type HealthHandlerOption func(*HealthHandler)

// WithDatabase registers the database readiness check.
func WithDatabase(db Pinger) HealthHandlerOption {
	return func(h *HealthHandler) { h.deps["database"] = db }
}

// WithRedis registers the Redis readiness check.
func WithRedis(r Pinger) HealthHandlerOption {
	return func(h *HealthHandler) { h.deps["redis"] = r }
}

// NewHealthHandler creates a health handler with the given checks.
func NewHealthHandler(opts ...HealthHandlerOption) *HealthHandler {
	h := &HealthHandler{deps: make(map[string]Pinger)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /healthz. Liveness only; never touches
// dependencies, so a Redis outage does not get the pod restarted.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeHealthJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// CheckResult is one dependency's probe outcome.
type CheckResult struct {
	Status   string `json:"status"`
	Duration string `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Ready handles GET /readyz. Pings every registered dependency
// concurrently and returns 503 if any fails.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		checks = make(map[string]CheckResult, len(h.deps))
		ready  = true
	)
	for name, dep := range h.deps {
		wg.Add(1)
		go func(name string, dep Pinger) {
			defer wg.Done()
			result := probe(ctx, dep)
			mu.Lock()
			checks[name] = result
			if result.Status != "ok" {
				ready = false
			}
			mu.Unlock()
		}(name, dep)
	}
	wg.Wait()

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	writeHealthJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func probe(ctx context.Context, p Pinger) CheckResult {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return CheckResult{Status: "error", Duration: time.Since(start).String(), Error: err.Error()}
	}
	return CheckResult{Status: "ok", Duration: time.Since(start).String()}
}

func writeHealthJSON(w http.ResponseWriter, code int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
