// Package health provides Kubernetes-style liveness and readiness probes.
//
// Checks are evaluated on demand when a probe endpoint is hit, each under
// its own timeout. Readiness additionally gates on an explicit ready flag
// flipped by the application during startup and shutdown.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc reports the health of one component: nil means healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New creates a Health instance. The service starts not ready; call
// SetReady(true) once initialization has finished.
func New() *Health {
	return &Health{}
}

// SetReady flips the readiness gate. Flip it to false before shutdown so
// load balancers drain the instance.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// AddLivenessCheck registers a liveness check (is the process functional).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, check{name: name, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a readiness check (can the process serve).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, check{name: name, timeout: timeout, fn: fn})
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := h.liveness
	h.mu.RUnlock()

	serveProbe(w, r, runChecks(r.Context(), checks))
}

// ReadyEndpoint serves the readiness probe. It fails while the ready flag is
// down regardless of individual check results.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := h.readiness
	h.mu.RUnlock()

	results := runChecks(r.Context(), checks)
	if !h.ready.Load() {
		results["ready"] = "service not ready"
	}
	serveProbe(w, r, results)
}

// runChecks evaluates checks and returns a map of name to failure message.
// Healthy checks are omitted.
func runChecks(ctx context.Context, checks []check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := c.fn(checkCtx)
		cancel()
		if err != nil {
			failures[c.name] = err.Error()
		}
	}
	return failures
}

func serveProbe(w http.ResponseWriter, _ *http.Request, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	status := http.StatusOK
	body := map[string]any{"status": "ok"}
	if len(failures) > 0 {
		status = http.StatusServiceUnavailable
		body = map[string]any{"status": "unavailable", "failures": failures}
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
