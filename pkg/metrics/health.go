package metrics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the overall health state.
type HealthStatus struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks,omitempty"`
}

// Check represents an individual health check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

// HealthChecker runs readiness probes against registered dependencies.
type HealthChecker struct {
	mu      sync.RWMutex
	probes  map[string]Probe
	timeout time.Duration
}

// NewHealthChecker creates a checker whose probes each get timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{probes: make(map[string]Probe), timeout: timeout}
}

// Register adds or replaces a named probe.
func (h *HealthChecker) Register(name string, p Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = p
}

// Liveness checks if the process is alive.
func (h *HealthChecker) Liveness() HealthStatus {
	return HealthStatus{OK: true}
}

// Readiness runs every probe and reports them in name order.
func (h *HealthChecker) Readiness(ctx context.Context) HealthStatus {
	h.mu.RLock()
	names := make([]string, 0, len(h.probes))
	probes := make(map[string]Probe, len(h.probes))
	for name, p := range h.probes {
		names = append(names, name)
		probes[name] = p
	}
	h.mu.RUnlock()
	sort.Strings(names)

	status := HealthStatus{OK: true}
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, h.timeout)
		err := probes[name](pctx)
		cancel()

		if err != nil {
			status.OK = false
			status.Checks = append(status.Checks, Check{Name: name, Status: "error", Error: err.Error()})
			continue
		}
		status.Checks = append(status.Checks, Check{Name: name, Status: "ok"})
	}
	return status
}
