package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Probe reports whether a component can currently serve requests
type Probe func(ctx context.Context) error

// HealthStatus represents the health of the process and its components
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy", "unhealthy", "ready", "not_ready"
	Timestamp  time.Time         `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
	Message    string            `json:"message,omitempty"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
}

type component struct {
	probe    Probe
	critical bool
}

// HealthChecker runs component probes for the health endpoints
type HealthChecker struct {
	mu         sync.RWMutex
	components map[string]component
	startTime  time.Time
	version    string
	timeout    time.Duration
}

// NewHealthChecker creates a checker with no components
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		components: make(map[string]component),
		startTime:  time.Now(),
		version:    version,
		timeout:    2 * time.Second,
	}
}

// Register adds a probe. Critical components gate readiness.
func (h *HealthChecker) Register(name string, critical bool, probe Probe) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = component{probe: probe, critical: critical}
}

func (h *HealthChecker) run(ctx context.Context, criticalOnly bool) (map[string]error, []string) {
	h.mu.RLock()
	names := make([]string, 0, len(h.components))
	probes := make(map[string]Probe, len(h.components))
	for name, c := range h.components {
		if criticalOnly && !c.critical {
			continue
		}
		names = append(names, name)
		probes[name] = c.probe
	}
	timeout := h.timeout
	h.mu.RUnlock()

	sort.Strings(names)
	results := make(map[string]error, len(names))
	for _, name := range names {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		results[name] = probes[name](pctx)
		cancel()
	}
	return results, names
}

// Health probes every component
func (h *HealthChecker) Health(ctx context.Context) HealthStatus {
	results, names := h.run(ctx, false)

	status := "healthy"
	components := make(map[string]string, len(names))
	for _, name := range names {
		if err := results[name]; err != nil {
			status = "unhealthy"
			components[name] = "unhealthy: " + err.Error()
		} else {
			components[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

// Readiness probes only the critical components
func (h *HealthChecker) Readiness(ctx context.Context) HealthStatus {
	results, names := h.run(ctx, true)

	status := "ready"
	message := ""
	components := make(map[string]string, len(names))
	if len(names) == 0 {
		status = "not_ready"
		message = "no components registered"
	}
	for _, name := range names {
		if err := results[name]; err != nil {
			status = "not_ready"
			message = "waiting for " + name
			components[name] = "not ready: " + err.Error()
		} else {
			components[name] = "ready"
		}
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		Components: components,
		Message:    message,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
	}
}

// HealthHandler returns an HTTP handler for the /health endpoint
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := h.Health(r.Context())

		statusCode := http.StatusOK
		if health.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, health)
	}
}

// ReadyHandler returns an HTTP handler for the /ready endpoint
func (h *HealthChecker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		readiness := h.Readiness(r.Context())

		statusCode := http.StatusOK
		if readiness.Status != "ready" {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, readiness)
	}
}

// LivenessHandler always returns 200 while the process is running
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "alive",
			"uptime": time.Since(h.startTime).String(),
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
