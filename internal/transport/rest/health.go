package rest

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/heartmarshall/cypress-connect/internal/service/aggregator"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type readiness interface {
	IsReady() bool
	Errors() map[aggregator.Source]error
}

type component struct {
	name string
	p    pinger
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	version    string
	catalog    readiness
	components []component
}

// NewHealthHandler creates a HealthHandler. catalog may be nil.
func NewHealthHandler(version string, catalog readiness) *HealthHandler {
	return &HealthHandler{version: version, catalog: catalog}
}

// AddComponent registers a dependency pinged by /ready and /health.
func (h *HealthHandler) AddComponent(name string, p pinger) *HealthHandler {
	h.components = append(h.components, component{name: name, p: p})
	return h
}

// HealthResponse is the JSON response for /health and /ready.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Live reports that the process is up. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready reports readiness: 200 once the catalog has loaded with no
// failing source and every component answers, 503 otherwise.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok := h.catalog == nil || h.catalogStatus().Status == "ok"
	for _, c := range h.components {
		if !ok {
			break
		}
		ok = c.p.Ping(ctx) == nil
	}

	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "down",
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Health is the full health check. Pings every component with latency
// measurement and includes version.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	components := make(map[string]CompStatus, len(h.components)+1)
	overallStatus := "ok"

	for _, c := range h.components {
		start := time.Now()
		err := c.p.Ping(ctx)
		latency := time.Since(start)

		if err != nil {
			components[c.name] = CompStatus{Status: "down"}
			overallStatus = "down"
			continue
		}
		components[c.name] = CompStatus{Status: "ok", Latency: latency.String()}
	}

	if h.catalog != nil {
		cs := h.catalogStatus()
		components["catalog"] = cs
		if cs.Status != "ok" {
			overallStatus = "down"
		}
	}

	status := http.StatusOK
	if overallStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status:     overallStatus,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now(),
	})
}

// catalogStatus is "loading" until every catalog source has emitted and
// "degraded" while any source is failing.
func (h *HealthHandler) catalogStatus() CompStatus {
	if !h.catalog.IsReady() {
		return CompStatus{Status: "loading"}
	}
	errs := h.catalog.Errors()
	if len(errs) == 0 {
		return CompStatus{Status: "ok"}
	}

	failing := make([]string, 0, len(errs))
	for src, err := range errs {
		failing = append(failing, string(src)+": "+err.Error())
	}
	slices.Sort(failing)
	return CompStatus{Status: "degraded", Error: strings.Join(failing, "; ")}
}
