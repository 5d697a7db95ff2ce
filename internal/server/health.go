// Package server provides the operational HTTP surface of long-running
// commands: health probes, a metrics mount point and graceful shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/linkscope/linkscope/internal/graph"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a single health check.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the response from health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker is a function that performs a health check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves probes plus any mounted handlers.
type HealthServer struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	mounts  map[string]http.Handler
	version string
	ready   bool
}

// NewHealthServer creates a health server reporting version.
func NewHealthServer(version string) *HealthServer {
	return &HealthServer{
		checks:  make(map[string]HealthChecker),
		mounts:  make(map[string]http.Handler),
		version: version,
	}
}

// RegisterCheck adds a health check.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// Mount serves h at path alongside the probes, e.g. "/metrics".
func (s *HealthServer) Mount(path string, h http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mounts[path] = h
}

// SetReady marks the server as ready to accept traffic.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Handler returns an http.Handler for the probes and mounted handlers.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/livez", s.handleLive)

	s.mu.RLock()
	for path, h := range s.mounts {
		mux.Handle(path, h)
	}
	s.mu.RUnlock()
	return mux
}

// NewHTTPServer wraps Handler in an http.Server. An empty addr listens on
// :9464.
func (s *HealthServer) NewHTTPServer(addr string) *http.Server {
	if addr == "" {
		addr = ":9464"
	}
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	version := s.version
	s.mu.RUnlock()
	sort.Strings(names)

	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    make([]HealthCheck, 0, len(checks)),
	}

	for _, name := range names {
		check := checks[name](ctx)
		check.Name = name
		response.Checks = append(response.Checks, check)

		switch {
		case check.Status == HealthStatusUnhealthy:
			response.Status = HealthStatusUnhealthy
		case check.Status == HealthStatusDegraded && response.Status == HealthStatusHealthy:
			response.Status = HealthStatusDegraded
		}
	}

	statusCode := http.StatusOK
	if response.Status == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, response)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	response := HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()}
	if !ready {
		response.Status = HealthStatusUnhealthy
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HealthServer) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// SnapshotChecker reports unhealthy until a snapshot is installed, and
// degraded when the last reload attempt failed.
func SnapshotChecker(snapshot func() *graph.Snapshot, lastErr func() error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		snap := snapshot()
		if snap == nil {
			return HealthCheck{Status: HealthStatusUnhealthy, Message: "no snapshot loaded"}
		}
		details := map[string]string{
			"nodes": fmt.Sprint(len(snap.Nodes())),
			"edges": fmt.Sprint(len(snap.Edges())),
		}
		if lastErr != nil {
			if err := lastErr(); err != nil {
				return HealthCheck{
					Status:  HealthStatusDegraded,
					Message: "serving previous snapshot, last reload failed: " + err.Error(),
					Details: details,
				}
			}
		}
		return HealthCheck{Status: HealthStatusHealthy, Message: "snapshot loaded", Details: details}
	}
}
