package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/flotilla-sh/flotilla/pkg/metrics"
	"github.com/flotilla-sh/flotilla/pkg/storage"
	"github.com/flotilla-sh/flotilla/pkg/swarm"
)

// HealthServer provides HTTP health check and metrics endpoints
type HealthServer struct {
	store  storage.Store
	swarm  swarm.Client
	mux    *http.ServeMux
	server *http.Server
}

// NewHealthServer creates a new health check HTTP server. Store and
// swarm client may be nil; the corresponding readiness checks then
// report not initialized.
func NewHealthServer(store storage.Store, swarmClient swarm.Client) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		store: store,
		swarm: swarmClient,
		mux:   mux,
	}

	// Register endpoints
	mux.HandleFunc("/healthz", hs.healthHandler)
	mux.HandleFunc("/readyz", hs.readyHandler)
	mux.Handle("/metrics", metrics.Handler())

	return hs
}

// Start starts the health check HTTP server and blocks until it exits
func (hs *HealthServer) Start(addr string) error {
	hs.server = &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return hs.server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (hs *HealthServer) Shutdown(ctx context.Context) error {
	if hs.server == nil {
		return nil
	}
	return hs.server.Shutdown(ctx)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements the /healthz endpoint
// This is a simple liveness check - returns 200 if the process is alive
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler implements the /readyz endpoint
// This checks if the sweep daemon is ready to do useful work
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	ready := true
	var message string

	// Check 1: Storage
	if hs.store != nil {
		// Attempt a simple read operation to verify storage
		if _, err := hs.store.ListNodes(); err != nil {
			checks["storage"] = fmt.Sprintf("error: %v", err)
			ready = false
			message = "Storage not accessible"
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not initialized"
		ready = false
		message = "Store not initialized"
	}

	// Check 2: Control plane
	if hs.swarm != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := hs.swarm.Ping(ctx); err != nil {
			checks["control_plane"] = fmt.Sprintf("error: %v", err)
			ready = false
			if message == "" {
				message = "Control plane unreachable"
			}
		} else {
			checks["control_plane"] = "ok"
		}
	} else {
		checks["control_plane"] = "not initialized"
		ready = false
		if message == "" {
			message = "Control plane client not initialized"
		}
	}

	// Prepare response
	status := "ready"
	statusCode := http.StatusOK

	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler returns the HTTP handler for embedding in other servers
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

// Version is set via ldflags during build
var Version = "dev"
