package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// HealthServer exposes the monitor over HTTP: /health for liveness probes
// and /status for a JSON snapshot of the run counters.
type HealthServer struct {
	monitor *Monitor
	server  *http.Server
}

func NewHealthServer(monitor *Monitor, port string) *HealthServer {
	if port == "" {
		port = "8080"
	}

	h := &HealthServer{monitor: monitor}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/status", h.statusHandler)
	h.server = &http.Server{Addr: ":" + port, Handler: mux}

	return h
}

func (h *HealthServer) Start() {
	log.Printf("Health check server starting on %s", h.server.Addr)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health server error: %v", err)
		}
	}()
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.monitor.Status()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
