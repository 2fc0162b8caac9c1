package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
)

// Server exposes health, metrics and the latest cycle report for monitoring.
type Server struct {
	mu         sync.RWMutex
	lastReport *domain.CycleReport
	startedAt  time.Time
	registry   *prometheus.Registry
}

// NewServer creates the monitoring server backed by the given prometheus
// registry.
func NewServer(registry *prometheus.Registry) *Server {
	return &Server{startedAt: time.Now(), registry: registry}
}

// SetLastReport publishes the most recent cycle report.
func (s *Server) SetLastReport(report *domain.CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = report
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/cycles/latest", s.handleLatestCycle).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// ListenAndServe starts the server; it blocks until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	log.Info().Str("addr", addr).Msg("monitoring server listening")
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	var lastCycle time.Time
	if s.lastReport != nil {
		lastCycle = s.lastReport.StartedAt
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"uptime":     time.Since(s.startedAt).String(),
		"last_cycle": lastCycle,
	})
}

func (s *Server) handleLatestCycle(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	report := s.lastReport
	s.mu.RUnlock()

	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no cycle completed yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
