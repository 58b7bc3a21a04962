package api

import (
	"encoding/json"
	"net/http"
	"time"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message":   "Hello, World!",
		"timestamp": time.Now().Unix(),
		"status":    "success",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().Unix(),
		"version":        Version,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	})
}

// handleReady degrades when the persistence gateway is unreachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(r.Context()); err != nil {
		s.log.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "degraded",
			"error":     "persistence gateway unreachable",
			"timestamp": time.Now().Unix(),
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "alive",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "operational",
		"version":        Version,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
		"timestamp":      time.Now().Unix(),
		"pipeline":       s.orchestrator.Stats.Snapshot(),
		"translation": map[string]any{
			"model": s.translator.Model(),
			"stats": s.translator.Stats.Snapshot(),
		},
	})
}
