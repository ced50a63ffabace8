package api

import (
	"context"
	"net/http"
	"time"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	Documents   int    `json:"documents"`
	VectorIndex string `json:"vector_index,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// HealthChecker is implemented by external dependencies worth probing.
type HealthChecker interface {
	Health(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Documents: len(s.svc.Documents()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.health.Health(ctx); err != nil {
			s.logger.Warn("Health check failed", "error", err)
			response.Status = "unhealthy"
			response.VectorIndex = "disconnected"
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		response.VectorIndex = "connected"
	}

	writeJSON(w, http.StatusOK, response)
}
