package web

// handlers_common.go holds the operational endpoints and shared response
// helpers.

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// healthTimeout bounds the dependency ping of /api/health.
const healthTimeout = 3 * time.Second

// HealthResponse is the body of /api/health.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// handleHealth reports 200 when every dependency answers, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			respondJSON(w, r, http.StatusServiceUnavailable, resp)
			return
		}
		resp.Database = "ok"
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// handleLimiterStatus returns the state of the submission limiter.
func (s *Server) handleLimiterStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, s.service.Limiter().Status())
}

// handleListForms returns the titles of every mapped form.
func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	titles := s.catalog.Titles()
	if titles == nil {
		titles = []string{}
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"forms": titles})
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
