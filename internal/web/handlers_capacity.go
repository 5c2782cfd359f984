package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/FormRelay/internal/core"
)

// CapacityResponse is the body of GET /api/capacity/{channel}/{date}.
type CapacityResponse struct {
	Channel   string            `json:"channel"`
	Date      string            `json:"date"`
	Requester string            `json:"requester,omitempty"`
	Slots     []core.SlotStatus `json:"slots"`
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	resp, err := s.capacityReport(r)
	if err != nil {
		s.respondError(w, r, err, capacityStatus(err))
		return
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// handleCapacityPage renders the same report as an HTML table.
func (s *Server) handleCapacityPage(w http.ResponseWriter, r *http.Request) {
	resp, err := s.capacityReport(r)
	if err != nil {
		s.respondError(w, r, err, capacityStatus(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := CapacityPage(resp).Render(r.Context(), w); err != nil {
		s.logRequestError(r, err, http.StatusOK, "render")
	}
}

func (s *Server) capacityReport(r *http.Request) (CapacityResponse, error) {
	channel := chi.URLParam(r, "channel")
	date := chi.URLParam(r, "date")
	requester := r.URL.Query().Get("requester")

	slots, err := s.service.CapacityReport(r.Context(), channel, date, requester)
	if err != nil {
		return CapacityResponse{}, err
	}
	return CapacityResponse{Channel: channel, Date: date, Requester: requester, Slots: slots}, nil
}

// capacityStatus is 400 for a bad date and 404 for an unknown channel.
func capacityStatus(err error) int {
	var ve *core.ValidationError
	if errors.As(err, &ve) && ve.Field == "date" {
		return http.StatusBadRequest
	}
	return statusFor(err)
}
