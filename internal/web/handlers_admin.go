package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/FormRelay/internal/admin"
	"github.com/JonMunkholm/FormRelay/internal/core"
)

// maxDirectoryBytes caps a directory import body.
const maxDirectoryBytes = 32 << 20

// handleDirectoryCounts returns the number of stored references per board.
func (s *Server) handleDirectoryCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.importer.Counts(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]any{"boards": counts})
}

// handleDirectoryImport replaces the listed boards and upserts channels
// and subscribers.
func (s *Server) handleDirectoryImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDirectoryBytes)

	var d admin.Directory
	if err := render.DecodeJSON(r.Body, &d); err != nil {
		var maxBytes *http.MaxBytesError
		if !errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: %w", errInvalidPayload, err)
		}
		s.respondError(w, r, err, statusFor(err))
		return
	}

	sum, err := s.importer.Import(r.Context(), d)
	if errors.Is(err, admin.ErrInvalidDirectory) {
		// The row-level details are the useful part for an operator.
		msg := core.MapError(err)
		s.logRequestError(r, err, http.StatusBadRequest, msg.Code)
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Error:   err.Error(),
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
		return
	}
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, r, http.StatusOK, sum)
}
