package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/FormRelay/internal/core"
	"github.com/JonMunkholm/FormRelay/internal/metrics"
)

var errInvalidPayload = errors.New("invalid payload")

// submissionRequest is the body of POST /api/submissions.
type submissionRequest struct {
	ID        string         `json:"id"`
	FormTitle string         `json:"form_title"`
	CreatedAt *time.Time     `json:"created_at"`
	Fields    map[string]any `json:"fields"`
}

// WarningResponse is one non-fatal failure of a submission.
type WarningResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// SubmissionResponse is the body of a processed or previewed submission.
type SubmissionResponse struct {
	*core.Result
	Warnings []WarningResponse `json:"warnings"`
}

// failedSubmissionResponse carries the partial result of a failed run.
type failedSubmissionResponse struct {
	ErrorResponse
	Result *SubmissionResponse `json:"result,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.runSubmission(w, r, false)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.runSubmission(w, r, true)
}

func (s *Server) runSubmission(w http.ResponseWriter, r *http.Request, preview bool) {
	sub, err := s.decodeSubmission(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var mapping *core.MappingSet
	if set, err := s.catalog.Lookup(sub.FormTitle); err == nil {
		mapping = &set
	} else if !errors.Is(err, core.ErrMappingNotFound) {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	ctx := withRequestMeta(r.Context(), r)
	if s.cfg.Submission.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Submission.Timeout)
		defer cancel()
	}

	var res *core.Result
	if preview {
		res, err = s.service.Preview(ctx, sub, mapping)
	} else {
		err = s.service.Limiter().Do(ctx, func(ctx context.Context) error {
			var runErr error
			res, runErr = s.service.ProcessSubmission(ctx, sub, mapping)
			return runErr
		})
		if errors.Is(err, core.ErrTooManySubmissions) {
			metrics.RecordSubmission("rejected", 0)
			w.Header().Set("Retry-After", "5")
		}
	}

	if err != nil {
		status := statusFor(err)
		if res == nil {
			s.respondError(w, r, err, status)
			return
		}
		s.respondFailedSubmission(w, r, err, status, res)
		return
	}

	status := http.StatusCreated
	if preview {
		status = http.StatusOK
	}
	respondJSON(w, r, status, newSubmissionResponse(res))
}

// decodeSubmission reads and validates the request body.
func (s *Server) decodeSubmission(w http.ResponseWriter, r *http.Request) (core.Submission, error) {
	if limit := s.cfg.Server.MaxBodyBytes; limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	var req submissionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return core.Submission{}, err
		}
		return core.Submission{}, fmt.Errorf("%w: %w", errInvalidPayload, err)
	}
	if req.Fields == nil {
		return core.Submission{}, fmt.Errorf("%w: fields must be a JSON object", errInvalidPayload)
	}

	sub := core.Submission{
		ID:        req.ID,
		FormTitle: req.FormTitle,
		Fields:    core.NormalizeFields(req.Fields),
	}
	if req.CreatedAt != nil {
		sub.CreatedAt = *req.CreatedAt
	}
	return sub, nil
}

func (s *Server) respondFailedSubmission(w http.ResponseWriter, r *http.Request, err error, status int, res *core.Result) {
	userMsg := core.MapError(err)
	s.logRequestError(r, err, status, userMsg.Code)
	respondJSON(w, r, status, failedSubmissionResponse{
		ErrorResponse: ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		},
		Result: newSubmissionResponse(res),
	})
}

// newSubmissionResponse maps warnings and capacity deficits to user codes.
func newSubmissionResponse(res *core.Result) *SubmissionResponse {
	out := &SubmissionResponse{Result: res, Warnings: []WarningResponse{}}
	for _, err := range res.Warnings.Errors() {
		out.Warnings = append(out.Warnings, WarningResponse{Message: err.Error(), Code: core.MapError(err).Code})
	}
	for _, d := range res.Deficits {
		out.Warnings = append(out.Warnings, WarningResponse{Message: d.Error(), Code: core.MapError(d).Code})
	}
	return out
}
