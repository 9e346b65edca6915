package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/mlender/goalplan/internal/ics"
	"github.com/mlender/goalplan/internal/models"
	"github.com/mlender/goalplan/internal/service"
)

// Server provides the HTTP API of the scheduling engine.
type Server struct {
	svc    *service.Service
	logger *logrus.Logger
	mux    *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/users/{userID}/series", s.handleCreateSeries)
	s.mux.HandleFunc("POST /api/users/{userID}/occurrences", s.handleMutateOccurrence)
	s.mux.HandleFunc("PUT /api/users/{userID}/instances/{instanceID}/complete", s.handleToggleComplete)
	s.mux.HandleFunc("GET /api/users/{userID}/schedule/{date}", s.handleDaySchedule)
	s.mux.HandleFunc("GET /api/users/{userID}/series-instances", s.handleSeriesInstances)
	s.mux.HandleFunc("GET /api/users/{userID}/schedule.ics", s.handleExportICS)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// respondDomainError maps the error taxonomy onto HTTP statuses: validation
// 400, not-found 404, missing scope 409, partial write 500 with the per-date
// breakdown attached.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var (
		ve *models.ValidationError
		nf *models.NotFoundError
		sr *models.ScopeRequiredError
		pw *models.PartialWriteError
	)
	switch {
	case errors.As(err, &ve):
		s.respondError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &nf):
		s.respondError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &sr):
		s.respondJSON(w, http.StatusConflict, map[string]any{
			"error":         sr.Error(),
			"scopeRequired": true,
		})
	case errors.As(err, &pw):
		s.respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":       "some dates failed to write",
			"failedDates": pw.Breakdown(),
		})
	default:
		s.logger.WithError(err).Error("request failed")
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// requireUserID reads the {userID} path value. It writes an error response
// and returns "" when the value is absent.
func (s *Server) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.PathValue("userID")
	if userID == "" {
		s.respondError(w, http.StatusBadRequest, "userID is required")
		return "", false
	}
	return userID, true
}

// ---------------------------------------------------------------------------
// Series creation
// ---------------------------------------------------------------------------

func (s *Server) handleCreateSeries(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	var req service.CreateSeriesParams
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	summary, err := s.svc.CreateSeries(r.Context(), userID, req)
	if err != nil {
		var pw *models.PartialWriteError
		if errors.As(err, &pw) && summary != nil {
			// Committed dates are kept; report both halves.
			s.respondJSON(w, http.StatusInternalServerError, map[string]any{
				"error":       "some dates failed to write",
				"summary":     summary,
				"failedDates": pw.Breakdown(),
			})
			return
		}
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, summary)
}

// ---------------------------------------------------------------------------
// Occurrence mutation
// ---------------------------------------------------------------------------

type mutateOccurrenceRequest struct {
	InstanceID string               `json:"instanceId"`
	SeriesID   string               `json:"seriesId"`
	Action     string               `json:"action"` // edit | delete
	Scope      string               `json:"scope"`  // single | all | omitted
	Changes    *models.BlockChanges `json:"changes,omitempty"`
}

func (s *Server) handleMutateOccurrence(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	var req mutateOccurrenceRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if req.InstanceID == "" {
		s.respondError(w, http.StatusBadRequest, "instanceId is required")
		return
	}

	action, err := service.ParseAction(req.Action)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	scope, err := service.ParseScope(req.Scope)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	result, err := s.svc.MutateOccurrence(r.Context(), userID, service.MutateParams{
		InstanceID: req.InstanceID,
		SeriesID:   req.SeriesID,
		Action:     action,
		Scope:      scope,
		Changes:    req.Changes,
	})
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleToggleComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}
	instanceID := r.PathValue("instanceID")
	if instanceID == "" {
		s.respondError(w, http.StatusBadRequest, "instanceID is required")
		return
	}

	inst, err := s.svc.ToggleComplete(r.Context(), userID, instanceID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, inst)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (s *Server) handleDaySchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	doc, err := s.svc.DaySchedule(r.Context(), userID, r.PathValue("date"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSeriesInstances(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	instances, err := s.svc.SeriesInstances(r.Context(), userID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, instances)
}

func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUserID(w, r)
	if !ok {
		return
	}

	series, err := s.svc.Series.ListByUser(r.Context(), userID)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	cal, err := ics.Calendar(series)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	fmt.Fprint(w, cal)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
