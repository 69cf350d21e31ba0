package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/campusmod/modwatch/internal/scheduler"
	"github.com/campusmod/modwatch/pkg/analytics"
	"github.com/campusmod/modwatch/pkg/content"
	"github.com/campusmod/modwatch/pkg/incident"
	"github.com/campusmod/modwatch/pkg/notify"
)

// Server provides the HTTP API: incident lifecycle, analytics reads,
// live notifications, and manual job triggers.
type Server struct {
	incidents *incident.Service
	aggregate *analytics.Aggregator
	center    *notify.Center
	fetchJob  *scheduler.Job
	uploadJob *scheduler.Job
	port      int
}

// New creates a new HTTP server. The job references may be nil when no
// scheduler is running; the trigger endpoints then report 503.
func New(incidents *incident.Service, aggregate *analytics.Aggregator, center *notify.Center, fetchJob, uploadJob *scheduler.Job, port int) *Server {
	if port == 0 {
		port = 8080
	}
	return &Server{
		incidents: incidents,
		aggregate: aggregate,
		center:    center,
		fetchJob:  fetchJob,
		uploadJob: uploadJob,
		port:      port,
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("modwatch server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler returns the routed handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /api/v1/incidents", s.handleListIncidents)
	mux.HandleFunc("POST /api/v1/incidents", s.handleCreateIncident)
	mux.HandleFunc("GET /api/v1/incidents/count", s.handleCountIncidents)
	mux.HandleFunc("GET /api/v1/incidents/{id}", s.handleGetIncident)
	mux.HandleFunc("PATCH /api/v1/incidents/{id}", s.handleUpdateIncident)
	mux.HandleFunc("DELETE /api/v1/incidents/{id}", s.handleDeleteIncident)
	mux.HandleFunc("GET /api/v1/incidents/{id}/alerts", s.handleListAlerts)
	mux.HandleFunc("POST /api/v1/incidents/{id}/alerts", s.handleCreateAlert)

	mux.HandleFunc("GET /api/v1/analytics/top-authors", s.handleTopAuthors)
	mux.HandleFunc("GET /api/v1/analytics/top-schools", s.handleTopSchools)
	mux.HandleFunc("GET /api/v1/analytics/by-day", s.handleByDay)

	mux.HandleFunc("GET /api/v1/notifications", s.handleNotifications)
	mux.HandleFunc("POST /api/v1/notifications/{id}/read", s.handleMarkRead)

	mux.HandleFunc("POST /api/v1/jobs/fetch", s.triggerJob(s.fetchJob))
	mux.HandleFunc("POST /api/v1/jobs/upload", s.triggerJob(s.uploadJob))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	opts := incident.ListOpts{Limit: 100}
	q := r.URL.Query()
	if v := q.Get("severity"); v != "" {
		opts.Severity = incident.Severity(v)
	}
	if v := q.Get("status"); v != "" {
		opts.Status = incident.Status(v)
	}
	if v := q.Get("author"); v != "" {
		opts.AuthorID = v
	}

	incidents, err := s.incidents.List(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  incidents,
		"count": len(incidents),
	})
}

type createIncidentRequest struct {
	ID          string `json:"incident_id"`
	ContentID   string `json:"content_id"`
	ContentType string `json:"content_type"`
	AuthorID    string `json:"author_id"`
	Severity    string `json:"severity_level"`
	Status      string `json:"status"`
}

func (s *Server) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var req createIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	status := incident.Status(req.Status)
	if req.Status == "" {
		status = incident.StatusPending
	}

	inc, err := s.incidents.Create(r.Context(), incident.Incident{
		ID:          req.ID,
		ContentID:   req.ContentID,
		ContentType: content.Type(req.ContentType),
		AuthorID:    req.AuthorID,
		Severity:    incident.Severity(req.Severity),
		Status:      status,
		Timestamp:   time.Now().UTC(),
	}, incident.Manual)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, inc)
}

func (s *Server) handleCountIncidents(w http.ResponseWriter, r *http.Request) {
	n, err := s.incidents.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	inc, err := s.incidents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (s *Server) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	var req incident.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	inc, err := s.incidents.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inc)
}

func (s *Server) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	if err := s.incidents.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.incidents.Alerts(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  alerts,
		"count": len(alerts),
	})
}

type createAlertRequest struct {
	AdminID string `json:"admin_id"`
	Status  string `json:"alert_status"`
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	alert, err := s.incidents.AddAlert(r.Context(), incident.Alert{
		IncidentID: r.PathValue("id"),
		AdminID:    req.AdminID,
		Status:     incident.AlertStatus(req.Status),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleTopAuthors(w http.ResponseWriter, r *http.Request) {
	rows, err := s.aggregate.TopAuthors(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleTopSchools(w http.ResponseWriter, r *http.Request) {
	rows, err := s.aggregate.TopSchools(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleByDay(w http.ResponseWriter, r *http.Request) {
	rows, err := s.aggregate.ByDay(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rows})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	entries := s.center.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  entries,
		"count": len(entries),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.center.MarkRead(id) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no live notification for " + id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (s *Server) triggerJob(job *scheduler.Job) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if job == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not running"})
			return
		}
		// Detached from the request context: the run outlives the
		// response.
		if !job.Trigger(context.Background()) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": job.Name() + " already in flight"})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": job.Name() + " started"})
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, incident.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, incident.ErrDuplicateID):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, incident.ErrAuthorNotFound),
		errors.Is(err, incident.ErrAuthorImmutable),
		errors.Is(err, incident.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
