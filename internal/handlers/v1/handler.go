// Package v1 exposes the HTTP surface: admin job queries and
// mutations, the SSE event stream, pipeline entry points and the
// per-project websocket feed.
package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/refurbd/renovation-planner/internal/auth"
	"github.com/refurbd/renovation-planner/internal/config"
	"github.com/refurbd/renovation-planner/internal/events"
	"github.com/refurbd/renovation-planner/internal/pipeline"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/pkg/requestid"
)

type ServiceHandler struct {
	cfg           *config.Config
	jobs          *service.JobService
	store         store.Store
	publisher     *events.Publisher
	runner        *pipeline.Runner
	authenticator auth.Authenticator
}

func NewServiceHandler(
	cfg *config.Config,
	jobs *service.JobService,
	s store.Store,
	publisher *events.Publisher,
	runner *pipeline.Runner,
	authenticator auth.Authenticator,
) *ServiceHandler {
	return &ServiceHandler{
		cfg:           cfg,
		jobs:          jobs,
		store:         s,
		publisher:     publisher,
		runner:        runner,
		authenticator: authenticator,
	}
}

// Routes mounts the authenticated v1 endpoints. The websocket and
// health endpoints are wired separately by the server since they skip
// the header authenticator.
func (h *ServiceHandler) Routes(router chi.Router) {
	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/admin/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Get("/events", h.StreamJobEvents)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetJob)
				r.Delete("/", h.DeleteJob)
				r.Post("/pause", h.PauseJob)
				r.Post("/resume", h.ResumeJob)
				r.Post("/cancel", h.CancelJob)
				r.Post("/retry", h.RetryJob)
			})
		})
		r.Post("/projects/{id}/analyze", h.AnalyzeProject)
		r.Post("/projects/{id}/render", h.RenderProject)
		r.Post("/renderings/{id}/edit", h.EditRendering)
	})
}

func (h *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type errorResponse struct {
	Message   string  `json:"message"`
	RequestID *string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, statusForError(err), errorResponse{
		Message:   err.Error(),
		RequestID: requestid.FromContextPtr(r.Context()),
	})
}

func statusForError(err error) int {
	var notFound *service.ErrResourceNotFound
	var invalidTransition *service.ErrInvalidTransition
	var invalidFilter *service.ErrInvalidFilter

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalidTransition), errors.As(err, &invalidFilter):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
