package v1

import (
	"context"
	"net/http"
	"strconv"

	"github.com/refurbd/renovation-planner/internal/auth"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/internal/store/model"
)

// ListJobs answers GET /api/v1/admin/jobs with cursor pagination,
// newest first.
func (h *ServiceHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())

	filter := service.JobFilter{
		UserID: user.ID,
		Status: r.URL.Query().Get("status"),
		Type:   r.URL.Query().Get("type"),
		Search: r.URL.Query().Get("q"),
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, service.NewErrInvalidFilter("limit", v))
			return
		}
		filter.Limit = limit
	}
	if v := r.URL.Query().Get("cursor"); v != "" {
		cursor, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, service.NewErrInvalidFilter("cursor", v))
			return
		}
		filter.Cursor = &cursor
	}

	list, err := h.jobs.ListJobs(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (h *ServiceHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	job, err := h.jobs.GetJob(r.Context(), id, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job.ToApiResource())
}

func (h *ServiceHandler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	if err := h.jobs.DeleteJob(r.Context(), id, user.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ServiceHandler) PauseJob(w http.ResponseWriter, r *http.Request) {
	h.mutateJob(w, r, h.jobs.PauseJob)
}

// ResumeJob puts a paused job back in the queue and hands it to the
// runner again; queued rows have no other consumer.
func (h *ServiceHandler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	job, err := h.jobs.ResumeJob(r.Context(), id, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.runner.Dispatch(job.ID)
	writeJSON(w, http.StatusOK, job.ToApiResource())
}

func (h *ServiceHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.mutateJob(w, r, h.jobs.CancelJob)
}

// RetryJob reopens a failed or cancelled job and hands it straight
// back to the runner.
func (h *ServiceHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	job, err := h.jobs.RetryJob(r.Context(), id, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.runner.Dispatch(job.ID)
	writeJSON(w, http.StatusOK, job.ToApiResource())
}

func (h *ServiceHandler) mutateJob(
	w http.ResponseWriter,
	r *http.Request,
	mutate func(ctx context.Context, id, userID int64) (*model.Job, error),
) {
	user := auth.MustHaveUser(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	job, err := mutate(r.Context(), id, user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job.ToApiResource())
}
