package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/refurbd/renovation-planner/internal/auth"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/internal/store/model"
)

type analyzeRequest struct {
	BudgetConstraint *float64 `json:"budget_constraint,omitempty"`
}

type editRequest struct {
	EditInstructions string `json:"edit_instructions"`
}

type jobAccepted struct {
	Message string `json:"message"`
	JobID   int64  `json:"job_id"`
	Status  string `json:"status"`
}

// AnalyzeProject answers POST /api/v1/projects/{id}/analyze: it
// records a queued analysis job, hands it to the runner and returns
// 202 immediately.
func (h *ServiceHandler) AnalyzeProject(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	projectID, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	project, err := h.store.Project().Get(r.Context(), projectID)
	if err != nil || project.UserID != user.ID {
		writeError(w, r, service.NewErrProjectNotFound(projectID))
		return
	}

	if ok, err := h.checkUsageLimit(r, user.ID); err != nil {
		writeError(w, r, err)
		return
	} else if !ok {
		writeJSON(w, http.StatusPaymentRequired, errorResponse{
			Message: "Monthly analysis limit reached. Please upgrade your plan.",
		})
		return
	}

	var req analyzeRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	params, _ := json.Marshal(req)

	job, err := h.jobs.CreateJob(r.Context(), service.JobCreateForm{
		UserID:    user.ID,
		ProjectID: &projectID,
		Type:      model.JobTypeAnalysis,
		StepTotal: 5,
		Params:    params,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.runner.Dispatch(job.ID)
	writeJSON(w, http.StatusAccepted, jobAccepted{
		Message: "Analysis started",
		JobID:   job.ID,
		Status:  string(job.Status),
	})
}

// RenderProject answers POST /api/v1/projects/{id}/render: a new
// rendering for an already-analyzed project.
func (h *ServiceHandler) RenderProject(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	projectID, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	project, err := h.store.Project().Get(r.Context(), projectID)
	if err != nil || project.UserID != user.ID {
		writeError(w, r, service.NewErrProjectNotFound(projectID))
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), service.JobCreateForm{
		UserID:    user.ID,
		ProjectID: &projectID,
		Type:      model.JobTypeRendering,
		StepTotal: 3,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.runner.Dispatch(job.ID)
	writeJSON(w, http.StatusAccepted, jobAccepted{
		Message: "Rendering started",
		JobID:   job.ID,
		Status:  string(job.Status),
	})
}

// EditRendering answers POST /api/v1/renderings/{id}/edit.
func (h *ServiceHandler) EditRendering(w http.ResponseWriter, r *http.Request) {
	user := auth.MustHaveUser(r.Context())
	renderingID, err := pathID(r)
	if err != nil {
		writeError(w, r, service.NewErrInvalidFilter("id", r.URL.Path))
		return
	}

	rendering, err := h.store.Rendering().Get(r.Context(), renderingID)
	if err != nil || rendering.UserID != user.ID {
		writeError(w, r, service.NewErrRenderingNotFound(renderingID))
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EditInstructions == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "edit_instructions is required"})
		return
	}
	params, _ := json.Marshal(req)

	job, err := h.jobs.CreateJob(r.Context(), service.JobCreateForm{
		UserID:      user.ID,
		ProjectID:   &rendering.ProjectID,
		RenderingID: &renderingID,
		Type:        model.JobTypeEditing,
		StepTotal:   3,
		Params:      params,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.runner.Dispatch(job.ID)
	writeJSON(w, http.StatusAccepted, jobAccepted{
		Message: "Edit started",
		JobID:   job.ID,
		Status:  string(job.Status),
	})
}

// checkUsageLimit enforces the monthly analysis quota for the metered
// tiers. Pro and enterprise are unlimited; counters older than 30 days
// count as reset.
func (h *ServiceHandler) checkUsageLimit(r *http.Request, userID int64) (bool, error) {
	account, err := h.store.User().Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, service.NewErrResourceNotFound(userID, "user")
		}
		return false, err
	}

	switch account.SubscriptionTier {
	case model.TierPro, model.TierEnterprise:
		return true, nil
	}

	limit := h.cfg.Service.Limits.FreeTierAnalysesPerMonth
	if account.SubscriptionTier == model.TierBasic {
		limit = h.cfg.Service.Limits.BasicTierAnalysesPerMonth
	}

	if account.LastAnalysisReset != nil && time.Since(*account.LastAnalysisReset) > 30*24*time.Hour {
		return true, nil
	}
	return account.AnalysesUsedThisMonth < limit, nil
}
