package service

import (
	"context"
	"errors"
	"fmt"

	api "github.com/refurbd/renovation-planner/api/v1"
	"github.com/refurbd/renovation-planner/internal/events"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/internal/store/model"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

var validStatuses = map[string]model.JobStatus{
	api.JobStatusPending:   model.JobStatusPending,
	api.JobStatusQueued:    model.JobStatusQueued,
	api.JobStatusRunning:   model.JobStatusRunning,
	api.JobStatusCompleted: model.JobStatusCompleted,
	api.JobStatusFailed:    model.JobStatusFailed,
	api.JobStatusPaused:    model.JobStatusPaused,
	api.JobStatusCancelled: model.JobStatusCancelled,
}

var validTypes = map[string]model.JobType{
	api.JobTypeAnalysis:  model.JobTypeAnalysis,
	api.JobTypeRendering: model.JobTypeRendering,
	api.JobTypeEditing:   model.JobTypeEditing,
}

// JobService owns the job lifecycle: creation, the named status
// mutations and the admin listing. Every data mutation commits before
// its notification goes out.
type JobService struct {
	store     store.Store
	publisher *events.Publisher
}

func NewJobService(s store.Store, publisher *events.Publisher) *JobService {
	return &JobService{
		store:     s,
		publisher: publisher,
	}
}

type JobCreateForm struct {
	UserID      int64
	ProjectID   *int64
	RenderingID *int64
	Type        model.JobType
	StepTotal   int
	Params      []byte
}

// CreateJob records a new queued job and returns immediately; running
// it is the pipeline runner's business.
func (js *JobService) CreateJob(ctx context.Context, form JobCreateForm) (*model.Job, error) {
	job := model.Job{
		UserID:      form.UserID,
		ProjectID:   form.ProjectID,
		RenderingID: form.RenderingID,
		Type:        form.Type,
		Status:      model.JobStatusQueued,
		StepTotal:   form.StepTotal,
		Params:      form.Params,
	}

	created, err := js.store.Job().Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	js.publisher.JobAdded(created.ToApiResource())
	zap.S().Named("job_service").Infof("job added: %d (%s)", created.ID, created.Type)

	return created, nil
}

// GetJob returns the job if it exists and belongs to the caller.
// Somebody else's job is reported absent, not forbidden.
func (js *JobService) GetJob(ctx context.Context, id int64, userID int64) (*model.Job, error) {
	job, err := js.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if job.UserID != userID {
		return nil, NewErrJobNotFound(id)
	}
	return job, nil
}

type JobFilter struct {
	UserID int64
	Status string
	Type   string
	Search string
	Limit  int
	Cursor *int64
}

// ListJobs pages through the caller's jobs newest-first. The cursor is
// the last returned id; rows with id < cursor qualify for the next
// page. One extra row is fetched to learn whether a further page
// exists without a second round trip.
func (js *JobService) ListJobs(ctx context.Context, filter JobFilter) (*api.JobList, error) {
	storeFilter := store.NewJobQueryFilter().ByUserID(filter.UserID)

	if filter.Status != "" {
		status, ok := validStatuses[filter.Status]
		if !ok {
			return nil, NewErrInvalidFilter("status", filter.Status)
		}
		storeFilter = storeFilter.ByStatus(status)
	}
	if filter.Type != "" {
		jobType, ok := validTypes[filter.Type]
		if !ok {
			return nil, NewErrInvalidFilter("type", filter.Type)
		}
		storeFilter = storeFilter.ByType(jobType)
	}
	if filter.Search != "" {
		storeFilter = storeFilter.BySearch(filter.Search)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 1 || limit > MaxPageSize {
		return nil, NewErrInvalidFilter("limit", fmt.Sprintf("%d", limit))
	}

	if filter.Cursor != nil {
		storeFilter = storeFilter.BeforeID(*filter.Cursor)
	}

	opts := store.NewJobQueryOptions().WithNewestFirst().WithLimit(limit + 1)

	jobs, err := js.store.Job().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	hasMore := len(jobs) > limit
	if hasMore {
		jobs = jobs[:limit]
	}

	list := &api.JobList{Items: jobs.ToApiResource()}
	if hasMore && len(jobs) > 0 {
		nextCursor := jobs[len(jobs)-1].ID
		list.NextCursor = &nextCursor
	}

	return list, nil
}

// PauseJob marks a running job paused. The runner notices at its next
// stage boundary; the in-flight stage is not interrupted.
func (js *JobService) PauseJob(ctx context.Context, id int64, userID int64) (*model.Job, error) {
	return js.mutateStatus(ctx, id, userID, model.JobStatusPaused)
}

// ResumeJob puts a paused job back in the queue.
func (js *JobService) ResumeJob(ctx context.Context, id int64, userID int64) (*model.Job, error) {
	return js.mutateStatus(ctx, id, userID, model.JobStatusQueued)
}

// CancelJob marks the job cancelled. Cancellation is cooperative: an
// in-flight runner stops at its next checkpoint.
func (js *JobService) CancelJob(ctx context.Context, id int64, userID int64) (*model.Job, error) {
	return js.mutateStatus(ctx, id, userID, model.JobStatusCancelled)
}

// RetryJob reopens a failed or cancelled job, resetting progress so the
// pipeline restarts from the first stage.
func (js *JobService) RetryJob(ctx context.Context, id int64, userID int64) (*model.Job, error) {
	job, err := js.GetJob(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	ctx, err = js.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = store.Rollback(ctx)
	}()

	if err := ResetForRetry(job); err != nil {
		return nil, err
	}

	updated, err := js.store.Job().Update(ctx, *job)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	progressPercent := 0.0
	stepIndex := 0
	js.publisher.JobProgress(events.Progress{
		JobID:           updated.ID,
		Status:          string(updated.Status),
		ProgressPercent: &progressPercent,
		StepIndex:       &stepIndex,
	})

	return updated, nil
}

// DeleteJob removes the record and tells the feed the job left the
// queue.
func (js *JobService) DeleteJob(ctx context.Context, id int64, userID int64) error {
	if _, err := js.GetJob(ctx, id, userID); err != nil {
		return err
	}

	if err := js.store.Job().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	js.publisher.JobRemoved(id)
	zap.S().Named("job_service").Infof("job removed: %d", id)
	return nil
}

func (js *JobService) mutateStatus(ctx context.Context, id int64, userID int64, target model.JobStatus) (*model.Job, error) {
	job, err := js.GetJob(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	ctx, err = js.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = store.Rollback(ctx)
	}()

	if err := Transition(job, target); err != nil {
		return nil, err
	}

	updated, err := js.store.Job().Update(ctx, *job)
	if err != nil {
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	if _, err := store.Commit(ctx); err != nil {
		return nil, err
	}

	js.publisher.JobProgress(events.Progress{
		JobID:  updated.ID,
		Status: string(updated.Status),
	})

	return updated, nil
}
