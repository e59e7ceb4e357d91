package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/refurbd/renovation-planner/internal/events"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/internal/store/model"
	"github.com/refurbd/renovation-planner/pkg/metrics"
	"go.uber.org/zap"
)

const defaultImageSize = "1024x1024"

// tierImageSizes maps subscription tiers to the rendering resolution
// they pay for.
var tierImageSizes = map[model.SubscriptionTier]string{
	model.TierFree:       "1024x1024",
	model.TierBasic:      "1024x1024",
	model.TierPro:        "1536x1024",
	model.TierEnterprise: "1792x1024",
}

const (
	analysisStepTotal = 5
	editStepTotal     = 3
	renderStepTotal   = 3
)

// Runner executes a job's stages outside the request that created it.
// Stage failures are recorded on the job, never returned to a caller.
// Between stages the runner re-reads the job and stops advancing if
// the status is no longer running; cancellation and pause are
// cooperative.
type Runner struct {
	store     store.Store
	publisher *events.Publisher
	analyzer  RoomAnalyzer
	estimator CostEstimator
	images    ImageGenerator
	notifier  NotificationSink
	log       *zap.SugaredLogger
}

func NewRunner(
	s store.Store,
	publisher *events.Publisher,
	analyzer RoomAnalyzer,
	estimator CostEstimator,
	images ImageGenerator,
	notifier NotificationSink,
) *Runner {
	return &Runner{
		store:     s,
		publisher: publisher,
		analyzer:  analyzer,
		estimator: estimator,
		images:    images,
		notifier:  notifier,
		log:       zap.S().Named("pipeline"),
	}
}

// Dispatch runs the job on its own goroutine with a fresh context.
// The triggering request has already returned by the time stages run.
func (r *Runner) Dispatch(jobID int64) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Errorf("panic while running job %d: %v", jobID, rec)
			}
		}()
		if err := r.Run(context.Background(), jobID); err != nil {
			r.log.Errorf("failed to run job %d: %v", jobID, err)
		}
	}()
}

// Run picks the stage sequence by job type. The returned error covers
// infrastructure problems only (job unreadable); collaborator failures
// end up on the job record instead.
func (r *Runner) Run(ctx context.Context, jobID int64) error {
	job, err := r.store.Job().Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %d: %w", jobID, err)
	}

	switch job.Type {
	case model.JobTypeAnalysis:
		return r.runAnalysis(ctx, job)
	case model.JobTypeRendering:
		return r.runRender(ctx, job)
	case model.JobTypeEditing:
		return r.runEdit(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (r *Runner) runAnalysis(ctx context.Context, job *model.Job) error {
	if job.ProjectID == nil {
		return fmt.Errorf("analysis job %d has no project", job.ID)
	}

	job, ok, err := r.start(ctx, job)
	if err != nil || !ok {
		return err
	}

	project, err := r.store.Project().Get(ctx, *job.ProjectID)
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to load project: %w", err))
		return nil
	}
	user, err := r.store.User().Get(ctx, job.UserID)
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to load user: %w", err))
		return nil
	}

	if err := r.store.Project().UpdateStatus(ctx, project.ID, model.ProjectStatusAnalyzing); err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to mark project analyzing: %w", err))
		return nil
	}
	r.publisher.ProjectStatus(project.ID, string(model.ProjectStatusAnalyzing))

	// Stage 1: room analysis.
	analysis, err := r.analyzer.Analyze(ctx, AnalyzeRequest{
		CurrentRoomImage: deref(project.CurrentRoomImage),
		InspirationImage: project.InspirationImage,
		RoomType:         project.RoomType,
		DesiredStyle:     deref(project.DesiredStyle),
		SquareFootage:    sqft(project),
		Budget:           budgetConstraint(job),
		City:             deref(user.City),
		State:            deref(user.State),
		Country:          deref(user.Country),
	})
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("room analysis failed: %w", err))
		return nil
	}
	project.VisualAssessment = &analysis.VisualAssessment
	project.DesignPlan = &analysis.DesignPlan
	if job, ok = r.advance(ctx, job, "Analyzing room", 1, 20); !ok {
		r.releaseProject(ctx, project.ID)
		return nil
	}

	// Stage 2: cost estimation.
	estimate := r.estimator.EstimateCost(project.RoomType, project.RenovationScope, sqft(project), deref(user.State), deref(user.City))
	project.EstimatedCostLow = &estimate.CostLow
	project.EstimatedCostHigh = &estimate.CostHigh
	project.LocationMultiplier = estimate.LocationMultiplier
	if project.BudgetBreakdown, err = json.Marshal(estimate.Breakdown); err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to encode budget breakdown: %w", err))
		return nil
	}
	if job, ok = r.advance(ctx, job, "Estimating costs", 2, 40); !ok {
		r.releaseProject(ctx, project.ID)
		return nil
	}

	// Stage 3: timeline.
	timeline := r.estimator.EstimateTimeline(project.RenovationScope, project.RoomType)
	project.TimelineEstimate = &timeline
	if job, ok = r.advance(ctx, job, "Building timeline", 3, 55); !ok {
		r.releaseProject(ctx, project.ID)
		return nil
	}

	// Stage 4: rendering.
	imageSize := imageSizeFor(user.SubscriptionTier)
	prompt := designPrompt(project, analysis)
	imagePath, genTime, err := r.images.Generate(ctx, GenerateRequest{
		DesignDescription: prompt,
		RoomType:          project.RoomType,
		Style:             deref(project.DesiredStyle),
		ImageSize:         imageSize,
		ArtifactKey:       renderingKey(user.ID, project.ID, 1),
	})
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("image synthesis failed: %w", err))
		return nil
	}
	if job, ok = r.advance(ctx, job, "Generating rendering", 4, 85); !ok {
		r.releaseProject(ctx, project.ID)
		return nil
	}

	// Stage 5: persist everything and complete, one transaction.
	genSeconds := int(genTime.Seconds())
	rendering := model.Rendering{
		UserID:                user.ID,
		ProjectID:             project.ID,
		ImagePath:             imagePath,
		PromptUsed:            truncate(prompt, 500),
		ImageSize:             imageSize,
		Version:               1,
		IsLatest:              true,
		GenerationTimeSeconds: &genSeconds,
	}

	now := time.Now().UTC()
	project.Status = model.ProjectStatusCompleted
	project.CompletedAt = &now

	created, err := r.complete(ctx, job, project, &rendering, "Saving results", analysisStepTotal)
	if err != nil {
		r.fail(ctx, job, err)
		return nil
	}
	if created == nil {
		r.releaseProject(ctx, project.ID)
		return nil
	}

	r.publisher.RenderAdded(project.ID, created.ToApiResource())
	r.publisher.ProjectCompleted(project.ID, project.ToApiResource())

	// Stage 6: completion notice, best-effort.
	if err := r.notifier.NotifyCompletion(ctx, user.Email, deref(user.FullName), project.Name, project.ID); err != nil {
		r.log.Errorf("failed to send completion notice for project %d: %v", project.ID, err)
	}

	return nil
}

func (r *Runner) runEdit(ctx context.Context, job *model.Job) error {
	if job.RenderingID == nil {
		return fmt.Errorf("edit job %d has no source rendering", job.ID)
	}

	job, ok, err := r.start(ctx, job)
	if err != nil || !ok {
		return err
	}

	original, err := r.store.Rendering().Get(ctx, *job.RenderingID)
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to load rendering: %w", err))
		return nil
	}
	user, err := r.store.User().Get(ctx, job.UserID)
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to load user: %w", err))
		return nil
	}
	if job, ok = r.advance(ctx, job, "Preparing edit", 1, 15); !ok {
		return nil
	}

	instructions := editInstructions(job)
	imageSize := imageSizeFor(user.SubscriptionTier)
	newVersion := original.Version + 1

	imagePath, genTime, err := r.images.Edit(ctx, EditRequest{
		OriginalImagePath: original.ImagePath,
		EditInstructions:  instructions,
		ImageSize:         imageSize,
		ArtifactKey:       renderingKey(user.ID, original.ProjectID, newVersion),
	})
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("image edit failed: %w", err))
		return nil
	}
	if job, ok = r.advance(ctx, job, "Generating edited rendering", 2, 75); !ok {
		return nil
	}

	genSeconds := int(genTime.Seconds())
	rendering := model.Rendering{
		UserID:                user.ID,
		ProjectID:             original.ProjectID,
		ImagePath:             imagePath,
		PromptUsed:            truncate(instructions, 500),
		ImageSize:             imageSize,
		Version:               newVersion,
		ParentRenderingID:     &original.ID,
		IsLatest:              true,
		GenerationTimeSeconds: &genSeconds,
	}

	created, err := r.complete(ctx, job, nil, &rendering, "Saving results", editStepTotal)
	if err != nil {
		r.fail(ctx, job, err)
		return nil
	}
	if created == nil {
		return nil
	}

	r.publisher.RenderAdded(original.ProjectID, created.ToApiResource())
	return nil
}

// runRender regenerates an image for an already-analyzed project. Same
// tail as an edit, but the prompt comes from the stored design plan.
func (r *Runner) runRender(ctx context.Context, job *model.Job) error {
	if job.ProjectID == nil {
		return fmt.Errorf("render job %d has no project", job.ID)
	}

	job, ok, err := r.start(ctx, job)
	if err != nil || !ok {
		return err
	}

	project, err := r.store.Project().Get(ctx, *job.ProjectID)
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to load project: %w", err))
		return nil
	}
	user, err := r.store.User().Get(ctx, job.UserID)
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to load user: %w", err))
		return nil
	}
	if job, ok = r.advance(ctx, job, "Preparing rendering", 1, 15); !ok {
		return nil
	}

	latest, err := r.store.Rendering().List(ctx, store.NewRenderingQueryFilter().ByProjectID(project.ID).ByLatest())
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("failed to list renderings: %w", err))
		return nil
	}
	newVersion := 1
	var parentID *int64
	if len(latest) > 0 {
		newVersion = latest[0].Version + 1
		parentID = &latest[0].ID
	}

	imageSize := imageSizeFor(user.SubscriptionTier)
	prompt := designPrompt(project, &RoomAnalysis{DesignPlan: deref(project.DesignPlan)})
	imagePath, genTime, err := r.images.Generate(ctx, GenerateRequest{
		DesignDescription: prompt,
		RoomType:          project.RoomType,
		Style:             deref(project.DesiredStyle),
		ImageSize:         imageSize,
		ArtifactKey:       renderingKey(user.ID, project.ID, newVersion),
	})
	if err != nil {
		r.fail(ctx, job, fmt.Errorf("image synthesis failed: %w", err))
		return nil
	}
	if job, ok = r.advance(ctx, job, "Generating rendering", 2, 75); !ok {
		return nil
	}

	genSeconds := int(genTime.Seconds())
	rendering := model.Rendering{
		UserID:                user.ID,
		ProjectID:             project.ID,
		ImagePath:             imagePath,
		PromptUsed:            truncate(prompt, 500),
		ImageSize:             imageSize,
		Version:               newVersion,
		ParentRenderingID:     parentID,
		IsLatest:              true,
		GenerationTimeSeconds: &genSeconds,
	}

	created, err := r.complete(ctx, job, nil, &rendering, "Saving results", renderStepTotal)
	if err != nil {
		r.fail(ctx, job, err)
		return nil
	}
	if created == nil {
		return nil
	}

	r.publisher.RenderAdded(project.ID, created.ToApiResource())
	return nil
}

// start moves the job to running and announces it. ok is false when
// the job was cancelled before the runner got to it.
func (r *Runner) start(ctx context.Context, job *model.Job) (*model.Job, bool, error) {
	if err := service.Transition(job, model.JobStatusRunning); err != nil {
		r.log.Infof("job %d not runnable (%s), skipping", job.ID, job.Status)
		return job, false, nil
	}

	updated, err := r.store.Job().Update(ctx, *job)
	if err != nil {
		return job, false, fmt.Errorf("failed to mark job %d running: %w", job.ID, err)
	}

	stepTotal := updated.StepTotal
	r.publisher.JobProgress(events.Progress{
		JobID:     updated.ID,
		Status:    string(updated.Status),
		StepTotal: &stepTotal,
	})
	return updated, true, nil
}

// advance persists the progress of a finished stage and emits the
// progress event, then checks whether the runner should keep going. A
// false return means the job was paused or cancelled behind the
// runner's back and the stage loop must stop without touching the
// status.
func (r *Runner) advance(ctx context.Context, job *model.Job, step string, index int, percent float64) (*model.Job, bool) {
	current, err := r.store.Job().Get(ctx, job.ID)
	if err != nil {
		r.log.Errorf("failed to re-read job %d: %v", job.ID, err)
		return job, false
	}
	if current.Status != model.JobStatusRunning {
		r.log.Infof("job %d is %s, stopping after stage %d", job.ID, current.Status, index)
		return current, false
	}

	current.CurrentStep = &step
	current.StepIndex = index
	if percent > current.ProgressPercent {
		current.ProgressPercent = percent
	}
	current.UpdatedAt = time.Now().UTC()

	updated, err := r.store.Job().Update(ctx, *current)
	if err != nil {
		r.log.Errorf("failed to persist progress for job %d: %v", job.ID, err)
		return current, false
	}

	stepTotal := updated.StepTotal
	progress := updated.ProgressPercent
	r.publisher.JobProgress(events.Progress{
		JobID:           updated.ID,
		Status:          string(updated.Status),
		Step:            &step,
		StepIndex:       &index,
		StepTotal:       &stepTotal,
		ProgressPercent: &progress,
	})
	return updated, true
}

// complete persists the final stage in one transaction: the new
// rendering, the project fields when given, the completed job and the
// owner's usage counter. A nil rendering result with nil error means
// the job was paused or cancelled and the transaction was abandoned.
func (r *Runner) complete(ctx context.Context, job *model.Job, project *model.Project, rendering *model.Rendering, step string, stepTotal int) (*model.Rendering, error) {
	txCtx, err := r.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = store.Rollback(txCtx)
	}()

	current, err := r.store.Job().Get(txCtx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read job %d: %w", job.ID, err)
	}
	if current.Status != model.JobStatusRunning {
		r.log.Infof("job %d is %s, abandoning completion", job.ID, current.Status)
		return nil, nil
	}

	if err := r.store.Rendering().MarkNotLatest(txCtx, rendering.ProjectID); err != nil {
		return nil, fmt.Errorf("failed to retire prior renderings: %w", err)
	}
	created, err := r.store.Rendering().Create(txCtx, *rendering)
	if err != nil {
		return nil, fmt.Errorf("failed to create rendering: %w", err)
	}

	if project != nil {
		if _, err := r.store.Project().Update(txCtx, *project); err != nil {
			return nil, fmt.Errorf("failed to update project: %w", err)
		}
	}

	if err := service.Transition(current, model.JobStatusCompleted); err != nil {
		return nil, err
	}
	current.CurrentStep = &step
	current.StepIndex = stepTotal
	current.ProgressPercent = 100
	if current.ResultData, err = json.Marshal(map[string]any{
		"rendering_id": created.ID,
		"project_id":   created.ProjectID,
		"image_path":   created.ImagePath,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	updated, err := r.store.Job().Update(txCtx, *current)
	if err != nil {
		return nil, fmt.Errorf("failed to complete job %d: %w", job.ID, err)
	}

	if err := r.store.User().IncrementUsage(txCtx, job.UserID); err != nil {
		return nil, fmt.Errorf("failed to bump usage counter: %w", err)
	}

	if _, err := store.Commit(txCtx); err != nil {
		return nil, err
	}

	metrics.IncreaseRenderingsGeneratedMetric("success")

	index := stepTotal
	progress := 100.0
	r.publisher.JobProgress(events.Progress{
		JobID:           updated.ID,
		Status:          string(updated.Status),
		Step:            &step,
		StepIndex:       &index,
		StepTotal:       &stepTotal,
		ProgressPercent: &progress,
	})
	return created, nil
}

// fail records the collaborator error on the job. If the status moved
// to paused or cancelled in the meantime the user's choice wins and
// the error is only logged.
func (r *Runner) fail(ctx context.Context, job *model.Job, cause error) {
	r.log.Errorf("job %d failed: %v", job.ID, cause)

	current, err := r.store.Job().Get(ctx, job.ID)
	if err != nil {
		r.log.Errorf("failed to re-read job %d: %v", job.ID, err)
		return
	}
	if err := service.Transition(current, model.JobStatusFailed); err != nil {
		r.log.Infof("job %d is %s, leaving status untouched", job.ID, current.Status)
		return
	}
	metrics.IncreaseRenderingsGeneratedMetric("failure")

	msg := cause.Error()
	current.ErrorMessage = &msg

	updated, err := r.store.Job().Update(ctx, *current)
	if err != nil {
		r.log.Errorf("failed to record failure for job %d: %v", job.ID, err)
		return
	}

	r.publisher.JobProgress(events.Progress{
		JobID:  updated.ID,
		Status: string(updated.Status),
	})

	if updated.ProjectID != nil {
		if err := r.store.Project().UpdateStatus(ctx, *updated.ProjectID, model.ProjectStatusDraft); err != nil {
			r.log.Errorf("failed to reset project %d status: %v", *updated.ProjectID, err)
		}
		r.publisher.ProjectError(*updated.ProjectID, msg)
	}
}

// releaseProject returns an analysis project to draft when its job
// stopped before completion, so it does not sit in analyzing forever.
func (r *Runner) releaseProject(ctx context.Context, projectID int64) {
	if err := r.store.Project().UpdateStatus(ctx, projectID, model.ProjectStatusDraft); err != nil {
		r.log.Errorf("failed to reset project %d status: %v", projectID, err)
		return
	}
	r.publisher.ProjectStatus(projectID, string(model.ProjectStatusDraft))
}

func imageSizeFor(tier model.SubscriptionTier) string {
	if size, ok := tierImageSizes[tier]; ok {
		return size
	}
	return defaultImageSize
}

func designPrompt(project *model.Project, analysis *RoomAnalysis) string {
	if analysis != nil && analysis.DesignPlan != "" {
		return analysis.DesignPlan
	}
	style := deref(project.DesiredStyle)
	if style == "" {
		style = "contemporary"
	}
	return fmt.Sprintf("Modern %s with %s style", project.RoomType, style)
}

// editInstructions pulls the instruction text the create-job entry
// point stashed in the job params.
func editInstructions(job *model.Job) string {
	if len(job.Params) == 0 {
		return ""
	}
	var params struct {
		EditInstructions string `json:"edit_instructions"`
	}
	if err := json.Unmarshal(job.Params, &params); err != nil {
		return ""
	}
	return params.EditInstructions
}

func budgetConstraint(job *model.Job) *float64 {
	if len(job.Params) == 0 {
		return nil
	}
	var params struct {
		BudgetConstraint *float64 `json:"budget_constraint"`
	}
	if err := json.Unmarshal(job.Params, &params); err != nil {
		return nil
	}
	return params.BudgetConstraint
}

func renderingKey(userID, projectID int64, version int) string {
	return fmt.Sprintf("%d/renderings/project_%d_v%d.png", userID, projectID, version)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func sqft(project *model.Project) float64 {
	if project.SquareFootage != nil {
		return *project.SquareFootage
	}
	return 150
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
