package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/refurbd/renovation-planner/internal/config"
	"github.com/refurbd/renovation-planner/internal/estimation"
	"github.com/refurbd/renovation-planner/internal/events"
	"github.com/refurbd/renovation-planner/internal/pipeline"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type fakeAnalyzer struct {
	err   error
	calls int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ pipeline.AnalyzeRequest) (*pipeline.RoomAnalysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.RoomAnalysis{
		VisualAssessment: "dated finishes, good bones",
		DesignPlan:       "Warm minimalist kitchen with oak cabinetry",
	}, nil
}

type fakeImages struct {
	generateErr error
	editErr     error

	generated []pipeline.GenerateRequest
	edited    []pipeline.EditRequest

	// beforeReturn runs inside the call, before the result is produced.
	// Tests use it to flip the job status mid-stage.
	beforeReturn func()
}

func (f *fakeImages) Generate(_ context.Context, req pipeline.GenerateRequest) (string, time.Duration, error) {
	f.generated = append(f.generated, req)
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	if f.generateErr != nil {
		return "", 0, f.generateErr
	}
	return "/artifacts/" + req.ArtifactKey, 2 * time.Second, nil
}

func (f *fakeImages) Edit(_ context.Context, req pipeline.EditRequest) (string, time.Duration, error) {
	f.edited = append(f.edited, req)
	if f.beforeReturn != nil {
		f.beforeReturn()
	}
	if f.editErr != nil {
		return "", 0, f.editErr
	}
	return "/artifacts/" + req.ArtifactKey, 2 * time.Second, nil
}

type fakeNotifier struct {
	err   error
	calls int
}

func (f *fakeNotifier) NotifyCompletion(_ context.Context, _, _, _ string, _ int64) error {
	f.calls++
	return f.err
}

var _ = Describe("pipeline runner", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		pub    *events.Publisher
		ctx    context.Context

		analyzer *fakeAnalyzer
		images   *fakeImages
		notifier *fakeNotifier
		runner   *pipeline.Runner

		userSeq int64
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(BeNil())

		pub = events.NewPublisher(events.NewHub(), events.NewRegistry())
		ctx = context.Background()
	})

	AfterAll(func() {
		pub.Close()
		_ = s.Close()
	})

	BeforeEach(func() {
		analyzer = &fakeAnalyzer{}
		images = &fakeImages{}
		notifier = &fakeNotifier{}
		runner = pipeline.NewRunner(s, pub, analyzer, estimation.NewCostEstimator(), images, notifier)
	})

	AfterEach(func() {
		for _, table := range []string{"jobs", "renderings", "projects", "users"} {
			Expect(gormdb.Exec("DELETE FROM " + table).Error).To(BeNil())
		}
	})

	seedUser := func(tier model.SubscriptionTier) *model.User {
		userSeq++
		state := "CA"
		city := "San Francisco"
		name := "Jordan Reyes"
		user, err := s.User().Create(ctx, model.User{
			Email:            fmt.Sprintf("user%d@example.com", userSeq),
			FullName:         &name,
			City:             &city,
			State:            &state,
			SubscriptionTier: tier,
		})
		Expect(err).To(BeNil())
		return user
	}

	seedProject := func(userID int64) *model.Project {
		image := "data:image/png;base64,abc"
		style := "scandinavian"
		sqft := 180.0
		project, err := s.Project().Create(ctx, model.Project{
			UserID:           userID,
			Name:             "Kitchen refresh",
			RoomType:         model.RoomTypeKitchen,
			RenovationScope:  model.ScopeModerate,
			Status:           model.ProjectStatusDraft,
			CurrentRoomImage: &image,
			DesiredStyle:     &style,
			SquareFootage:    &sqft,
		})
		Expect(err).To(BeNil())
		return project
	}

	seedJob := func(job model.Job) *model.Job {
		if job.Status == "" {
			job.Status = model.JobStatusQueued
		}
		created, err := s.Job().Create(ctx, job)
		Expect(err).To(BeNil())
		return created
	}

	reloadJob := func(id int64) *model.Job {
		job, err := s.Job().Get(ctx, id)
		Expect(err).To(BeNil())
		return job
	}

	Context("analysis jobs", func() {
		It("runs all stages and completes in one pass", func() {
			user := seedUser(model.TierFree)
			project := seedProject(user.ID)
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeAnalysis, StepTotal: 5})

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			done := reloadJob(job.ID)
			Expect(done.Status).To(Equal(model.JobStatusCompleted))
			Expect(done.ProgressPercent).To(Equal(100.0))
			Expect(done.StepIndex).To(Equal(5))
			Expect(done.StartedAt).ToNot(BeNil())
			Expect(done.CompletedAt).ToNot(BeNil())

			var result map[string]any
			Expect(json.Unmarshal(done.ResultData, &result)).To(BeNil())
			Expect(result).To(HaveKey("rendering_id"))
			Expect(result).To(HaveKey("image_path"))

			updated, err := s.Project().Get(ctx, project.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.ProjectStatusCompleted))
			Expect(updated.CompletedAt).ToNot(BeNil())
			Expect(updated.VisualAssessment).ToNot(BeNil())
			Expect(updated.DesignPlan).ToNot(BeNil())
			Expect(updated.EstimatedCostLow).ToNot(BeNil())
			Expect(updated.EstimatedCostHigh).ToNot(BeNil())
			Expect(updated.TimelineEstimate).ToNot(BeNil())
			Expect(updated.BudgetBreakdown).ToNot(BeEmpty())

			renderings, err := s.Rendering().List(ctx, store.NewRenderingQueryFilter().ByProjectID(project.ID))
			Expect(err).To(BeNil())
			Expect(renderings).To(HaveLen(1))
			Expect(renderings[0].Version).To(Equal(1))
			Expect(renderings[0].IsLatest).To(BeTrue())

			owner, err := s.User().Get(ctx, user.ID)
			Expect(err).To(BeNil())
			Expect(owner.AnalysesUsedThisMonth).To(Equal(1))

			Expect(notifier.calls).To(Equal(1))
		})

		It("records an image failure on the job and resets the project", func() {
			user := seedUser(model.TierFree)
			project := seedProject(user.ID)
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeAnalysis, StepTotal: 5})

			images.generateErr = errors.New("model overloaded")

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			failed := reloadJob(job.ID)
			Expect(failed.Status).To(Equal(model.JobStatusFailed))
			Expect(failed.ErrorMessage).ToNot(BeNil())
			Expect(*failed.ErrorMessage).To(ContainSubstring("image synthesis failed"))
			// progress stays where the last finished stage left it
			Expect(failed.ProgressPercent).To(Equal(55.0))
			Expect(failed.StepIndex).To(Equal(3))
			Expect(failed.CompletedAt).To(BeNil())

			updated, err := s.Project().Get(ctx, project.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.ProjectStatusDraft))

			renderings, err := s.Rendering().List(ctx, store.NewRenderingQueryFilter().ByProjectID(project.ID))
			Expect(err).To(BeNil())
			Expect(renderings).To(BeEmpty())

			owner, err := s.User().Get(ctx, user.ID)
			Expect(err).To(BeNil())
			Expect(owner.AnalysesUsedThisMonth).To(BeZero())

			Expect(notifier.calls).To(BeZero())
		})

		It("stops at the next checkpoint when the job is cancelled mid-stage", func() {
			user := seedUser(model.TierFree)
			project := seedProject(user.ID)
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeAnalysis, StepTotal: 5})

			images.beforeReturn = func() {
				current, err := s.Job().Get(ctx, job.ID)
				Expect(err).To(BeNil())
				current.Status = model.JobStatusCancelled
				now := time.Now().UTC()
				current.CompletedAt = &now
				_, err = s.Job().Update(ctx, *current)
				Expect(err).To(BeNil())
			}

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			stopped := reloadJob(job.ID)
			Expect(stopped.Status).To(Equal(model.JobStatusCancelled))

			renderings, err := s.Rendering().List(ctx, store.NewRenderingQueryFilter().ByProjectID(project.ID))
			Expect(err).To(BeNil())
			Expect(renderings).To(BeEmpty())

			// the project must not be left parked in analyzing
			updated, err := s.Project().Get(ctx, project.ID)
			Expect(err).To(BeNil())
			Expect(updated.Status).To(Equal(model.ProjectStatusDraft))

			Expect(notifier.calls).To(BeZero())
		})

		It("skips a job that is no longer runnable", func() {
			user := seedUser(model.TierFree)
			project := seedProject(user.ID)
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeAnalysis, StepTotal: 5, Status: model.JobStatusCompleted})

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			Expect(analyzer.calls).To(BeZero())
			Expect(images.generated).To(BeEmpty())
			Expect(reloadJob(job.ID).Status).To(Equal(model.JobStatusCompleted))
		})

		It("completes even when the completion notice fails", func() {
			user := seedUser(model.TierFree)
			project := seedProject(user.ID)
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeAnalysis, StepTotal: 5})

			notifier.err = errors.New("smtp down")

			Expect(runner.Run(ctx, job.ID)).To(BeNil())
			Expect(reloadJob(job.ID).Status).To(Equal(model.JobStatusCompleted))
		})

		It("sizes the rendering by subscription tier", func() {
			user := seedUser(model.TierPro)
			project := seedProject(user.ID)
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeAnalysis, StepTotal: 5})

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			Expect(images.generated).To(HaveLen(1))
			Expect(images.generated[0].ImageSize).To(Equal("1536x1024"))
		})
	})

	Context("edit jobs", func() {
		It("creates the next version linked to its parent", func() {
			user := seedUser(model.TierBasic)
			project := seedProject(user.ID)
			original, err := s.Rendering().Create(ctx, model.Rendering{
				UserID:     user.ID,
				ProjectID:  project.ID,
				ImagePath:  "/artifacts/v1.png",
				PromptUsed: "initial design",
				ImageSize:  "1024x1024",
				Version:    1,
				IsLatest:   true,
			})
			Expect(err).To(BeNil())

			params, _ := json.Marshal(map[string]string{"edit_instructions": "swap the island for a peninsula"})
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, RenderingID: &original.ID, Type: model.JobTypeEditing, StepTotal: 3, Params: params})

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			Expect(reloadJob(job.ID).Status).To(Equal(model.JobStatusCompleted))

			Expect(images.edited).To(HaveLen(1))
			Expect(images.edited[0].EditInstructions).To(Equal("swap the island for a peninsula"))
			Expect(images.edited[0].OriginalImagePath).To(Equal("/artifacts/v1.png"))

			renderings, err := s.Rendering().List(ctx, store.NewRenderingQueryFilter().ByProjectID(project.ID))
			Expect(err).To(BeNil())
			Expect(renderings).To(HaveLen(2))
			// newest version first
			Expect(renderings[0].Version).To(Equal(2))
			Expect(renderings[0].IsLatest).To(BeTrue())
			Expect(renderings[0].ParentRenderingID).ToNot(BeNil())
			Expect(*renderings[0].ParentRenderingID).To(Equal(original.ID))
			Expect(renderings[1].Version).To(Equal(1))
			Expect(renderings[1].IsLatest).To(BeFalse())
		})
	})

	Context("render jobs", func() {
		It("regenerates from the stored design plan", func() {
			user := seedUser(model.TierFree)
			project := seedProject(user.ID)
			plan := "Warm minimalist kitchen with oak cabinetry"
			project.DesignPlan = &plan
			_, err := s.Project().Update(ctx, *project)
			Expect(err).To(BeNil())

			prior, err := s.Rendering().Create(ctx, model.Rendering{
				UserID:     user.ID,
				ProjectID:  project.ID,
				ImagePath:  "/artifacts/v1.png",
				PromptUsed: plan,
				ImageSize:  "1024x1024",
				Version:    1,
				IsLatest:   true,
			})
			Expect(err).To(BeNil())

			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeRendering, StepTotal: 3})

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			Expect(images.generated).To(HaveLen(1))
			Expect(images.generated[0].DesignDescription).To(Equal(plan))

			renderings, err := s.Rendering().List(ctx, store.NewRenderingQueryFilter().ByProjectID(project.ID).ByLatest())
			Expect(err).To(BeNil())
			Expect(renderings).To(HaveLen(1))
			Expect(renderings[0].Version).To(Equal(2))
			Expect(renderings[0].ParentRenderingID).ToNot(BeNil())
			Expect(*renderings[0].ParentRenderingID).To(Equal(prior.ID))
		})

		It("starts at version one for a project with no renderings", func() {
			user := seedUser(model.TierFree)
			project := seedProject(user.ID)
			job := seedJob(model.Job{UserID: user.ID, ProjectID: &project.ID, Type: model.JobTypeRendering, StepTotal: 3})

			Expect(runner.Run(ctx, job.ID)).To(BeNil())

			renderings, err := s.Rendering().List(ctx, store.NewRenderingQueryFilter().ByProjectID(project.ID))
			Expect(err).To(BeNil())
			Expect(renderings).To(HaveLen(1))
			Expect(renderings[0].Version).To(Equal(1))
			Expect(renderings[0].ParentRenderingID).To(BeNil())
		})
	})

	It("fails infrastructure-style on a missing job", func() {
		err := runner.Run(ctx, 4242)
		Expect(err).ToNot(BeNil())
	})
})
