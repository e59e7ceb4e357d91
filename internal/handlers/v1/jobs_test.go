package v1_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/refurbd/renovation-planner/internal/auth"
	"github.com/refurbd/renovation-planner/internal/config"
	"github.com/refurbd/renovation-planner/internal/estimation"
	"github.com/refurbd/renovation-planner/internal/events"
	handlers "github.com/refurbd/renovation-planner/internal/handlers/v1"
	"github.com/refurbd/renovation-planner/internal/pipeline"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(_ context.Context, _ pipeline.AnalyzeRequest) (*pipeline.RoomAnalysis, error) {
	return &pipeline.RoomAnalysis{VisualAssessment: "solid layout", DesignPlan: "fresh paint and new fixtures"}, nil
}

type stubImages struct{}

func (stubImages) Generate(_ context.Context, req pipeline.GenerateRequest) (string, time.Duration, error) {
	return "/artifacts/" + req.ArtifactKey, time.Second, nil
}

func (stubImages) Edit(_ context.Context, req pipeline.EditRequest) (string, time.Duration, error) {
	return "/artifacts/" + req.ArtifactKey, time.Second, nil
}

type stubNotifier struct{}

func (stubNotifier) NotifyCompletion(_ context.Context, _, _, _ string, _ int64) error {
	return nil
}

var _ = Describe("job routes", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		pub    *events.Publisher
		router chi.Router
		ctx    context.Context

		userSeq int64
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(BeNil())

		cfg := config.NewDefault()
		cfg.Service.Limits.FreeTierAnalysesPerMonth = 3
		cfg.Service.Limits.BasicTierAnalysesPerMonth = 25

		pub = events.NewPublisher(events.NewHub(), events.NewRegistry())
		runner := pipeline.NewRunner(s, pub, stubAnalyzer{}, estimation.NewCostEstimator(), stubImages{}, stubNotifier{})
		jobs := service.NewJobService(s, pub)

		handler := handlers.NewServiceHandler(cfg, jobs, s, pub, runner, nil)
		router = chi.NewRouter()
		handler.Routes(router)

		ctx = context.Background()
	})

	AfterAll(func() {
		pub.Close()
		_ = s.Close()
	})

	AfterEach(func() {
		for _, table := range []string{"jobs", "renderings", "projects", "users"} {
			Expect(gormdb.Exec("DELETE FROM " + table).Error).To(BeNil())
		}
	})

	// do sends a request as the given user; the authenticator middleware
	// is skipped, the user goes straight into the request context.
	do := func(method, path string, userID int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req = req.WithContext(auth.NewTokenContext(req.Context(), auth.User{ID: userID, Email: "user@example.com"}))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	seedUser := func(tier model.SubscriptionTier, used int) *model.User {
		userSeq++
		now := time.Now().UTC()
		user, err := s.User().Create(ctx, model.User{
			Email:                 fmt.Sprintf("user%d@example.com", userSeq),
			SubscriptionTier:      tier,
			AnalysesUsedThisMonth: used,
			LastAnalysisReset:     &now,
		})
		Expect(err).To(BeNil())
		return user
	}

	seedProject := func(userID int64) *model.Project {
		image := "data:image/png;base64,abc"
		project, err := s.Project().Create(ctx, model.Project{
			UserID:           userID,
			Name:             "Bathroom refresh",
			RoomType:         model.RoomTypeBathroom,
			RenovationScope:  model.ScopeModerate,
			Status:           model.ProjectStatusDraft,
			CurrentRoomImage: &image,
		})
		Expect(err).To(BeNil())
		return project
	}

	jobStatus := func(id int64) model.JobStatus {
		job, err := s.Job().Get(ctx, id)
		Expect(err).To(BeNil())
		return job.Status
	}

	Context("resume", func() {
		It("puts a paused job back through the runner to completion", func() {
			user := seedUser(model.TierFree, 0)
			project := seedProject(user.ID)
			job, err := s.Job().Create(ctx, model.Job{
				UserID:    user.ID,
				ProjectID: &project.ID,
				Type:      model.JobTypeAnalysis,
				Status:    model.JobStatusPaused,
				StepTotal: 5,
			})
			Expect(err).To(BeNil())

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/admin/jobs/%d/resume", job.ID), user.ID)
			Expect(rec.Code).To(Equal(http.StatusOK))

			// the resumed job must actually run again, not sit queued
			Eventually(func() model.JobStatus {
				return jobStatus(job.ID)
			}).WithTimeout(5 * time.Second).WithPolling(50 * time.Millisecond).Should(Equal(model.JobStatusCompleted))
		})

		It("rejects resuming a job that is not paused", func() {
			user := seedUser(model.TierFree, 0)
			job, err := s.Job().Create(ctx, model.Job{
				UserID:    user.ID,
				Type:      model.JobTypeAnalysis,
				Status:    model.JobStatusQueued,
				StepTotal: 5,
			})
			Expect(err).To(BeNil())

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/admin/jobs/%d/resume", job.ID), user.ID)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(jobStatus(job.ID)).To(Equal(model.JobStatusQueued))
		})
	})

	Context("pause", func() {
		It("pauses a running job without dispatching anything", func() {
			user := seedUser(model.TierFree, 0)
			job, err := s.Job().Create(ctx, model.Job{
				UserID:    user.ID,
				Type:      model.JobTypeAnalysis,
				Status:    model.JobStatusRunning,
				StepTotal: 5,
			})
			Expect(err).To(BeNil())

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/admin/jobs/%d/pause", job.ID), user.ID)
			Expect(rec.Code).To(Equal(http.StatusOK))

			Consistently(func() model.JobStatus {
				return jobStatus(job.ID)
			}).WithTimeout(200 * time.Millisecond).Should(Equal(model.JobStatusPaused))
		})
	})

	Context("analysis quota", func() {
		It("accepts an analysis under the limit", func() {
			user := seedUser(model.TierFree, 0)
			project := seedProject(user.ID)

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/analyze", project.ID), user.ID)
			Expect(rec.Code).To(Equal(http.StatusAccepted))
		})

		It("rejects a metered user at the limit with 402", func() {
			user := seedUser(model.TierFree, 3)
			project := seedProject(user.ID)

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/analyze", project.ID), user.ID)
			Expect(rec.Code).To(Equal(http.StatusPaymentRequired))
		})

		It("never meters pro accounts", func() {
			user := seedUser(model.TierPro, 9000)
			project := seedProject(user.ID)

			rec := do(http.MethodPost, fmt.Sprintf("/api/v1/projects/%d/analyze", project.ID), user.ID)
			Expect(rec.Code).To(Equal(http.StatusAccepted))
		})
	})
})
