package service_test

import (
	"context"
	"fmt"

	"github.com/refurbd/renovation-planner/internal/config"
	"github.com/refurbd/renovation-planner/internal/events"
	"github.com/refurbd/renovation-planner/internal/service"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/internal/store/model"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("job service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		svc    *service.JobService
		pub    *events.Publisher
		ctx    context.Context
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())
		gormdb = db
		s = store.NewStore(db)
		Expect(s.InitialMigration()).To(BeNil())

		pub = events.NewPublisher(events.NewHub(), events.NewRegistry())
		svc = service.NewJobService(s, pub)
		ctx = context.Background()
	})

	AfterAll(func() {
		pub.Close()
		_ = s.Close()
	})

	AfterEach(func() {
		Expect(gormdb.Exec("DELETE FROM jobs").Error).To(BeNil())
	})

	createJob := func(userID int64, jobType model.JobType) *model.Job {
		job, err := svc.CreateJob(ctx, service.JobCreateForm{
			UserID:    userID,
			Type:      jobType,
			StepTotal: 5,
		})
		Expect(err).To(BeNil())
		return job
	}

	Context("create and get", func() {
		It("creates jobs queued", func() {
			job := createJob(1, model.JobTypeAnalysis)
			Expect(job.ID).ToNot(BeZero())
			Expect(job.Status).To(Equal(model.JobStatusQueued))

			got, err := svc.GetJob(ctx, job.ID, 1)
			Expect(err).To(BeNil())
			Expect(got.ID).To(Equal(job.ID))
		})

		It("reports somebody else's job absent", func() {
			job := createJob(1, model.JobTypeAnalysis)

			_, err := svc.GetJob(ctx, job.ID, 2)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})

	Context("list", func() {
		It("pages newest-first with a stable cursor", func() {
			var ids []int64
			for i := 0; i < 7; i++ {
				ids = append(ids, createJob(1, model.JobTypeAnalysis).ID)
			}

			var seen []int64
			var cursor *int64
			pages := 0
			for {
				list, err := svc.ListJobs(ctx, service.JobFilter{UserID: 1, Limit: 3, Cursor: cursor})
				Expect(err).To(BeNil())
				pages++
				for _, job := range list.Items {
					seen = append(seen, job.ID)
				}
				if list.NextCursor == nil {
					break
				}
				cursor = list.NextCursor
			}

			Expect(pages).To(Equal(3))
			Expect(seen).To(HaveLen(7))
			// newest first, no duplicates, no gaps
			for i := 1; i < len(seen); i++ {
				Expect(seen[i]).To(BeNumerically("<", seen[i-1]))
			}
			Expect(seen[0]).To(Equal(ids[6]))
			Expect(seen[6]).To(Equal(ids[0]))
		})

		It("filters by status and type", func() {
			analysis := createJob(1, model.JobTypeAnalysis)
			createJob(1, model.JobTypeRendering)
			_, err := svc.CancelJob(ctx, analysis.ID, 1)
			Expect(err).To(BeNil())

			list, err := svc.ListJobs(ctx, service.JobFilter{UserID: 1, Status: "cancelled"})
			Expect(err).To(BeNil())
			Expect(list.Items).To(HaveLen(1))
			Expect(list.Items[0].ID).To(Equal(analysis.ID))

			list, err = svc.ListJobs(ctx, service.JobFilter{UserID: 1, Type: "rendering"})
			Expect(err).To(BeNil())
			Expect(list.Items).To(HaveLen(1))
			Expect(list.Items[0].Type).To(Equal("rendering"))
		})

		It("scopes the listing to the caller", func() {
			createJob(1, model.JobTypeAnalysis)
			createJob(2, model.JobTypeAnalysis)

			list, err := svc.ListJobs(ctx, service.JobFilter{UserID: 1})
			Expect(err).To(BeNil())
			Expect(list.Items).To(HaveLen(1))
		})

		It("rejects unknown filter values", func() {
			_, err := svc.ListJobs(ctx, service.JobFilter{UserID: 1, Status: "bogus"})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidFilter{}))

			_, err = svc.ListJobs(ctx, service.JobFilter{UserID: 1, Type: "bogus"})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidFilter{}))

			_, err = svc.ListJobs(ctx, service.JobFilter{UserID: 1, Limit: service.MaxPageSize + 1})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidFilter{}))

			_, err = svc.ListJobs(ctx, service.JobFilter{UserID: 1, Limit: -1})
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidFilter{}))
		})
	})

	Context("lifecycle mutations", func() {
		It("cancels a queued job and stamps completed_at", func() {
			job := createJob(1, model.JobTypeAnalysis)

			cancelled, err := svc.CancelJob(ctx, job.ID, 1)
			Expect(err).To(BeNil())
			Expect(cancelled.Status).To(Equal(model.JobStatusCancelled))
			Expect(cancelled.CompletedAt).ToNot(BeNil())
		})

		It("refuses to pause a cancelled job", func() {
			job := createJob(1, model.JobTypeAnalysis)
			_, err := svc.CancelJob(ctx, job.ID, 1)
			Expect(err).To(BeNil())

			_, err = svc.PauseJob(ctx, job.ID, 1)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidTransition{}))

			got, err := svc.GetJob(ctx, job.ID, 1)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(model.JobStatusCancelled))
		})

		It("retries a cancelled job back into the queue", func() {
			job := createJob(1, model.JobTypeAnalysis)
			_, err := svc.CancelJob(ctx, job.ID, 1)
			Expect(err).To(BeNil())

			retried, err := svc.RetryJob(ctx, job.ID, 1)
			Expect(err).To(BeNil())
			Expect(retried.Status).To(Equal(model.JobStatusQueued))
			Expect(retried.CompletedAt).To(BeNil())
			Expect(retried.ProgressPercent).To(BeZero())
		})

		It("refuses to retry a queued job", func() {
			job := createJob(1, model.JobTypeAnalysis)

			_, err := svc.RetryJob(ctx, job.ID, 1)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrInvalidTransition{}))
		})

		It("refuses mutations on somebody else's job", func() {
			job := createJob(1, model.JobTypeAnalysis)

			_, err := svc.CancelJob(ctx, job.ID, 2)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})
	})

	Context("delete", func() {
		It("removes the record", func() {
			job := createJob(1, model.JobTypeAnalysis)

			Expect(svc.DeleteJob(ctx, job.ID, 1)).To(BeNil())

			_, err := svc.GetJob(ctx, job.ID, 1)
			Expect(err).To(BeAssignableToTypeOf(&service.ErrResourceNotFound{}))
		})

		It("fails for a missing job", func() {
			err := svc.DeleteJob(ctx, 4242, 1)
			Expect(err).To(MatchError(fmt.Sprintf("job %d not found", 4242)))
		})
	})
})
