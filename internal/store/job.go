package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/refurbd/renovation-planner/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Job interface for job-related database operations.
type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id int64) (*model.Job, error)
	Update(ctx context.Context, job model.Job) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error)
	Delete(ctx context.Context, id int64) error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	result := s.getDB(ctx).Create(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("creating job: %w", result.Error)
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id int64) (*model.Job, error) {
	var job model.Job
	result := s.getDB(ctx).First(&job, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying job: %w", result.Error)
	}

	return &job, nil
}

func (s *JobStore) Update(ctx context.Context, job model.Job) (*model.Job, error) {
	result := s.getDB(ctx).Model(&job).Clauses(clause.Returning{}).Select("*").Omit("id", "created_at").Updates(&job)
	if result.Error != nil {
		return nil, fmt.Errorf("updating job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}

	return &job, nil
}

func (s *JobStore) List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error) {
	var jobs model.JobList
	tx := s.getDB(ctx).Model(&model.Job{})

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}
	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Find(&jobs); result.Error != nil {
		return nil, fmt.Errorf("listing jobs: %w", result.Error)
	}
	return jobs, nil
}

func (s *JobStore) Delete(ctx context.Context, id int64) error {
	result := s.getDB(ctx).Delete(&model.Job{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting job: %w", result.Error)
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
