package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/refurbd/renovation-planner/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Project interface for project-related database operations.
type Project interface {
	Create(ctx context.Context, project model.Project) (*model.Project, error)
	Get(ctx context.Context, id int64) (*model.Project, error)
	Update(ctx context.Context, project model.Project) (*model.Project, error)
	UpdateStatus(ctx context.Context, id int64, status model.ProjectStatus) error
	Delete(ctx context.Context, id int64) error
}

type ProjectStore struct {
	db *gorm.DB
}

// Make sure we conform to Project interface
var _ Project = (*ProjectStore)(nil)

func NewProjectStore(db *gorm.DB) Project {
	return &ProjectStore{db: db}
}

func (s *ProjectStore) Create(ctx context.Context, project model.Project) (*model.Project, error) {
	result := s.getDB(ctx).Create(&project)
	if result.Error != nil {
		return nil, fmt.Errorf("creating project: %w", result.Error)
	}
	return &project, nil
}

func (s *ProjectStore) Get(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	result := s.getDB(ctx).First(&project, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying project: %w", result.Error)
	}

	return &project, nil
}

func (s *ProjectStore) Update(ctx context.Context, project model.Project) (*model.Project, error) {
	result := s.getDB(ctx).Model(&project).Clauses(clause.Returning{}).Select("*").Omit("id", "created_at").Updates(&project)
	if result.Error != nil {
		return nil, fmt.Errorf("updating project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrRecordNotFound
	}

	return &project, nil
}

func (s *ProjectStore) UpdateStatus(ctx context.Context, id int64, status model.ProjectStatus) error {
	result := s.getDB(ctx).Model(&model.Project{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("updating project status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *ProjectStore) Delete(ctx context.Context, id int64) error {
	result := s.getDB(ctx).Delete(&model.Project{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("deleting project: %w", result.Error)
	}
	return nil
}

func (s *ProjectStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
