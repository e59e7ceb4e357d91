package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/refurbd/renovation-planner/internal/store/model"
	"gorm.io/gorm"
)

// Rendering interface for rendering-related database operations.
type Rendering interface {
	Create(ctx context.Context, rendering model.Rendering) (*model.Rendering, error)
	Get(ctx context.Context, id int64) (*model.Rendering, error)
	List(ctx context.Context, filter *RenderingQueryFilter) (model.RenderingList, error)
	// MarkNotLatest clears the is_latest flag on every rendering of the
	// project, ahead of inserting a new latest version.
	MarkNotLatest(ctx context.Context, projectID int64) error
}

type RenderingStore struct {
	db *gorm.DB
}

// Make sure we conform to Rendering interface
var _ Rendering = (*RenderingStore)(nil)

func NewRenderingStore(db *gorm.DB) Rendering {
	return &RenderingStore{db: db}
}

func (s *RenderingStore) Create(ctx context.Context, rendering model.Rendering) (*model.Rendering, error) {
	result := s.getDB(ctx).Create(&rendering)
	if result.Error != nil {
		return nil, fmt.Errorf("creating rendering: %w", result.Error)
	}
	return &rendering, nil
}

func (s *RenderingStore) Get(ctx context.Context, id int64) (*model.Rendering, error) {
	var rendering model.Rendering
	result := s.getDB(ctx).First(&rendering, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying rendering: %w", result.Error)
	}

	return &rendering, nil
}

func (s *RenderingStore) List(ctx context.Context, filter *RenderingQueryFilter) (model.RenderingList, error) {
	var renderings model.RenderingList
	tx := s.getDB(ctx).Model(&model.Rendering{})

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if result := tx.Order("version DESC").Find(&renderings); result.Error != nil {
		return nil, fmt.Errorf("listing renderings: %w", result.Error)
	}
	return renderings, nil
}

func (s *RenderingStore) MarkNotLatest(ctx context.Context, projectID int64) error {
	result := s.getDB(ctx).Model(&model.Rendering{}).
		Where("project_id = ? AND is_latest IS TRUE", projectID).
		Update("is_latest", false)
	if result.Error != nil {
		return fmt.Errorf("marking renderings not latest: %w", result.Error)
	}
	return nil
}

func (s *RenderingStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
