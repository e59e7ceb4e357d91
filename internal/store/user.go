package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/refurbd/renovation-planner/internal/store/model"
	"gorm.io/gorm"
)

// User interface for the account slice the job core touches.
type User interface {
	Get(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, user model.User) (*model.User, error)
	// IncrementUsage bumps the monthly analyses counter with a single
	// SQL update, safe under concurrent runners in other processes.
	IncrementUsage(ctx context.Context, id int64) error
}

type UserStore struct {
	db *gorm.DB
}

// Make sure we conform to User interface
var _ User = (*UserStore)(nil)

func NewUserStore(db *gorm.DB) User {
	return &UserStore{db: db}
}

func (s *UserStore) Get(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	result := s.getDB(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying user: %w", result.Error)
	}

	return &user, nil
}

func (s *UserStore) Create(ctx context.Context, user model.User) (*model.User, error) {
	result := s.getDB(ctx).Create(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("creating user: %w", result.Error)
	}
	return &user, nil
}

func (s *UserStore) IncrementUsage(ctx context.Context, id int64) error {
	result := s.getDB(ctx).Model(&model.User{}).Where("id = ?", id).
		Update("analyses_used_this_month", gorm.Expr("analyses_used_this_month + 1"))
	if result.Error != nil {
		return fmt.Errorf("incrementing usage counter: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *UserStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
