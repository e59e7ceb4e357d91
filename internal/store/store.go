package store

import (
	"context"

	"github.com/refurbd/renovation-planner/internal/store/model"
	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Job() Job
	Project() Project
	Rendering() Rendering
	User() User
	Statistics(ctx context.Context) (model.JobStats, error)
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db        *gorm.DB
	job       Job
	project   Project
	rendering Rendering
	user      User
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		job:       NewJobStore(db),
		project:   NewProjectStore(db),
		rendering: NewRenderingStore(db),
		user:      NewUserStore(db),
		db:        db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Project() Project {
	return s.project
}

func (s *DataStore) Rendering() Rendering {
	return s.rendering
}

func (s *DataStore) User() User {
	return s.user
}

// InitialMigration is the dev/test path; production schemas are managed
// by the goose migrations under pkg/migrations.
func (s *DataStore) InitialMigration() error {
	return s.db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Rendering{},
		&model.Job{},
	)
}

func (s *DataStore) Statistics(ctx context.Context) (model.JobStats, error) {
	stats := model.JobStats{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
	}

	type row struct {
		Key   string
		Total int64
	}

	var byStatus []row
	if result := s.db.WithContext(ctx).Model(&model.Job{}).
		Select("status as key, count(*) as total").Group("status").Scan(&byStatus); result.Error != nil {
		return stats, result.Error
	}
	for _, r := range byStatus {
		stats.ByStatus[r.Key] = r.Total
		stats.Total += r.Total
	}

	var byType []row
	if result := s.db.WithContext(ctx).Model(&model.Job{}).
		Select("type as key, count(*) as total").Group("type").Scan(&byType); result.Error != nil {
		return stats, result.Error
	}
	for _, r := range byType {
		stats.ByType[r.Key] = r.Total
	}

	return stats, nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
