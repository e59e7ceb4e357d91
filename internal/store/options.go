package store

import (
	"strings"

	"github.com/refurbd/renovation-planner/internal/store/model"
	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type JobQueryFilter BaseQuerier

func NewJobQueryFilter() *JobQueryFilter {
	return &JobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *JobQueryFilter) ByUserID(userID int64) *JobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("user_id = ?", userID)
	})
	return qf
}

func (qf *JobQueryFilter) ByStatus(status model.JobStatus) *JobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status = ?", status)
	})
	return qf
}

func (qf *JobQueryFilter) ByType(jobType model.JobType) *JobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("type = ?", jobType)
	})
	return qf
}

// BySearch matches the term case-insensitively against current_step and
// error_message. LOWER/LIKE instead of ILIKE keeps sqlite happy.
func (qf *JobQueryFilter) BySearch(term string) *JobQueryFilter {
	pattern := "%" + strings.ToLower(term) + "%"
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("LOWER(current_step) LIKE ? OR LOWER(error_message) LIKE ?", pattern, pattern)
	})
	return qf
}

// BeforeID keeps rows strictly older than the cursor.
func (qf *JobQueryFilter) BeforeID(cursor int64) *JobQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("id < ?", cursor)
	})
	return qf
}

type JobQueryOptions BaseQuerier

func NewJobQueryOptions() *JobQueryOptions {
	return &JobQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

// WithNewestFirst orders by descending id. New rows always get larger
// ids, so id-cursor pages stay stable under concurrent inserts.
func (o *JobQueryOptions) WithNewestFirst() *JobQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id DESC")
	})
	return o
}

func (o *JobQueryOptions) WithLimit(limit int) *JobQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}

type RenderingQueryFilter BaseQuerier

func NewRenderingQueryFilter() *RenderingQueryFilter {
	return &RenderingQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *RenderingQueryFilter) ByProjectID(projectID int64) *RenderingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("project_id = ?", projectID)
	})
	return qf
}

func (qf *RenderingQueryFilter) ByLatest() *RenderingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("is_latest IS TRUE")
	})
	return qf
}
