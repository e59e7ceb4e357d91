package model

import (
	"encoding/json"
	"time"

	api "github.com/refurbd/renovation-planner/api/v1"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCancelled JobStatus = "cancelled"
)

type JobType string

const (
	JobTypeAnalysis  JobType = "analysis"
	JobTypeRendering JobType = "rendering"
	JobTypeEditing   JobType = "editing"
)

// Job is the persisted record of one unit of background work.
type Job struct {
	ID          int64  `gorm:"primaryKey"`
	UserID      int64  `gorm:"index;not null"`
	ProjectID   *int64 `gorm:"index"`
	RenderingID *int64 `gorm:"index"`

	Type   JobType   `gorm:"type:VARCHAR(20);not null;index"`
	Status JobStatus `gorm:"type:VARCHAR(20);index;default:pending"`

	ProgressPercent float64 `gorm:"default:0"`
	CurrentStep     *string `gorm:"type:VARCHAR(255)"`
	StepIndex       int     `gorm:"default:0"`
	StepTotal       int     `gorm:"default:0"`
	EtaSeconds      *int

	// Params carries creation-time inputs the runner needs on every
	// attempt, e.g. edit instructions. Unlike ResultData it survives a
	// retry reset.
	Params       []byte  `gorm:"type:jsonb"`
	ResultData   []byte  `gorm:"type:jsonb"`
	ErrorMessage *string `gorm:"type:TEXT"`

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

func (Job) TableName() string {
	return "jobs"
}

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

func (j *Job) ToApiResource() api.Job {
	resource := api.Job{
		ID:              j.ID,
		UserID:          j.UserID,
		ProjectID:       j.ProjectID,
		RenderingID:     j.RenderingID,
		Type:            string(j.Type),
		Status:          string(j.Status),
		ProgressPercent: j.ProgressPercent,
		CurrentStep:     j.CurrentStep,
		StepIndex:       j.StepIndex,
		StepTotal:       j.StepTotal,
		EtaSeconds:      j.EtaSeconds,
		ErrorMessage:    j.ErrorMessage,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		UpdatedAt:       j.UpdatedAt,
	}
	if len(j.ResultData) > 0 {
		_ = json.Unmarshal(j.ResultData, &resource.ResultData)
	}
	return resource
}

type JobList []Job

func (jl JobList) ToApiResource() []api.Job {
	jobs := make([]api.Job, 0, len(jl))
	for i := range jl {
		jobs = append(jobs, jl[i].ToApiResource())
	}
	return jobs
}

// JobStats feeds the prometheus collector.
type JobStats struct {
	Total    int64
	ByStatus map[string]int64
	ByType   map[string]int64
}
