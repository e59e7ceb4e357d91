// Package v1 holds the public wire representations of the renovation
// planner resources. Optional fields are pointers and omitted from the
// payload when unset.
package v1

import "time"

// Job statuses.
const (
	JobStatusPending   string = "pending"
	JobStatusQueued    string = "queued"
	JobStatusRunning   string = "running"
	JobStatusCompleted string = "completed"
	JobStatusFailed    string = "failed"
	JobStatusPaused    string = "paused"
	JobStatusCancelled string = "cancelled"
)

// Job types.
const (
	JobTypeAnalysis  string = "analysis"
	JobTypeRendering string = "rendering"
	JobTypeEditing   string = "editing"
)

type Job struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	ProjectID       *int64         `json:"project_id,omitempty"`
	RenderingID     *int64         `json:"rendering_id,omitempty"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	ProgressPercent float64        `json:"progress_percent"`
	CurrentStep     *string        `json:"current_step,omitempty"`
	StepIndex       int            `json:"step_index"`
	StepTotal       int            `json:"step_total"`
	EtaSeconds      *int           `json:"eta_seconds,omitempty"`
	ResultData      map[string]any `json:"result_data,omitempty"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// JobList is the paginated admin listing envelope. NextCursor is nil
// when the result set is exhausted.
type JobList struct {
	Items      []Job  `json:"items"`
	NextCursor *int64 `json:"next_cursor,omitempty"`
}

type Project struct {
	ID                 int64          `json:"id"`
	UserID             int64          `json:"user_id"`
	Name               string         `json:"name"`
	RoomType           string         `json:"room_type"`
	RenovationScope    string         `json:"renovation_scope"`
	Status             string         `json:"status"`
	SquareFootage      *float64       `json:"square_footage,omitempty"`
	DesiredStyle       *string        `json:"desired_style,omitempty"`
	VisualAssessment   *string        `json:"visual_assessment,omitempty"`
	DesignPlan         *string        `json:"design_plan,omitempty"`
	BudgetBreakdown    map[string]any `json:"budget_breakdown,omitempty"`
	TimelineEstimate   *string        `json:"timeline_estimate,omitempty"`
	EstimatedCostLow   *float64       `json:"estimated_cost_low,omitempty"`
	EstimatedCostHigh  *float64       `json:"estimated_cost_high,omitempty"`
	LocationMultiplier float64        `json:"location_multiplier"`
	CreatedAt          time.Time      `json:"created_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
}

type Rendering struct {
	ID                    int64     `json:"id"`
	UserID                int64     `json:"user_id"`
	ProjectID             int64     `json:"project_id"`
	ImagePath             string    `json:"image_path"`
	PromptUsed            string    `json:"prompt_used"`
	ImageSize             string    `json:"image_size"`
	Version               int       `json:"version"`
	ParentRenderingID     *int64    `json:"parent_rendering_id,omitempty"`
	IsLatest              bool      `json:"is_latest"`
	GenerationTimeSeconds *int      `json:"generation_time_seconds,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}
