// Package events owns the process-local real-time delivery paths: a
// broadcast hub feeding bounded per-subscriber queues (pull-style, SSE)
// and a registry of project-scoped connections (push-style, websocket).
// Neither survives a restart; reconnecting clients get a fresh snapshot.
package events

import (
	"encoding/json"

	api "github.com/refurbd/renovation-planner/api/v1"
)

type EventType string

const (
	EventQueueSnapshot EventType = "queue_snapshot"
	EventJobAdded      EventType = "job_added"
	EventJobRemoved    EventType = "job_removed"
	EventProgress      EventType = "progress"
)

// Event is the broadcast feed payload. One struct covers every kind;
// only the fields relevant to the kind are set, the rest are omitted
// from the wire form.
type Event struct {
	Type EventType `json:"type"`

	// queue_snapshot
	Jobs []api.Job `json:"jobs,omitempty"`

	// job_added
	Job *api.Job `json:"job,omitempty"`

	// job_removed, progress
	JobID int64 `json:"job_id,omitempty"`

	// progress
	Status          string   `json:"status,omitempty"`
	Step            *string  `json:"step,omitempty"`
	StepIndex       *int     `json:"step_index,omitempty"`
	StepTotal       *int     `json:"step_total,omitempty"`
	ProgressPercent *float64 `json:"progress_percent,omitempty"`
	EtaSeconds      *int     `json:"eta_seconds,omitempty"`
}

// Format renders the event as one SSE frame.
func (e *Event) Format() string {
	data, _ := json.Marshal(e)
	return "data: " + string(data) + "\n\n"
}

// Project connection message kinds.
const (
	ProjectEventConnected   string = "connected"
	ProjectEventStatus      string = "status"
	ProjectEventRenderAdded string = "render_added"
	ProjectEventCompleted   string = "completed"
	ProjectEventError       string = "error"
)

// ProjectEvent is the message shape delivered on project-scoped
// connections.
type ProjectEvent struct {
	Type      string         `json:"type"`
	ProjectID int64          `json:"project_id,omitempty"`
	Status    string         `json:"status,omitempty"`
	Rendering *api.Rendering `json:"rendering,omitempty"`
	Project   *api.Project   `json:"project,omitempty"`
	Message   string         `json:"message,omitempty"`
}
