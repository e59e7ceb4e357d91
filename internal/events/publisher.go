package events

import (
	api "github.com/refurbd/renovation-planner/api/v1"
)

// Progress carries the optional fields of a progress event; nil fields
// stay off the wire.
type Progress struct {
	JobID           int64
	Status          string
	Step            *string
	StepIndex       *int
	StepTotal       *int
	ProgressPercent *float64
	EtaSeconds      *int
}

// Publisher is the single publish point for job and project
// notifications. Both delivery paths hang off it: the broadcast hub
// (global queue feed) and the connection registry (per-project feed).
type Publisher struct {
	hub      *Hub
	registry *Registry
}

func NewPublisher(hub *Hub, registry *Registry) *Publisher {
	return &Publisher{hub: hub, registry: registry}
}

func (p *Publisher) Hub() *Hub {
	return p.hub
}

func (p *Publisher) Registry() *Registry {
	return p.registry
}

func (p *Publisher) JobAdded(job api.Job) {
	p.hub.Publish(Event{Type: EventJobAdded, Job: &job})
}

func (p *Publisher) JobRemoved(jobID int64) {
	p.hub.Publish(Event{Type: EventJobRemoved, JobID: jobID})
}

func (p *Publisher) JobProgress(progress Progress) {
	p.hub.Publish(Event{
		Type:            EventProgress,
		JobID:           progress.JobID,
		Status:          progress.Status,
		Step:            progress.Step,
		StepIndex:       progress.StepIndex,
		StepTotal:       progress.StepTotal,
		ProgressPercent: progress.ProgressPercent,
		EtaSeconds:      progress.EtaSeconds,
	})
}

func (p *Publisher) ProjectStatus(projectID int64, status string) {
	p.registry.SendProjectUpdate(projectID, ProjectEvent{
		Type:      ProjectEventStatus,
		ProjectID: projectID,
		Status:    status,
	})
}

func (p *Publisher) RenderAdded(projectID int64, rendering api.Rendering) {
	p.registry.SendProjectUpdate(projectID, ProjectEvent{
		Type:      ProjectEventRenderAdded,
		ProjectID: projectID,
		Rendering: &rendering,
	})
}

func (p *Publisher) ProjectCompleted(projectID int64, project api.Project) {
	p.registry.SendProjectUpdate(projectID, ProjectEvent{
		Type:      ProjectEventCompleted,
		ProjectID: projectID,
		Project:   &project,
	})
}

func (p *Publisher) ProjectError(projectID int64, message string) {
	p.registry.SendProjectUpdate(projectID, ProjectEvent{
		Type:      ProjectEventError,
		ProjectID: projectID,
		Message:   message,
	})
}

func (p *Publisher) Close() {
	p.hub.Close()
	p.registry.Close()
}
