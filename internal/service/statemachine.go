package service

import (
	"time"

	"github.com/refurbd/renovation-planner/internal/store/model"
)

// allowedTransitions is the full edge set of the job lifecycle. failed
// and cancelled reopen to queued only through ResetForRetry, never
// through the generic rule, and completed is terminal.
var allowedTransitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusPending: {model.JobStatusRunning, model.JobStatusCancelled},
	model.JobStatusQueued:  {model.JobStatusRunning, model.JobStatusCancelled},
	model.JobStatusRunning: {model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusPaused, model.JobStatusCancelled},
	model.JobStatusPaused:  {model.JobStatusQueued, model.JobStatusCancelled},
}

func CanTransition(from, to model.JobStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applies the status change in memory, failing if the edge
// is not in the table. Entry into running stamps started_at once;
// entry into completed or cancelled stamps completed_at. The caller is
// responsible for persisting the job afterwards.
//
// The table also settles the pause/cancel race: a runner trying to
// finish a job whose status was flipped to paused or cancelled behind
// its back gets ErrInvalidTransition here and must stop without
// overwriting the user-set status.
func Transition(job *model.Job, target model.JobStatus) error {
	if !CanTransition(job.Status, target) {
		return NewErrInvalidTransition(job.Status, target)
	}

	now := time.Now().UTC()
	job.Status = target
	job.UpdatedAt = now

	switch target {
	case model.JobStatusRunning:
		if job.StartedAt == nil {
			job.StartedAt = &now
		}
	case model.JobStatusCompleted, model.JobStatusCancelled:
		job.CompletedAt = &now
	}

	return nil
}

// ResetForRetry reopens a failed or cancelled job: progress and outcome
// fields go back to their initial values and the job re-enters the
// queue to run again from the first stage.
func ResetForRetry(job *model.Job) error {
	if job.Status != model.JobStatusFailed && job.Status != model.JobStatusCancelled {
		return NewErrRetryNotAllowed(job.Status)
	}

	job.Status = model.JobStatusQueued
	job.ProgressPercent = 0
	job.CurrentStep = nil
	job.StepIndex = 0
	job.EtaSeconds = nil
	job.ErrorMessage = nil
	job.ResultData = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	job.UpdatedAt = time.Now().UTC()

	return nil
}
