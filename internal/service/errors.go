package service

import (
	"fmt"

	"github.com/refurbd/renovation-planner/internal/store/model"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id int64, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %d not found", resourceType, id)}
}

func NewErrJobNotFound(id int64) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

func NewErrProjectNotFound(id int64) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "project")
}

func NewErrRenderingNotFound(id int64) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "rendering")
}

type ErrInvalidTransition struct {
	error
}

func NewErrInvalidTransition(from, to model.JobStatus) *ErrInvalidTransition {
	return &ErrInvalidTransition{fmt.Errorf("invalid transition from %s to %s", from, to)}
}

func NewErrRetryNotAllowed(from model.JobStatus) *ErrInvalidTransition {
	return &ErrInvalidTransition{fmt.Errorf("cannot retry job with status: %s", from)}
}

type ErrInvalidFilter struct {
	error
}

func NewErrInvalidFilter(field, value string) *ErrInvalidFilter {
	return &ErrInvalidFilter{fmt.Errorf("invalid %s filter: %s", field, value)}
}
