package models

import "time"

// SprintStatus is the lifecycle stage of a sprint. Transitions are strictly
// forward-only: PLANNING -> ACTIVE -> COMPLETED.
type SprintStatus string

const (
	SprintPlanning  SprintStatus = "PLANNING"
	SprintActive    SprintStatus = "ACTIVE"
	SprintCompleted SprintStatus = "COMPLETED"
)

// Valid reports whether s is a known sprint status.
func (s SprintStatus) Valid() bool {
	switch s {
	case SprintPlanning, SprintActive, SprintCompleted:
		return true
	}
	return false
}

// Sprint is a time-boxed iteration owning a subset of a project's items.
// At most one sprint per project may be ACTIVE at any time.
type Sprint struct {
	ID              int          `json:"id"`
	ProjectID       int          `json:"project_id"`
	Name            string       `json:"name"`
	Objective       string       `json:"objective"`
	StartDate       time.Time    `json:"start_date"`
	EndDate         time.Time    `json:"end_date"`
	PlannedVelocity int          `json:"planned_velocity"`
	ActualVelocity  *int         `json:"actual_velocity"`
	Status          SprintStatus `json:"status"`
	CreatedAt       time.Time    `json:"created_at"`
}

// UnfinishedAction says where non-DONE items go when a sprint completes.
type UnfinishedAction string

const (
	UnfinishedToBacklog    UnfinishedAction = "backlog"
	UnfinishedToNextSprint UnfinishedAction = "next_sprint"
)

// Valid reports whether a is a known disposition.
func (a UnfinishedAction) Valid() bool {
	return a == UnfinishedToBacklog || a == UnfinishedToNextSprint
}

// SprintCapacity summarizes story-point progress for a sprint.
type SprintCapacity struct {
	Total              int     `json:"total"`
	Completed          int     `json:"completed"`
	Remaining          int     `json:"remaining"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// CompletionResult reports the outcome of completing a sprint.
type CompletionResult struct {
	ActualVelocity    int              `json:"actual_velocity"`
	UnfinishedHandled UnfinishedAction `json:"unfinished_handled"`
	UnfinishedCount   int              `json:"unfinished_count"`
}
