package database

import "errors"

// Storage-level errors. Services pass these through; the web layer maps
// them onto HTTP status classes.
var (
	ErrNotFound = errors.New("record not found")

	// Sprint lifecycle violations
	ErrSprintNotPlanning  = errors.New("sprint is not in planning")
	ErrSprintNotActive    = errors.New("sprint is not active")
	ErrActiveSprintExists = errors.New("another sprint is already active for this project")
	ErrSprintCompleted    = errors.New("sprint is already completed")
	ErrSuccessorIsSelf    = errors.New("sprint cannot be its own successor")
	ErrCrossProjectSprint = errors.New("sprint belongs to a different project")

	// Move/reorder violations
	ErrInvalidPartition   = errors.New("BACKLOG items cannot belong to a sprint")
	ErrMembershipMismatch = errors.New("reorder id set does not match the current backlog")
)
