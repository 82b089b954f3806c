package sprint

import "errors"

// Sprint-related validation errors. Lifecycle violations (already active,
// not in planning, and so on) come from the store, which checks them inside
// the transition transaction.
var (
	ErrInvalidSprintID   = errors.New("invalid sprint ID")
	ErrInvalidProjectID  = errors.New("invalid project ID")
	ErrEmptyName         = errors.New("sprint name cannot be empty")
	ErrInvalidDates      = errors.New("sprint end date must be after start date")
	ErrInvalidVelocity   = errors.New("planned velocity cannot be negative")
	ErrInvalidAction     = errors.New("unfinished action must be backlog or next_sprint")
	ErrMissingNextSprint = errors.New("next_sprint disposition requires a successor sprint")
)
