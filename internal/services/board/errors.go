package board

import "errors"

// Board-related validation errors
var (
	ErrInvalidSprintID     = errors.New("invalid sprint ID")
	ErrInvalidProjectID    = errors.New("invalid project ID")
	ErrEmptyColumnName     = errors.New("column name cannot be empty")
	ErrInvalidColumnStatus = errors.New("column must map to a board status")
	ErrInvalidWIPLimit     = errors.New("WIP limit must be at least 1")
)
