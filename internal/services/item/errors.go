package item

import "errors"

// Item-related validation errors
var (
	ErrEmptyTitle         = errors.New("item title cannot be empty")
	ErrTitleTooLong       = errors.New("item title cannot exceed 255 characters")
	ErrInvalidItemID      = errors.New("invalid item ID")
	ErrInvalidProjectID   = errors.New("invalid project ID")
	ErrInvalidType        = errors.New("invalid item type")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidSortField   = errors.New("invalid sort field")
	ErrInvalidStoryPoints = errors.New("story points must be one of 1, 2, 3, 5, 8, 13, 21")
)
