package move

import "errors"

// Move-related validation errors
var (
	ErrInvalidItemID         = errors.New("invalid item ID")
	ErrInvalidProjectID      = errors.New("invalid project ID")
	ErrInvalidStatus         = errors.New("invalid target status")
	ErrInvalidIdempotencyKey = errors.New("idempotency key must be a UUID")
	ErrFilteredReorder       = errors.New("cannot reorder while filters are active: clear filters first")
	ErrEmptyOrder            = errors.New("reorder requires the full ordered id list")
)
