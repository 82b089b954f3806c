// Package move implements the move/reorder engine: single-item relocation
// across board columns and sprints, and bulk backlog reordering. Every
// operation renumbers all affected siblings atomically so positions within
// a partition stay dense and gapless.
package move

import (
	"context"
	"fmt"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/models"
	"github.com/google/uuid"
)

// Service defines the move/reorder operations.
type Service interface {
	MoveItem(ctx context.Context, req MoveRequest) (*models.BacklogItem, error)
	ReorderBacklog(ctx context.Context, req ReorderRequest) error
}

// MoveRequest relocates one item to a target (status, position), optionally
// switching sprints. IdempotencyKey, when set, must be a UUID supplied by
// the client; retrying a move with the same key returns the recorded
// outcome instead of shifting siblings twice.
type MoveRequest struct {
	ItemID         int
	ToStatus       models.Status
	ToPosition     int
	ToSprintID     *int
	SprintProvided bool
	IdempotencyKey string
}

// ReorderRequest rewrites the product backlog ordering from the full id
// list. FiltersActive reflects whether the caller's view is filtered:
// reordering a filtered subset would silently misplace hidden items, so it
// is rejected outright.
type ReorderRequest struct {
	ProjectID     int
	ItemIDs       []int
	FiltersActive bool
}

type service struct {
	repo database.DataStore
}

// NewService creates a new move engine.
func NewService(repo database.DataStore) Service {
	return &service{repo: repo}
}

// MoveItem validates and executes a single-item relocation. A WIP limit on
// the destination column never blocks the move; the overage surfaces as a
// warning on the next board read.
func (s *service) MoveItem(ctx context.Context, req MoveRequest) (*models.BacklogItem, error) {
	if req.ItemID <= 0 {
		return nil, ErrInvalidItemID
	}
	if !req.ToStatus.Valid() {
		return nil, ErrInvalidStatus
	}
	if req.IdempotencyKey != "" {
		if _, err := uuid.Parse(req.IdempotencyKey); err != nil {
			return nil, ErrInvalidIdempotencyKey
		}
	}

	item, err := s.repo.MoveItem(ctx, database.MoveParams{
		ItemID:         req.ItemID,
		ToStatus:       req.ToStatus,
		ToPosition:     req.ToPosition,
		ToSprintID:     req.ToSprintID,
		SprintProvided: req.SprintProvided,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to move item: %w", err)
	}
	return item, nil
}

// ReorderBacklog applies a caller-supplied full ordering to the product
// backlog. The id set must exactly match the current backlog membership.
func (s *service) ReorderBacklog(ctx context.Context, req ReorderRequest) error {
	if req.ProjectID <= 0 {
		return ErrInvalidProjectID
	}
	if req.FiltersActive {
		return ErrFilteredReorder
	}
	if len(req.ItemIDs) == 0 {
		return ErrEmptyOrder
	}

	if err := s.repo.ReorderBacklog(ctx, req.ProjectID, req.ItemIDs); err != nil {
		return fmt.Errorf("failed to reorder backlog: %w", err)
	}
	return nil
}
