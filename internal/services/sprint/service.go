// Package sprint implements the sprint lifecycle manager. Sprints move
// through a strict forward-only state machine:
//
//	PLANNING --activate--> ACTIVE --complete--> COMPLETED
//
// with at most one ACTIVE sprint per project at any time.
package sprint

import (
	"context"
	"fmt"
	"time"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/models"
)

// Service defines all sprint-related business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.Sprint, error)
	Get(ctx context.Context, sprintID int) (*models.Sprint, error)
	List(ctx context.Context, projectID int) ([]*models.Sprint, error)
	Activate(ctx context.Context, sprintID int) error
	Complete(ctx context.Context, req CompleteRequest) (*models.CompletionResult, error)
	Capacity(ctx context.Context, sprintID int) (*models.SprintCapacity, error)
}

// CreateRequest encapsulates all data needed to plan a sprint.
type CreateRequest struct {
	ProjectID       int
	Name            string
	Objective       string
	StartDate       time.Time
	EndDate         time.Time
	PlannedVelocity int
}

// CompleteRequest closes out an active sprint. NextSprintID is required
// when UnfinishedAction is next_sprint and ignored otherwise.
type CompleteRequest struct {
	SprintID         int
	UnfinishedAction models.UnfinishedAction
	NextSprintID     *int
}

type service struct {
	repo database.DataStore
}

// NewService creates a new sprint service.
func NewService(repo database.DataStore) Service {
	return &service{repo: repo}
}

// Create plans a new sprint.
func (s *service) Create(ctx context.Context, req CreateRequest) (*models.Sprint, error) {
	if req.ProjectID <= 0 {
		return nil, ErrInvalidProjectID
	}
	if req.Name == "" {
		return nil, ErrEmptyName
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, ErrInvalidDates
	}
	if req.PlannedVelocity < 0 {
		return nil, ErrInvalidVelocity
	}

	sprint, err := s.repo.CreateSprint(ctx, &models.Sprint{
		ProjectID:       req.ProjectID,
		Name:            req.Name,
		Objective:       req.Objective,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		PlannedVelocity: req.PlannedVelocity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sprint: %w", err)
	}
	return sprint, nil
}

// Get retrieves a sprint.
func (s *service) Get(ctx context.Context, sprintID int) (*models.Sprint, error) {
	if sprintID <= 0 {
		return nil, ErrInvalidSprintID
	}
	return s.repo.GetSprint(ctx, sprintID)
}

// List returns a project's sprints.
func (s *service) List(ctx context.Context, projectID int) ([]*models.Sprint, error) {
	if projectID <= 0 {
		return nil, ErrInvalidProjectID
	}
	return s.repo.ListSprints(ctx, projectID)
}

// Activate transitions a sprint from PLANNING to ACTIVE.
func (s *service) Activate(ctx context.Context, sprintID int) error {
	if sprintID <= 0 {
		return ErrInvalidSprintID
	}
	return s.repo.ActivateSprint(ctx, sprintID)
}

// Complete transitions a sprint from ACTIVE to COMPLETED, records actual
// velocity, and relocates unfinished items per the requested disposition.
func (s *service) Complete(ctx context.Context, req CompleteRequest) (*models.CompletionResult, error) {
	if req.SprintID <= 0 {
		return nil, ErrInvalidSprintID
	}
	if !req.UnfinishedAction.Valid() {
		return nil, ErrInvalidAction
	}
	if req.UnfinishedAction == models.UnfinishedToNextSprint && req.NextSprintID == nil {
		return nil, ErrMissingNextSprint
	}
	return s.repo.CompleteSprint(ctx, req.SprintID, req.UnfinishedAction, req.NextSprintID)
}

// Capacity reports story-point progress against planned velocity.
func (s *service) Capacity(ctx context.Context, sprintID int) (*models.SprintCapacity, error) {
	if sprintID <= 0 {
		return nil, ErrInvalidSprintID
	}

	progress, err := s.repo.GetSprintProgress(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	capacity := &models.SprintCapacity{
		Total:     progress.PlannedVelocity,
		Completed: progress.CompletedPoints,
		Remaining: progress.PlannedVelocity - progress.CompletedPoints,
	}
	if capacity.Remaining < 0 {
		capacity.Remaining = 0
	}
	if capacity.Total > 0 {
		capacity.ProgressPercentage = float64(capacity.Completed) / float64(capacity.Total) * 100
	}
	return capacity, nil
}
