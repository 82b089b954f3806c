// Package item implements the backlog item store: durable CRUD with
// position-partition integrity. Status and position changes are out of
// scope here; they go through the move engine.
package item

import (
	"context"
	"fmt"
	"time"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/models"
)

// Service defines all item-related business operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*models.BacklogItem, error)
	Get(ctx context.Context, itemID int) (*models.BacklogItem, error)
	Update(ctx context.Context, req UpdateRequest) error
	Assign(ctx context.Context, itemID int, userID *int) error
	Delete(ctx context.Context, itemID int) error
	List(ctx context.Context, projectID int, filters models.ItemFilters, sort models.SortSpec) ([]*models.BacklogItem, error)
}

// CreateRequest encapsulates all data needed to create a backlog item.
// Items created without a sprint land in the product backlog; items created
// directly into a sprint start in that sprint's TODO column.
type CreateRequest struct {
	ProjectID    int
	SprintID     *int
	Title        string
	Description  string
	Type         models.ItemType
	Priority     models.Priority
	StoryPoints  *int
	Tags         []string
	AssignedToID *int
	DueDate      *time.Time
}

// UpdateRequest encapsulates a partial item update.
// Pointer fields are optional - nil means don't update. The Set flags
// distinguish clearing a nullable field from leaving it alone.
type UpdateRequest struct {
	ItemID         int
	Title          *string
	Description    *string
	Type           *models.ItemType
	Priority       *models.Priority
	StoryPoints    *int
	SetStoryPoints bool
	Tags           []string
	DueDate        *time.Time
	SetDueDate     bool
	IsBlocked      *bool
}

type service struct {
	repo database.DataStore
}

// NewService creates a new item service.
func NewService(repo database.DataStore) Service {
	return &service{repo: repo}
}

// Create validates the request and inserts the item as last in its partition.
func (s *service) Create(ctx context.Context, req CreateRequest) (*models.BacklogItem, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	status := models.StatusBacklog
	if req.SprintID != nil {
		status = models.StatusTodo
	}

	item, err := s.repo.CreateItem(ctx, &models.BacklogItem{
		ProjectID:    req.ProjectID,
		SprintID:     req.SprintID,
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		Priority:     req.Priority,
		StoryPoints:  req.StoryPoints,
		Status:       status,
		Tags:         req.Tags,
		AssignedToID: req.AssignedToID,
		DueDate:      req.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}
	return item, nil
}

// Get retrieves a single item.
func (s *service) Get(ctx context.Context, itemID int) (*models.BacklogItem, error) {
	if itemID <= 0 {
		return nil, ErrInvalidItemID
	}
	return s.repo.GetItem(ctx, itemID)
}

// Update applies a partial field update.
func (s *service) Update(ctx context.Context, req UpdateRequest) error {
	if req.ItemID <= 0 {
		return ErrInvalidItemID
	}
	if req.Title != nil && *req.Title == "" {
		return ErrEmptyTitle
	}
	if req.Title != nil && len(*req.Title) > 255 {
		return ErrTitleTooLong
	}
	if req.Type != nil && !req.Type.Valid() {
		return ErrInvalidType
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return ErrInvalidPriority
	}
	if req.SetStoryPoints && !models.ValidStoryPoints(req.StoryPoints) {
		return ErrInvalidStoryPoints
	}

	err := s.repo.UpdateItemFields(ctx, req.ItemID, database.ItemPatch{
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		Priority:       req.Priority,
		StoryPoints:    req.StoryPoints,
		SetStoryPoints: req.SetStoryPoints,
		Tags:           req.Tags,
		DueDate:        req.DueDate,
		SetDueDate:     req.SetDueDate,
		IsBlocked:      req.IsBlocked,
	})
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

// Assign sets or clears the item's assignee.
func (s *service) Assign(ctx context.Context, itemID int, userID *int) error {
	if itemID <= 0 {
		return ErrInvalidItemID
	}
	if err := s.repo.AssignItem(ctx, itemID, userID); err != nil {
		return fmt.Errorf("failed to assign item: %w", err)
	}
	return nil
}

// Delete removes the item; sibling positions are compacted by the store.
func (s *service) Delete(ctx context.Context, itemID int) error {
	if itemID <= 0 {
		return ErrInvalidItemID
	}
	if err := s.repo.DeleteItem(ctx, itemID); err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// List returns a project's items per the filters and sort spec.
func (s *service) List(ctx context.Context, projectID int, filters models.ItemFilters, sort models.SortSpec) ([]*models.BacklogItem, error) {
	if projectID <= 0 {
		return nil, ErrInvalidProjectID
	}
	if sort.Field != "" && !sort.Field.Valid() {
		return nil, ErrInvalidSortField
	}
	if filters.Type != nil && !filters.Type.Valid() {
		return nil, ErrInvalidType
	}
	if filters.Priority != nil && !filters.Priority.Valid() {
		return nil, ErrInvalidPriority
	}
	if filters.Status != nil && !filters.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListItems(ctx, projectID, filters, sort)
}

func validateCreate(req CreateRequest) error {
	if req.ProjectID <= 0 {
		return ErrInvalidProjectID
	}
	if req.Title == "" {
		return ErrEmptyTitle
	}
	if len(req.Title) > 255 {
		return ErrTitleTooLong
	}
	if !req.Type.Valid() {
		return ErrInvalidType
	}
	if !req.Priority.Valid() {
		return ErrInvalidPriority
	}
	if !models.ValidStoryPoints(req.StoryPoints) {
		return ErrInvalidStoryPoints
	}
	return nil
}
