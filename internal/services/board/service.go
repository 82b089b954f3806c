// Package board derives the columnar kanban view of one sprint from the
// item store. It is a pure read-side projection: nothing here mutates
// state, and an empty sprint still yields a well-formed board with empty
// columns.
package board

import (
	"context"
	"fmt"
	"time"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/models"
)

// Filters narrows which items appear on the board. Column structure is
// unaffected: filtered-out items simply vanish from their columns.
type Filters struct {
	AssignedToID *int
	Type         *models.ItemType
	Priority     *models.Priority
	Tags         []string
}

// Service defines the board projection operations.
type Service interface {
	Project(ctx context.Context, sprintID int, filters Filters) (*models.BoardView, error)
	UpsertColumn(ctx context.Context, projectID int, status models.Status, name string, wipLimit *int) (*models.ColumnConfig, error)
}

type service struct {
	repo database.DataStore
	now  func() time.Time
}

// NewService creates a new board projection service.
func NewService(repo database.DataStore) Service {
	return &service{repo: repo, now: time.Now}
}

// Project builds the columnar view of a sprint: items partitioned by
// status in position order, annotated with overdue flags and comment and
// attachment counts, and per-column WIP warnings.
func (s *service) Project(ctx context.Context, sprintID int, filters Filters) (*models.BoardView, error) {
	if sprintID <= 0 {
		return nil, ErrInvalidSprintID
	}

	sprint, err := s.repo.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	columns, err := s.repo.GetColumnsByProject(ctx, sprint.ProjectID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListItems(ctx, sprint.ProjectID, models.ItemFilters{
		SprintID:     &sprintID,
		AssignedToID: filters.AssignedToID,
		Type:         filters.Type,
		Priority:     filters.Priority,
		Tags:         filters.Tags,
	}, models.SortSpec{Field: models.SortByPosition})
	if err != nil {
		return nil, err
	}

	commentCounts, err := s.repo.CountCommentsBySprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	attachmentCounts, err := s.repo.CountAttachmentsBySprint(ctx, sprintID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	byStatus := make(map[models.Status][]*models.BoardItem)
	for _, raw := range items {
		annotated := &models.BoardItem{
			BacklogItem:     *raw,
			CommentCount:    commentCounts[raw.ID],
			AttachmentCount: attachmentCounts[raw.ID],
		}
		if raw.DueDate != nil && raw.DueDate.Before(today) && raw.Status != models.StatusDone {
			annotated.IsOverdue = true
		}
		byStatus[raw.Status] = append(byStatus[raw.Status], annotated)
	}

	view := &models.BoardView{SprintID: sprintID}
	for _, status := range models.BoardStatuses {
		column := &models.BoardColumn{
			Status: status,
			Name:   string(status),
			Items:  []*models.BoardItem{},
		}
		for _, config := range columns {
			if config.Status == status {
				column.Name = config.Name
				column.WIPLimit = config.WIPLimit
				break
			}
		}
		if cells := byStatus[status]; cells != nil {
			column.Items = cells
		}
		column.ItemCount = len(column.Items)
		// Advisory only: an over-limit column is flagged, never rejected.
		if column.WIPLimit != nil && column.ItemCount > *column.WIPLimit {
			column.Warning = fmt.Sprintf("WIP limit exceeded: %d items in %q (limit %d)",
				column.ItemCount, column.Name, *column.WIPLimit)
		}
		view.Columns = append(view.Columns, column)
		view.TotalItems += column.ItemCount
	}

	return view, nil
}

// UpsertColumn sets the display name and WIP limit for one status column.
func (s *service) UpsertColumn(ctx context.Context, projectID int, status models.Status, name string, wipLimit *int) (*models.ColumnConfig, error) {
	if projectID <= 0 {
		return nil, ErrInvalidProjectID
	}
	if name == "" {
		return nil, ErrEmptyColumnName
	}
	if !status.Valid() || status == models.StatusBacklog {
		return nil, ErrInvalidColumnStatus
	}
	if wipLimit != nil && *wipLimit < 1 {
		return nil, ErrInvalidWIPLimit
	}
	if _, err := s.repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.repo.UpsertColumn(ctx, projectID, status, name, wipLimit)
}
