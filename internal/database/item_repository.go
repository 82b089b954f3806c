package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cadence-pm/cadence/internal/models"
)

// ItemPatch is a partial update for a backlog item. Nil pointer fields are
// left untouched; nullable columns (story points, due date) use a Set flag
// so the caller can distinguish "clear" from "unchanged". Status, sprint,
// and position are deliberately absent: those only change through moves.
type ItemPatch struct {
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

// MoveParams describes a single item relocation. When SprintProvided is
// false the item stays in its current sprint partition. IdempotencyKey, if
// non-empty, dedupes retried moves.
type MoveParams struct {
	ItemID         int
	ToStatus       models.Status
	ToPosition     int
	ToSprintID     *int
	SprintProvided bool
	IdempotencyKey string
}

// ItemRepository defines persistence operations for backlog items.
type ItemRepository interface {
	CreateItem(ctx context.Context, item *models.BacklogItem) (*models.BacklogItem, error)
	GetItem(ctx context.Context, itemID int) (*models.BacklogItem, error)
	UpdateItemFields(ctx context.Context, itemID int, patch ItemPatch) error
	AssignItem(ctx context.Context, itemID int, userID *int) error
	DeleteItem(ctx context.Context, itemID int) error
	ListItems(ctx context.Context, projectID int, filters models.ItemFilters, sort models.SortSpec) ([]*models.BacklogItem, error)
	MoveItem(ctx context.Context, params MoveParams) (*models.BacklogItem, error)
	ReorderBacklog(ctx context.Context, projectID int, orderedIDs []int) error
}

const itemColumns = `id, project_id, sprint_id, title, description, type, priority,
	story_points, status, position, assigned_to_id, due_date, is_blocked, tags,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.BacklogItem, error) {
	item := &models.BacklogItem{}
	var (
		sprintID   sql.NullInt64
		points     sql.NullInt64
		assignedTo sql.NullInt64
		dueDate    sql.NullTime
		tags       string
	)
	err := row.Scan(
		&item.ID, &item.ProjectID, &sprintID, &item.Title, &item.Description,
		&item.Type, &item.Priority, &points, &item.Status, &item.Position,
		&assignedTo, &dueDate, &item.IsBlocked, &tags,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sprintID.Valid {
		v := int(sprintID.Int64)
		item.SprintID = &v
	}
	if points.Valid {
		v := int(points.Int64)
		item.StoryPoints = &v
	}
	if assignedTo.Valid {
		v := int(assignedTo.Int64)
		item.AssignedToID = &v
	}
	if dueDate.Valid {
		v := dueDate.Time
		item.DueDate = &v
	}
	item.Tags = decodeTags(tags)
	return item, nil
}

// CreateItem inserts a new item as the last member of its target partition.
func (r *Repository) CreateItem(ctx context.Context, item *models.BacklogItem) (*models.BacklogItem, error) {
	var created *models.BacklogItem
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", item.ProjectID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %d: %w", item.ProjectID, ErrNotFound)
		}
		if err != nil {
			return err
		}

		if item.SprintID != nil {
			if err := checkSprintUsable(ctx, tx, *item.SprintID, item.ProjectID); err != nil {
				return err
			}
		}
		if item.Status == models.StatusBacklog && item.SprintID != nil {
			return ErrInvalidPartition
		}

		count, err := partitionCount(ctx, tx, item.ProjectID, item.SprintID, item.Status)
		if err != nil {
			return err
		}

		var dueDate any
		if item.DueDate != nil {
			dueDate = *item.DueDate
		}
		result, err := tx.ExecContext(ctx,
			`INSERT INTO items (project_id, sprint_id, title, description, type, priority,
				story_points, status, position, assigned_to_id, due_date, is_blocked, tags)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ProjectID, sprintArg(item.SprintID), item.Title, item.Description,
			item.Type, item.Priority, intArg(item.StoryPoints), item.Status, count+1,
			intArg(item.AssignedToID), dueDate, item.IsBlocked, encodeTags(item.Tags),
		)
		if err != nil {
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		created, err = getItemTx(ctx, tx, int(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetItem retrieves a single item by id.
func (r *Repository) GetItem(ctx context.Context, itemID int) (*models.BacklogItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ?", itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func getItemTx(ctx context.Context, tx *sql.Tx, itemID int) (*models.BacklogItem, error) {
	item, err := scanItem(tx.QueryRowContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE id = ?", itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return item, err
}

// UpdateItemFields applies a partial update. Position and status are never
// touched here; those belong to the move engine.
func (r *Repository) UpdateItemFields(ctx context.Context, itemID int, patch ItemPatch) error {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	var args []any

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *patch.Type)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.SetStoryPoints {
		sets = append(sets, "story_points = ?")
		args = append(args, intArg(patch.StoryPoints))
	}
	if patch.Tags != nil {
		sets = append(sets, "tags = ?")
		args = append(args, encodeTags(patch.Tags))
	}
	if patch.SetDueDate {
		sets = append(sets, "due_date = ?")
		if patch.DueDate != nil {
			args = append(args, *patch.DueDate)
		} else {
			args = append(args, nil)
		}
	}
	if patch.IsBlocked != nil {
		sets = append(sets, "is_blocked = ?")
		args = append(args, *patch.IsBlocked)
	}

	args = append(args, itemID)
	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

// AssignItem sets or clears the assignee.
func (r *Repository) AssignItem(ctx context.Context, itemID int, userID *int) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE items SET assigned_to_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		intArg(userID), itemID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

// DeleteItem removes an item and compacts positions in its partition so the
// gapless invariant holds.
func (r *Repository) DeleteItem(ctx context.Context, itemID int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		item, err := getItemTx(ctx, tx, itemID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE id = ?", itemID); err != nil {
			return err
		}

		return shiftDown(ctx, tx, item.ProjectID, item.SprintID, item.Status, item.Position)
	})
}

// ListItems returns a project's items matching the filters, ordered per the
// sort spec. Reads stable-sort on (key, created_at, id) so a transient
// duplicate position from a concurrent move cannot produce flapping order.
func (r *Repository) ListItems(ctx context.Context, projectID int, filters models.ItemFilters, sort models.SortSpec) ([]*models.BacklogItem, error) {
	where := []string{"project_id = ?"}
	args := []any{projectID}

	if filters.Type != nil {
		where = append(where, "type = ?")
		args = append(args, *filters.Type)
	}
	if filters.Priority != nil {
		where = append(where, "priority = ?")
		args = append(args, *filters.Priority)
	}
	if filters.AssignedToID != nil {
		where = append(where, "assigned_to_id = ?")
		args = append(args, *filters.AssignedToID)
	}
	if filters.SprintID != nil {
		where = append(where, "sprint_id = ?")
		args = append(args, *filters.SprintID)
	}
	if filters.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filters.Status)
	}
	for _, tag := range filters.Tags {
		where = append(where, `tags LIKE ? ESCAPE '\'`)
		args = append(args, "%,"+escapeLike(strings.ToLower(strings.TrimSpace(tag)))+",%")
	}
	if filters.Search != "" {
		where = append(where, `(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		needle := "%" + escapeLike(strings.ToLower(filters.Search)) + "%"
		args = append(args, needle, needle, needle)
	}

	query := "SELECT " + itemColumns + " FROM items WHERE " +
		strings.Join(where, " AND ") + " ORDER BY " + orderClause(sort)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.BacklogItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// orderClause maps a SortSpec onto SQL. Priority sorts by urgency rank, not
// alphabetically; unestimated items always sort after estimated ones.
func orderClause(sort models.SortSpec) string {
	dir := "ASC"
	if sort.Descending {
		dir = "DESC"
	}
	switch sort.Field {
	case models.SortByPriority:
		return priorityRankSQL + " " + dir + ", position ASC, id ASC"
	case models.SortByStoryPoints:
		return "story_points IS NULL ASC, story_points " + dir + ", position ASC, id ASC"
	case models.SortByCreatedAt:
		return "created_at " + dir + ", id " + dir
	default:
		return "position " + dir + ", created_at ASC, id ASC"
	}
}

const priorityRankSQL = `CASE priority
	WHEN 'CRITICAL' THEN 1
	WHEN 'HIGH' THEN 2
	WHEN 'MEDIUM' THEN 3
	ELSE 4 END`

// MoveItem relocates one item to a new (sprint, status, position) target and
// renumbers every affected sibling inside a single transaction. The target
// position is clamped to the partition bounds rather than rejected.
func (r *Repository) MoveItem(ctx context.Context, params MoveParams) (*models.BacklogItem, error) {
	var moved *models.BacklogItem
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if params.IdempotencyKey != "" {
			var recordedItem int
			err := tx.QueryRowContext(ctx,
				"SELECT item_id FROM item_moves WHERE key = ?",
				params.IdempotencyKey).Scan(&recordedItem)
			if err == nil {
				// Replay: return the recorded outcome without shifting anything.
				item, err := getItemTx(ctx, tx, recordedItem)
				if err != nil {
					return err
				}
				moved = item
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		item, err := getItemTx(ctx, tx, params.ItemID)
		if err != nil {
			return err
		}

		targetSprint := item.SprintID
		if params.SprintProvided {
			targetSprint = params.ToSprintID
		}
		if targetSprint != nil {
			if err := checkSprintUsable(ctx, tx, *targetSprint, item.ProjectID); err != nil {
				return err
			}
		}
		if params.ToStatus == models.StatusBacklog && targetSprint != nil {
			return ErrInvalidPartition
		}

		samePartition := sameSprint(item.SprintID, targetSprint) && item.Status == params.ToStatus

		targetCount, err := partitionCount(ctx, tx, item.ProjectID, targetSprint, params.ToStatus)
		if err != nil {
			return err
		}
		limit := targetCount + 1
		if samePartition {
			limit = targetCount // count already includes the moved item
		}
		position := params.ToPosition
		if position < 1 {
			position = 1
		}
		if position > limit {
			position = limit
		}

		// Vacate the source slot, then open the target slot.
		if err := shiftDown(ctx, tx, item.ProjectID, item.SprintID, item.Status, item.Position); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET position = position + 1
			 WHERE project_id = ? AND sprint_id IS ? AND status = ? AND position >= ? AND id != ?`,
			item.ProjectID, sprintArg(targetSprint), params.ToStatus, position, item.ID,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE items SET sprint_id = ?, status = ?, position = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			sprintArg(targetSprint), params.ToStatus, position, item.ID,
		); err != nil {
			return err
		}

		if params.IdempotencyKey != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO item_moves (key, item_id, status, position, sprint_id)
				 VALUES (?, ?, ?, ?, ?)`,
				params.IdempotencyKey, item.ID, params.ToStatus, position, sprintArg(targetSprint),
			); err != nil {
				return err
			}
		}

		moved, err = getItemTx(ctx, tx, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// ReorderBacklog rewrites positions for the product backlog partition from a
// caller-supplied full ordering. The id set must match the partition exactly,
// otherwise a reorder computed from a stale or filtered view would silently
// misplace items the caller cannot see.
func (r *Repository) ReorderBacklog(ctx context.Context, projectID int, orderedIDs []int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM items
			 WHERE project_id = ? AND sprint_id IS NULL AND status = ?`,
			projectID, models.StatusBacklog)
		if err != nil {
			return err
		}
		current := make(map[int]bool)
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			current[id] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if len(orderedIDs) != len(current) {
			return ErrMembershipMismatch
		}
		seen := make(map[int]bool, len(orderedIDs))
		for _, id := range orderedIDs {
			if !current[id] || seen[id] {
				return ErrMembershipMismatch
			}
			seen[id] = true
		}

		for i, id := range orderedIDs {
			if _, err := tx.ExecContext(ctx,
				"UPDATE items SET position = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
				i+1, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// partitionCount returns the number of items in one ordering partition.
func partitionCount(ctx context.Context, tx *sql.Tx, projectID int, sprintID *int, status models.Status) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM items WHERE project_id = ? AND sprint_id IS ? AND status = ?",
		projectID, sprintArg(sprintID), status).Scan(&count)
	return count, err
}

// shiftDown closes the gap left at removedPosition in a partition.
func shiftDown(ctx context.Context, tx *sql.Tx, projectID int, sprintID *int, status models.Status, removedPosition int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE items SET position = position - 1
		 WHERE project_id = ? AND sprint_id IS ? AND status = ? AND position > ?`,
		projectID, sprintArg(sprintID), status, removedPosition)
	return err
}

// checkSprintUsable verifies a sprint exists, belongs to the project, and is
// not already completed.
func checkSprintUsable(ctx context.Context, tx *sql.Tx, sprintID, projectID int) error {
	var sprintProject int
	var status models.SprintStatus
	err := tx.QueryRowContext(ctx,
		"SELECT project_id, status FROM sprints WHERE id = ?", sprintID,
	).Scan(&sprintProject, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sprint %d: %w", sprintID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if sprintProject != projectID {
		return ErrCrossProjectSprint
	}
	if status == models.SprintCompleted {
		return ErrSprintCompleted
	}
	return nil
}

func intArg(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
