package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cadence-pm/cadence/internal/models"
)

// SprintProgress carries the raw numbers behind a capacity report.
type SprintProgress struct {
	PlannedVelocity int
	CompletedPoints int
}

// SprintRepository defines persistence operations for sprints, including
// the forward-only lifecycle transitions.
type SprintRepository interface {
	CreateSprint(ctx context.Context, sprint *models.Sprint) (*models.Sprint, error)
	GetSprint(ctx context.Context, sprintID int) (*models.Sprint, error)
	ListSprints(ctx context.Context, projectID int) ([]*models.Sprint, error)
	ActivateSprint(ctx context.Context, sprintID int) error
	CompleteSprint(ctx context.Context, sprintID int, action models.UnfinishedAction, nextSprintID *int) (*models.CompletionResult, error)
	GetSprintProgress(ctx context.Context, sprintID int) (*SprintProgress, error)
}

const sprintColumns = `id, project_id, name, objective, start_date, end_date,
	planned_velocity, actual_velocity, status, created_at`

func scanSprint(row rowScanner) (*models.Sprint, error) {
	sprint := &models.Sprint{}
	var actual sql.NullInt64
	err := row.Scan(
		&sprint.ID, &sprint.ProjectID, &sprint.Name, &sprint.Objective,
		&sprint.StartDate, &sprint.EndDate, &sprint.PlannedVelocity,
		&actual, &sprint.Status, &sprint.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if actual.Valid {
		v := int(actual.Int64)
		sprint.ActualVelocity = &v
	}
	return sprint, nil
}

// CreateSprint inserts a new sprint in PLANNING.
func (r *Repository) CreateSprint(ctx context.Context, sprint *models.Sprint) (*models.Sprint, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", sprint.ProjectID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", sprint.ProjectID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sprints (project_id, name, objective, start_date, end_date, planned_velocity, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sprint.ProjectID, sprint.Name, sprint.Objective,
		sprint.StartDate, sprint.EndDate, sprint.PlannedVelocity, models.SprintPlanning,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetSprint(ctx, int(id))
}

// GetSprint retrieves a sprint by id.
func (r *Repository) GetSprint(ctx context.Context, sprintID int) (*models.Sprint, error) {
	sprint, err := scanSprint(r.db.QueryRowContext(ctx,
		"SELECT "+sprintColumns+" FROM sprints WHERE id = ?", sprintID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sprint %d: %w", sprintID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sprint, nil
}

// ListSprints returns a project's sprints, newest first.
func (r *Repository) ListSprints(ctx context.Context, projectID int) ([]*models.Sprint, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sprintColumns+" FROM sprints WHERE project_id = ? ORDER BY start_date DESC, id DESC",
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sprints []*models.Sprint
	for rows.Next() {
		sprint, err := scanSprint(rows)
		if err != nil {
			return nil, err
		}
		sprints = append(sprints, sprint)
	}
	return sprints, rows.Err()
}

// ActivateSprint transitions PLANNING -> ACTIVE. The single-active-sprint
// invariant is checked inside the same transaction as the update.
func (r *Repository) ActivateSprint(ctx context.Context, sprintID int) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var projectID int
		var status models.SprintStatus
		err := tx.QueryRowContext(ctx,
			"SELECT project_id, status FROM sprints WHERE id = ?", sprintID,
		).Scan(&projectID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sprint %d: %w", sprintID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if status != models.SprintPlanning {
			return ErrSprintNotPlanning
		}

		var activeCount int
		err = tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM sprints WHERE project_id = ? AND status = ?",
			projectID, models.SprintActive).Scan(&activeCount)
		if err != nil {
			return err
		}
		if activeCount > 0 {
			return ErrActiveSprintExists
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE sprints SET status = ? WHERE id = ?", models.SprintActive, sprintID)
		return err
	})
}

// CompleteSprint transitions ACTIVE -> COMPLETED. It computes actual
// velocity from DONE items and relocates every unfinished item per the
// requested disposition, appending each to the end of its target partition
// in the item's original board order. The whole transition is one
// transaction so a crash cannot leave a half-relocated sprint.
func (r *Repository) CompleteSprint(ctx context.Context, sprintID int, action models.UnfinishedAction, nextSprintID *int) (*models.CompletionResult, error) {
	result := &models.CompletionResult{UnfinishedHandled: action}
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var projectID int
		var status models.SprintStatus
		err := tx.QueryRowContext(ctx,
			"SELECT project_id, status FROM sprints WHERE id = ?", sprintID,
		).Scan(&projectID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sprint %d: %w", sprintID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if status != models.SprintActive {
			return ErrSprintNotActive
		}

		var targetSprint *int
		targetStatus := models.StatusBacklog
		if action == models.UnfinishedToNextSprint {
			if nextSprintID == nil {
				return fmt.Errorf("successor sprint: %w", ErrNotFound)
			}
			if *nextSprintID == sprintID {
				return ErrSuccessorIsSelf
			}
			if err := checkSprintUsable(ctx, tx, *nextSprintID, projectID); err != nil {
				return err
			}
			targetSprint = nextSprintID
			targetStatus = models.StatusTodo
		}

		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(story_points), 0) FROM items
			 WHERE sprint_id = ? AND status = ?`,
			sprintID, models.StatusDone).Scan(&result.ActualVelocity)
		if err != nil {
			return err
		}

		// Unfinished items, in board order (columns left to right, then
		// position), so relative ordering survives the relocation. The
		// status column is TEXT, so an explicit rank is needed; a plain
		// ORDER BY status would sort IN_PROGRESS before TODO.
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM items WHERE sprint_id = ? AND status != ?
			 ORDER BY CASE status
				WHEN 'BACKLOG' THEN 0
				WHEN 'TODO' THEN 1
				WHEN 'IN_PROGRESS' THEN 2
				ELSE 3 END, position`,
			sprintID, models.StatusDone)
		if err != nil {
			return err
		}
		var unfinished []int
		for rows.Next() {
			var id int
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			unfinished = append(unfinished, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		base, err := partitionCount(ctx, tx, projectID, targetSprint, targetStatus)
		if err != nil {
			return err
		}
		for i, id := range unfinished {
			if _, err := tx.ExecContext(ctx,
				`UPDATE items SET sprint_id = ?, status = ?, position = ?, updated_at = CURRENT_TIMESTAMP
				 WHERE id = ?`,
				sprintArg(targetSprint), targetStatus, base+i+1, id,
			); err != nil {
				return err
			}
		}
		result.UnfinishedCount = len(unfinished)

		_, err = tx.ExecContext(ctx,
			"UPDATE sprints SET status = ?, actual_velocity = ? WHERE id = ?",
			models.SprintCompleted, result.ActualVelocity, sprintID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetSprintProgress returns planned velocity and the sum of story points of
// DONE items for a sprint.
func (r *Repository) GetSprintProgress(ctx context.Context, sprintID int) (*SprintProgress, error) {
	progress := &SprintProgress{}
	err := r.db.QueryRowContext(ctx,
		"SELECT planned_velocity FROM sprints WHERE id = ?", sprintID,
	).Scan(&progress.PlannedVelocity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sprint %d: %w", sprintID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(story_points), 0) FROM items
		 WHERE sprint_id = ? AND status = ?`,
		sprintID, models.StatusDone).Scan(&progress.CompletedPoints)
	if err != nil {
		return nil, err
	}
	return progress, nil
}
