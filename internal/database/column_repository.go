package database

import (
	"context"
	"database/sql"

	"github.com/cadence-pm/cadence/internal/models"
)

// ColumnRepository defines persistence operations for board column config.
type ColumnRepository interface {
	GetColumnsByProject(ctx context.Context, projectID int) ([]*models.ColumnConfig, error)
	UpsertColumn(ctx context.Context, projectID int, status models.Status, name string, wipLimit *int) (*models.ColumnConfig, error)
}

// defaultColumns is the column config every new project starts with.
var defaultColumns = []struct {
	status models.Status
	name   string
}{
	{models.StatusTodo, "To Do"},
	{models.StatusInProgress, "In Progress"},
	{models.StatusDone, "Done"},
}

// seedDefaultColumns inserts the fixed status-mapped columns for a project.
func seedDefaultColumns(ctx context.Context, tx *sql.Tx, projectID int) error {
	for _, col := range defaultColumns {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO board_columns (project_id, status, name) VALUES (?, ?, ?)",
			projectID, col.status, col.name); err != nil {
			return err
		}
	}
	return nil
}

// GetColumnsByProject returns a project's column config in board order.
func (r *Repository) GetColumnsByProject(ctx context.Context, projectID int) ([]*models.ColumnConfig, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, status, name, wip_limit FROM board_columns
		 WHERE project_id = ?
		 ORDER BY CASE status WHEN 'TODO' THEN 1 WHEN 'IN_PROGRESS' THEN 2 ELSE 3 END`,
		projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []*models.ColumnConfig
	for rows.Next() {
		col := &models.ColumnConfig{}
		var wip sql.NullInt64
		if err := rows.Scan(&col.ID, &col.ProjectID, &col.Status, &col.Name, &wip); err != nil {
			return nil, err
		}
		if wip.Valid {
			v := int(wip.Int64)
			col.WIPLimit = &v
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// UpsertColumn replaces the column config for one status: a custom column
// re-skins an existing workflow status with a new display name and an
// optional WIP limit.
func (r *Repository) UpsertColumn(ctx context.Context, projectID int, status models.Status, name string, wipLimit *int) (*models.ColumnConfig, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO board_columns (project_id, status, name, wip_limit)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (project_id, status) DO UPDATE SET name = excluded.name, wip_limit = excluded.wip_limit`,
		projectID, status, name, intArg(wipLimit))
	if err != nil {
		return nil, err
	}

	col := &models.ColumnConfig{}
	var wip sql.NullInt64
	err = r.db.QueryRowContext(ctx,
		"SELECT id, project_id, status, name, wip_limit FROM board_columns WHERE project_id = ? AND status = ?",
		projectID, status).Scan(&col.ID, &col.ProjectID, &col.Status, &col.Name, &wip)
	if err != nil {
		return nil, err
	}
	if wip.Valid {
		v := int(wip.Int64)
		col.WIPLimit = &v
	}
	return col, nil
}
