package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cadence-pm/cadence/internal/models"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	CreateProject(ctx context.Context, name, description string) (*models.Project, error)
	GetProject(ctx context.Context, projectID int) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
}

// CreateProject inserts a project and seeds its default board columns.
func (r *Repository) CreateProject(ctx context.Context, name, description string) (*models.Project, error) {
	var projectID int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"INSERT INTO projects (name, description) VALUES (?, ?)", name, description)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		projectID = int(id)
		return seedDefaultColumns(ctx, tx, projectID)
	})
	if err != nil {
		return nil, err
	}
	return r.GetProject(ctx, projectID)
}

// GetProject retrieves a project by id.
func (r *Repository) GetProject(ctx context.Context, projectID int) (*models.Project, error) {
	project := &models.Project{}
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM projects WHERE id = ?", projectID,
	).Scan(&project.ID, &project.Name, &project.Description, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ListProjects returns all projects, oldest first.
func (r *Repository) ListProjects(ctx context.Context) ([]*models.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM projects ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		if err := rows.Scan(&project.ID, &project.Name, &project.Description, &project.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
