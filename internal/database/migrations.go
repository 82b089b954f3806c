package database

import (
	"context"
	"database/sql"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sprints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			objective TEXT NOT NULL DEFAULT '',
			start_date DATETIME NOT NULL,
			end_date DATETIME NOT NULL,
			planned_velocity INTEGER NOT NULL DEFAULT 0,
			actual_velocity INTEGER,
			status TEXT NOT NULL DEFAULT 'PLANNING',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			sprint_id INTEGER,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'USER_STORY',
			priority TEXT NOT NULL DEFAULT 'MEDIUM',
			story_points INTEGER,
			status TEXT NOT NULL DEFAULT 'BACKLOG',
			position INTEGER NOT NULL,
			assigned_to_id INTEGER,
			due_date DATETIME,
			is_blocked INTEGER NOT NULL DEFAULT 0,
			tags TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
			FOREIGN KEY (sprint_id) REFERENCES sprints(id) ON DELETE SET NULL
		)`,
		// Index covers the ordering partition used by every move/reorder.
		`CREATE INDEX IF NOT EXISTS idx_items_partition
			ON items(project_id, sprint_id, status, position)`,
		`CREATE TABLE IF NOT EXISTS board_columns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			name TEXT NOT NULL,
			wip_limit INTEGER,
			UNIQUE (project_id, status),
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			author_id INTEGER NOT NULL,
			body TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			item_id INTEGER NOT NULL,
			filename TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (item_id) REFERENCES items(id) ON DELETE CASCADE
		)`,
		// Recorded move outcomes keyed by client idempotency key, so a
		// retried move returns its prior result instead of shifting twice.
		`CREATE TABLE IF NOT EXISTS item_moves (
			key TEXT PRIMARY KEY,
			item_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			position INTEGER NOT NULL,
			sprint_id INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}
