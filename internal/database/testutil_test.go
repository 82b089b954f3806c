package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/cadence-pm/cadence/internal/models"
	_ "modernc.org/sqlite"
)

// setupTestDB creates an in-memory database and runs migrations.
// This is the unified test database setup used by all tests.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupTestDB(t))
}

func intPtr(v int) *int { return &v }

func createTestProject(t *testing.T, repo *Repository) *models.Project {
	t.Helper()
	project, err := repo.CreateProject(context.Background(), "Apollo", "test project")
	if err != nil {
		t.Fatalf("Failed to create project: %v", err)
	}
	return project
}

func createTestSprint(t *testing.T, repo *Repository, projectID int) *models.Sprint {
	t.Helper()
	sprint, err := repo.CreateSprint(context.Background(), &models.Sprint{
		ProjectID:       projectID,
		Name:            "Sprint 1",
		PlannedVelocity: 20,
	})
	if err != nil {
		t.Fatalf("Failed to create sprint: %v", err)
	}
	return sprint
}

func createTestItem(t *testing.T, repo *Repository, projectID int, sprintID *int, title string, status models.Status) *models.BacklogItem {
	t.Helper()
	item, err := repo.CreateItem(context.Background(), &models.BacklogItem{
		ProjectID: projectID,
		SprintID:  sprintID,
		Title:     title,
		Type:      models.TypeUserStory,
		Priority:  models.PriorityMedium,
		Status:    status,
	})
	if err != nil {
		t.Fatalf("Failed to create item %q: %v", title, err)
	}
	return item
}

// assertPartitionOrder verifies a partition holds exactly wantIDs in order
// with a dense 1..n position sequence.
func assertPartitionOrder(t *testing.T, repo *Repository, projectID int, sprintID *int, status models.Status, wantIDs []int) {
	t.Helper()
	rows, err := repo.db.Query(
		`SELECT id, position FROM items
		 WHERE project_id = ? AND sprint_id IS ? AND status = ?
		 ORDER BY position`,
		projectID, sprintArg(sprintID), status)
	if err != nil {
		t.Fatalf("Failed to query partition: %v", err)
	}
	defer rows.Close()

	var gotIDs []int
	i := 0
	for rows.Next() {
		var id, position int
		if err := rows.Scan(&id, &position); err != nil {
			t.Fatalf("Failed to scan partition row: %v", err)
		}
		i++
		if position != i {
			t.Errorf("Position gap: item %d has position %d, want %d", id, position, i)
		}
		gotIDs = append(gotIDs, id)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("Partition rows error: %v", err)
	}

	if len(gotIDs) != len(wantIDs) {
		t.Fatalf("Partition size = %d, want %d (got %v, want %v)", len(gotIDs), len(wantIDs), gotIDs, wantIDs)
	}
	for i := range wantIDs {
		if gotIDs[i] != wantIDs[i] {
			t.Errorf("Partition order = %v, want %v", gotIDs, wantIDs)
			break
		}
	}
}
