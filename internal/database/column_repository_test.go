package database

import (
	"context"
	"testing"

	"github.com/cadence-pm/cadence/internal/models"
)

func TestProjectSeedsDefaultColumns(t *testing.T) {
	repo := newTestRepo(t)
	project := createTestProject(t, repo)

	columns, err := repo.GetColumnsByProject(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("GetColumnsByProject failed: %v", err)
	}
	if len(columns) != 3 {
		t.Fatalf("columns = %d, want 3", len(columns))
	}

	wantStatuses := []models.Status{models.StatusTodo, models.StatusInProgress, models.StatusDone}
	for i, want := range wantStatuses {
		if columns[i].Status != want {
			t.Errorf("column %d status = %s, want %s", i, columns[i].Status, want)
		}
		if columns[i].WIPLimit != nil {
			t.Errorf("column %d has default WIP limit %d, want none", i, *columns[i].WIPLimit)
		}
	}
}

func TestUpsertColumnCustomizesStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	project := createTestProject(t, repo)

	col, err := repo.UpsertColumn(ctx, project.ID, models.StatusInProgress, "Doing", intPtr(3))
	if err != nil {
		t.Fatalf("UpsertColumn failed: %v", err)
	}
	if col.Name != "Doing" || col.WIPLimit == nil || *col.WIPLimit != 3 {
		t.Errorf("column = %q limit %v, want Doing limit 3", col.Name, col.WIPLimit)
	}

	// Upserting again replaces the config rather than adding a column.
	col, err = repo.UpsertColumn(ctx, project.ID, models.StatusInProgress, "WIP", nil)
	if err != nil {
		t.Fatalf("second UpsertColumn failed: %v", err)
	}
	if col.Name != "WIP" || col.WIPLimit != nil {
		t.Errorf("column = %q limit %v, want WIP with no limit", col.Name, col.WIPLimit)
	}

	columns, err := repo.GetColumnsByProject(ctx, project.ID)
	if err != nil {
		t.Fatalf("GetColumnsByProject failed: %v", err)
	}
	if len(columns) != 3 {
		t.Errorf("columns = %d, want 3", len(columns))
	}
}
