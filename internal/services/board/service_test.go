package board

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestService(t *testing.T, now time.Time) (*service, *database.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(context.Background(), db))

	repo := database.NewRepository(db)
	return &service{repo: repo, now: func() time.Time { return now }}, repo
}

func newBoardFixture(t *testing.T, repo *database.Repository) (*models.Project, *models.Sprint) {
	t.Helper()
	ctx := context.Background()
	project, err := repo.CreateProject(ctx, "Apollo", "test project")
	require.NoError(t, err)
	sprint, err := repo.CreateSprint(ctx, &models.Sprint{
		ProjectID: project.ID, Name: "Sprint 1", PlannedVelocity: 20,
	})
	require.NoError(t, err)
	return project, sprint
}

func addBoardItem(t *testing.T, repo *database.Repository, projectID, sprintID int, title string, status models.Status) *models.BacklogItem {
	t.Helper()
	item, err := repo.CreateItem(context.Background(), &models.BacklogItem{
		ProjectID: projectID,
		SprintID:  &sprintID,
		Title:     title,
		Type:      models.TypeUserStory,
		Priority:  models.PriorityMedium,
		Status:    status,
	})
	require.NoError(t, err)
	return item
}

func intPtr(v int) *int { return &v }

func TestEmptySprintYieldsWellFormedBoard(t *testing.T) {
	svc, repo := newTestService(t, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	_, sprint := newBoardFixture(t, repo)

	view, err := svc.Project(context.Background(), sprint.ID, Filters{})
	require.NoError(t, err)

	want := &models.BoardView{
		SprintID: sprint.ID,
		Columns: []*models.BoardColumn{
			{Status: models.StatusTodo, Name: "To Do", Items: []*models.BoardItem{}},
			{Status: models.StatusInProgress, Name: "In Progress", Items: []*models.BoardItem{}},
			{Status: models.StatusDone, Name: "Done", Items: []*models.BoardItem{}},
		},
	}
	if diff := cmp.Diff(want, view); diff != "" {
		t.Errorf("board mismatch (-want +got):\n%s", diff)
	}
}

func TestBoardGroupsByStatusInPositionOrder(t *testing.T) {
	svc, repo := newTestService(t, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	project, sprint := newBoardFixture(t, repo)

	first := addBoardItem(t, repo, project.ID, sprint.ID, "First", models.StatusTodo)
	second := addBoardItem(t, repo, project.ID, sprint.ID, "Second", models.StatusTodo)
	doing := addBoardItem(t, repo, project.ID, sprint.ID, "Doing", models.StatusInProgress)

	view, err := svc.Project(context.Background(), sprint.ID, Filters{})
	require.NoError(t, err)

	require.Len(t, view.Columns, 3)
	assert.Equal(t, 3, view.TotalItems)

	todo := view.Columns[0]
	require.Equal(t, 2, todo.ItemCount)
	assert.Equal(t, first.ID, todo.Items[0].ID)
	assert.Equal(t, second.ID, todo.Items[1].ID)

	inProgress := view.Columns[1]
	require.Equal(t, 1, inProgress.ItemCount)
	assert.Equal(t, doing.ID, inProgress.Items[0].ID)

	assert.Zero(t, view.Columns[2].ItemCount)
}

func TestWIPWarningIsAdvisory(t *testing.T) {
	svc, repo := newTestService(t, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	project, sprint := newBoardFixture(t, repo)
	ctx := context.Background()

	_, err := svc.UpsertColumn(ctx, project.ID, models.StatusInProgress, "Doing", intPtr(1))
	require.NoError(t, err)

	addBoardItem(t, repo, project.ID, sprint.ID, "One", models.StatusInProgress)
	addBoardItem(t, repo, project.ID, sprint.ID, "Two", models.StatusInProgress)

	view, err := svc.Project(ctx, sprint.ID, Filters{})
	require.NoError(t, err)

	inProgress := view.Columns[1]
	assert.Equal(t, "Doing", inProgress.Name)
	assert.Equal(t, 2, inProgress.ItemCount)
	assert.Equal(t, `WIP limit exceeded: 2 items in "Doing" (limit 1)`, inProgress.Warning)

	// At or under the limit there is no warning.
	_, err = svc.UpsertColumn(ctx, project.ID, models.StatusInProgress, "Doing", intPtr(2))
	require.NoError(t, err)
	view, err = svc.Project(ctx, sprint.ID, Filters{})
	require.NoError(t, err)
	assert.Empty(t, view.Columns[1].Warning)
}

func TestOverdueAnnotation(t *testing.T) {
	today := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	svc, repo := newTestService(t, today)
	project, sprint := newBoardFixture(t, repo)
	ctx := context.Background()

	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	late := addBoardItem(t, repo, project.ID, sprint.ID, "Late", models.StatusTodo)
	require.NoError(t, repo.UpdateItemFields(ctx, late.ID, database.ItemPatch{DueDate: &yesterday, SetDueDate: true}))

	onTime := addBoardItem(t, repo, project.ID, sprint.ID, "On time", models.StatusTodo)
	require.NoError(t, repo.UpdateItemFields(ctx, onTime.ID, database.ItemPatch{DueDate: &tomorrow, SetDueDate: true}))

	finished := addBoardItem(t, repo, project.ID, sprint.ID, "Finished", models.StatusDone)
	require.NoError(t, repo.UpdateItemFields(ctx, finished.ID, database.ItemPatch{DueDate: &yesterday, SetDueDate: true}))

	view, err := svc.Project(ctx, sprint.ID, Filters{})
	require.NoError(t, err)

	todo := view.Columns[0]
	require.Equal(t, 2, todo.ItemCount)
	assert.True(t, todo.Items[0].IsOverdue, "past due and not done")
	assert.False(t, todo.Items[1].IsOverdue, "due in the future")

	// A DONE item is never overdue, no matter its due date.
	done := view.Columns[2]
	require.Equal(t, 1, done.ItemCount)
	assert.False(t, done.Items[0].IsOverdue)
}

func TestBoardCommentAndAttachmentCounts(t *testing.T) {
	svc, repo := newTestService(t, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	project, sprint := newBoardFixture(t, repo)
	ctx := context.Background()

	item := addBoardItem(t, repo, project.ID, sprint.ID, "Discussed", models.StatusTodo)
	_, err := repo.CreateComment(ctx, item.ID, 1, "first")
	require.NoError(t, err)
	_, err = repo.CreateComment(ctx, item.ID, 2, "second")
	require.NoError(t, err)
	_, err = repo.AddAttachment(ctx, &models.Attachment{ItemID: item.ID, Filename: "design.pdf", ContentType: "application/pdf", Size: 2048})
	require.NoError(t, err)

	view, err := svc.Project(ctx, sprint.ID, Filters{})
	require.NoError(t, err)

	got := view.Columns[0].Items[0]
	assert.Equal(t, 2, got.CommentCount)
	assert.Equal(t, 1, got.AttachmentCount)
}

func TestBoardFiltersNarrowItemsNotColumns(t *testing.T) {
	svc, repo := newTestService(t, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	project, sprint := newBoardFixture(t, repo)
	ctx := context.Background()

	addBoardItem(t, repo, project.ID, sprint.ID, "Story", models.StatusTodo)
	bug, err := repo.CreateItem(ctx, &models.BacklogItem{
		ProjectID: project.ID,
		SprintID:  &sprint.ID,
		Title:     "Crash",
		Type:      models.TypeBug,
		Priority:  models.PriorityCritical,
		Status:    models.StatusTodo,
	})
	require.NoError(t, err)

	bugType := models.TypeBug
	view, err := svc.Project(ctx, sprint.ID, Filters{Type: &bugType})
	require.NoError(t, err)

	require.Len(t, view.Columns, 3, "filtering hides items, never columns")
	require.Equal(t, 1, view.Columns[0].ItemCount)
	assert.Equal(t, bug.ID, view.Columns[0].Items[0].ID)
	assert.Equal(t, 1, view.TotalItems)
}

func TestUpsertColumnValidation(t *testing.T) {
	svc, repo := newTestService(t, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	project, _ := newBoardFixture(t, repo)
	ctx := context.Background()

	_, err := svc.UpsertColumn(ctx, project.ID, models.StatusTodo, "", nil)
	assert.ErrorIs(t, err, ErrEmptyColumnName)

	_, err = svc.UpsertColumn(ctx, project.ID, models.StatusBacklog, "Icebox", nil)
	assert.ErrorIs(t, err, ErrInvalidColumnStatus)

	_, err = svc.UpsertColumn(ctx, project.ID, models.StatusTodo, "To Do", intPtr(0))
	assert.ErrorIs(t, err, ErrInvalidWIPLimit)

	_, err = svc.UpsertColumn(ctx, 999, models.StatusTodo, "To Do", nil)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestProjectUnknownSprint(t *testing.T) {
	svc, _ := newTestService(t, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))

	_, err := svc.Project(context.Background(), 42, Filters{})
	assert.ErrorIs(t, err, database.ErrNotFound)
}
