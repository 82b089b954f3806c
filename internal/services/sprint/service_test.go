package sprint

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/cadence-pm/cadence/internal/database"
	"github.com/cadence-pm/cadence/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestService(t *testing.T) (Service, *database.Repository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(context.Background(), db))

	repo := database.NewRepository(db)
	return NewService(repo), repo
}

func newTestProject(t *testing.T, repo *database.Repository) *models.Project {
	t.Helper()
	project, err := repo.CreateProject(context.Background(), "Apollo", "test project")
	require.NoError(t, err)
	return project
}

func planSprint(t *testing.T, svc Service, projectID int, name string, velocity int) *models.Sprint {
	t.Helper()
	sprint, err := svc.Create(context.Background(), CreateRequest{
		ProjectID:       projectID,
		Name:            name,
		StartDate:       time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC),
		PlannedVelocity: velocity,
	})
	require.NoError(t, err)
	return sprint
}

func addSprintItem(t *testing.T, repo *database.Repository, projectID, sprintID int, title string, points int) *models.BacklogItem {
	t.Helper()
	item, err := repo.CreateItem(context.Background(), &models.BacklogItem{
		ProjectID:   projectID,
		SprintID:    &sprintID,
		Title:       title,
		Type:        models.TypeUserStory,
		Priority:    models.PriorityMedium,
		StoryPoints: &points,
		Status:      models.StatusTodo,
	})
	require.NoError(t, err)
	return item
}

func markDone(t *testing.T, repo *database.Repository, itemID int) {
	t.Helper()
	_, err := repo.MoveItem(context.Background(), database.MoveParams{
		ItemID:     itemID,
		ToStatus:   models.StatusDone,
		ToPosition: 1,
	})
	require.NoError(t, err)
}

func TestCreateStartsInPlanning(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)

	sprint := planSprint(t, svc, project.ID, "Sprint 1", 20)
	assert.Equal(t, models.SprintPlanning, sprint.Status)
	assert.Nil(t, sprint.ActualVelocity)
}

func TestCreateValidation(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)
	ctx := context.Background()

	start := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	_, err := svc.Create(ctx, CreateRequest{ProjectID: 0, Name: "s", StartDate: start, EndDate: start.AddDate(0, 0, 14)})
	assert.ErrorIs(t, err, ErrInvalidProjectID)

	_, err = svc.Create(ctx, CreateRequest{ProjectID: project.ID, StartDate: start, EndDate: start.AddDate(0, 0, 14)})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.Create(ctx, CreateRequest{ProjectID: project.ID, Name: "s", StartDate: start, EndDate: start})
	assert.ErrorIs(t, err, ErrInvalidDates)

	_, err = svc.Create(ctx, CreateRequest{ProjectID: project.ID, Name: "s", StartDate: start, EndDate: start.AddDate(0, 0, 14), PlannedVelocity: -1})
	assert.ErrorIs(t, err, ErrInvalidVelocity)
}

func TestActivateAndCompleteLifecycle(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)
	ctx := context.Background()

	sprint := planSprint(t, svc, project.ID, "Sprint 1", 20)
	require.NoError(t, svc.Activate(ctx, sprint.ID))

	got, err := svc.Get(ctx, sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SprintActive, got.Status)

	result, err := svc.Complete(ctx, CompleteRequest{
		SprintID:         sprint.ID,
		UnfinishedAction: models.UnfinishedToBacklog,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.ActualVelocity)

	got, err = svc.Get(ctx, sprint.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SprintCompleted, got.Status)
}

func TestCompleteValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Complete(ctx, CompleteRequest{SprintID: 0, UnfinishedAction: models.UnfinishedToBacklog})
	assert.ErrorIs(t, err, ErrInvalidSprintID)

	_, err = svc.Complete(ctx, CompleteRequest{SprintID: 1, UnfinishedAction: "discard"})
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = svc.Complete(ctx, CompleteRequest{SprintID: 1, UnfinishedAction: models.UnfinishedToNextSprint})
	assert.ErrorIs(t, err, ErrMissingNextSprint)
}

func TestCapacityMidSprint(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)
	ctx := context.Background()

	sprint := planSprint(t, svc, project.ID, "Sprint 1", 20)
	require.NoError(t, svc.Activate(ctx, sprint.ID))

	addSprintItem(t, repo, project.ID, sprint.ID, "Login page", 5)
	done := addSprintItem(t, repo, project.ID, sprint.ID, "Password reset", 8)
	addSprintItem(t, repo, project.ID, sprint.ID, "Audit log", 3)
	markDone(t, repo, done.ID)

	capacity, err := svc.Capacity(ctx, sprint.ID)
	require.NoError(t, err)

	assert.Equal(t, 20, capacity.Total)
	assert.Equal(t, 8, capacity.Completed)
	assert.Equal(t, 12, capacity.Remaining)
	assert.InDelta(t, 40.0, capacity.ProgressPercentage, 0.001)
}

func TestCapacityOvercommitClampsRemaining(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)
	ctx := context.Background()

	sprint := planSprint(t, svc, project.ID, "Sprint 1", 5)
	require.NoError(t, svc.Activate(ctx, sprint.ID))

	a := addSprintItem(t, repo, project.ID, sprint.ID, "Big story", 8)
	markDone(t, repo, a.ID)

	capacity, err := svc.Capacity(ctx, sprint.ID)
	require.NoError(t, err)

	assert.Equal(t, 8, capacity.Completed)
	assert.Equal(t, 0, capacity.Remaining)
	assert.InDelta(t, 160.0, capacity.ProgressPercentage, 0.001)
}

func TestCapacityZeroVelocity(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)
	ctx := context.Background()

	sprint := planSprint(t, svc, project.ID, "Unplanned", 0)

	capacity, err := svc.Capacity(ctx, sprint.ID)
	require.NoError(t, err)

	assert.Zero(t, capacity.Total)
	assert.Zero(t, capacity.ProgressPercentage)
}

func TestCompleteReportsVelocityAndUnfinished(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)
	ctx := context.Background()

	sprint := planSprint(t, svc, project.ID, "Sprint 1", 20)
	require.NoError(t, svc.Activate(ctx, sprint.ID))

	done := addSprintItem(t, repo, project.ID, sprint.ID, "Shipped", 8)
	addSprintItem(t, repo, project.ID, sprint.ID, "Leftover A", 5)
	addSprintItem(t, repo, project.ID, sprint.ID, "Leftover B", 3)
	markDone(t, repo, done.ID)

	result, err := svc.Complete(ctx, CompleteRequest{
		SprintID:         sprint.ID,
		UnfinishedAction: models.UnfinishedToBacklog,
	})
	require.NoError(t, err)

	assert.Equal(t, 8, result.ActualVelocity)
	assert.Equal(t, models.UnfinishedToBacklog, result.UnfinishedHandled)
	assert.Equal(t, 2, result.UnfinishedCount)

	got, err := svc.Get(ctx, sprint.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ActualVelocity)
	assert.Equal(t, 8, *got.ActualVelocity)
}

func TestListSprints(t *testing.T) {
	svc, repo := newTestService(t)
	project := newTestProject(t, repo)
	ctx := context.Background()

	planSprint(t, svc, project.ID, "Sprint 1", 10)
	planSprint(t, svc, project.ID, "Sprint 2", 15)

	// Newest first.
	sprints, err := svc.List(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, sprints, 2)
	assert.Equal(t, "Sprint 2", sprints[0].Name)
	assert.Equal(t, "Sprint 1", sprints[1].Name)
}
