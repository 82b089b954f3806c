package database

import (
	"context"
	"errors"
	"testing"

	"github.com/cadence-pm/cadence/internal/models"
)

func TestCommentLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	project := createTestProject(t, repo)
	item := createTestItem(t, repo, project.ID, nil, "A", models.StatusBacklog)

	first, err := repo.CreateComment(ctx, item.ID, 1, "looks *good*")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if _, err := repo.CreateComment(ctx, item.ID, 2, "agreed"); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	comments, err := repo.GetCommentsByItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetCommentsByItem failed: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != first.ID {
		t.Errorf("comments = %d (first %d), want 2 oldest-first", len(comments), comments[0].ID)
	}

	if err := repo.DeleteComment(ctx, first.ID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}
	if err := repo.DeleteComment(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	if _, err := repo.CreateComment(ctx, 999, 1, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestCountsBySprint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	project := createTestProject(t, repo)
	sprint := createTestSprint(t, repo, project.ID)

	a := createTestItem(t, repo, project.ID, &sprint.ID, "A", models.StatusTodo)
	b := createTestItem(t, repo, project.ID, &sprint.ID, "B", models.StatusTodo)
	outside := createTestItem(t, repo, project.ID, nil, "outside", models.StatusBacklog)

	for i := 0; i < 2; i++ {
		if _, err := repo.CreateComment(ctx, a.ID, 1, "note"); err != nil {
			t.Fatalf("CreateComment failed: %v", err)
		}
	}
	if _, err := repo.CreateComment(ctx, outside.ID, 1, "elsewhere"); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if _, err := repo.AddAttachment(ctx, &models.Attachment{ItemID: b.ID, Filename: "spec.pdf", ContentType: "application/pdf", Size: 1024}); err != nil {
		t.Fatalf("AddAttachment failed: %v", err)
	}

	comments, err := repo.CountCommentsBySprint(ctx, sprint.ID)
	if err != nil {
		t.Fatalf("CountCommentsBySprint failed: %v", err)
	}
	if comments[a.ID] != 2 || comments[b.ID] != 0 {
		t.Errorf("comment counts = %v, want a=2, b absent", comments)
	}
	if _, ok := comments[outside.ID]; ok {
		t.Error("backlog item leaked into sprint comment counts")
	}

	attachments, err := repo.CountAttachmentsBySprint(ctx, sprint.ID)
	if err != nil {
		t.Fatalf("CountAttachmentsBySprint failed: %v", err)
	}
	if attachments[b.ID] != 1 {
		t.Errorf("attachment counts = %v, want b=1", attachments)
	}
}
