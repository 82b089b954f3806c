package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cadence-pm/cadence/internal/models"
)

// CommentRepository defines persistence for comments and attachment
// metadata, including the per-item counts the board projection renders.
type CommentRepository interface {
	CreateComment(ctx context.Context, itemID, authorID int, body string) (*models.Comment, error)
	GetCommentsByItem(ctx context.Context, itemID int) ([]*models.Comment, error)
	DeleteComment(ctx context.Context, commentID int) error
	AddAttachment(ctx context.Context, attachment *models.Attachment) (*models.Attachment, error)
	CountCommentsBySprint(ctx context.Context, sprintID int) (map[int]int, error)
	CountAttachmentsBySprint(ctx context.Context, sprintID int) (map[int]int, error)
}

// CreateComment attaches a comment to an item.
func (r *Repository) CreateComment(ctx context.Context, itemID, authorID int, body string) (*models.Comment, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM items WHERE id = ?", itemID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		"INSERT INTO comments (item_id, author_id, body) VALUES (?, ?, ?)",
		itemID, authorID, body)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{}
	err = r.db.QueryRowContext(ctx,
		"SELECT id, item_id, author_id, body, created_at FROM comments WHERE id = ?", id,
	).Scan(&comment.ID, &comment.ItemID, &comment.AuthorID, &comment.Body, &comment.CreatedAt)
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// GetCommentsByItem returns an item's comments, oldest first.
func (r *Repository) GetCommentsByItem(ctx context.Context, itemID int) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, item_id, author_id, body, created_at FROM comments WHERE item_id = ? ORDER BY created_at, id",
		itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment := &models.Comment{}
		if err := rows.Scan(&comment.ID, &comment.ItemID, &comment.AuthorID, &comment.Body, &comment.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

// DeleteComment removes a comment.
func (r *Repository) DeleteComment(ctx context.Context, commentID int) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", commentID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
	}
	return nil
}

// AddAttachment records attachment metadata for an item.
func (r *Repository) AddAttachment(ctx context.Context, attachment *models.Attachment) (*models.Attachment, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT INTO attachments (item_id, filename, content_type, size) VALUES (?, ?, ?, ?)",
		attachment.ItemID, attachment.Filename, attachment.ContentType, attachment.Size)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	stored := &models.Attachment{}
	err = r.db.QueryRowContext(ctx,
		"SELECT id, item_id, filename, content_type, size, created_at FROM attachments WHERE id = ?", id,
	).Scan(&stored.ID, &stored.ItemID, &stored.Filename, &stored.ContentType, &stored.Size, &stored.CreatedAt)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// CountCommentsBySprint returns comment counts keyed by item id for every
// item in a sprint. A single grouped query avoids the N+1 pattern on board
// reads.
func (r *Repository) CountCommentsBySprint(ctx context.Context, sprintID int) (map[int]int, error) {
	return r.countBySprint(ctx, "comments", sprintID)
}

// CountAttachmentsBySprint returns attachment counts keyed by item id.
func (r *Repository) CountAttachmentsBySprint(ctx context.Context, sprintID int) (map[int]int, error) {
	return r.countBySprint(ctx, "attachments", sprintID)
}

func (r *Repository) countBySprint(ctx context.Context, table string, sprintID int) (map[int]int, error) {
	query := fmt.Sprintf(
		`SELECT c.item_id, COUNT(*) FROM %s c
		 JOIN items i ON i.id = c.item_id
		 WHERE i.sprint_id = ?
		 GROUP BY c.item_id`, table)
	rows, err := r.db.QueryContext(ctx, query, sprintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var itemID, count int
		if err := rows.Scan(&itemID, &count); err != nil {
			return nil, err
		}
		counts[itemID] = count
	}
	return counts, rows.Err()
}
