package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// withTx executes a function within a database transaction.
// It automatically handles begin, rollback on error, and commit on success.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// sprintArg converts an optional sprint reference into a bindable value for
// "sprint_id IS ?" predicates. SQLite treats "IS NULL" and "IS <value>" the
// same way through a single placeholder.
func sprintArg(sprintID *int) any {
	if sprintID == nil {
		return nil
	}
	return *sprintID
}

func sameSprint(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// encodeTags normalizes tags (lowercased, trimmed, deduplicated) and joins
// them for storage. The stored form is ",a,b," so a LIKE match on ",tag,"
// cannot hit substrings of other tags.
func encodeTags(tags []string) string {
	seen := make(map[string]bool, len(tags))
	normalized := make([]string, 0, len(tags))
	for _, tag := range tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		normalized = append(normalized, t)
	}
	if len(normalized) == 0 {
		return ""
	}
	return "," + strings.Join(normalized, ",") + ","
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
// Patterns built with it must carry ESCAPE '\'.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// decodeTags splits the stored tag form back into a slice.
func decodeTags(encoded string) []string {
	trimmed := strings.Trim(encoded, ",")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ",")
}
