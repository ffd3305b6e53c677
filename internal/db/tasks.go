package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/ldi/devflow/pkg/models"
)

const (
	metaVersion     = "version"
	metaLastUpdated = "lastUpdated"
)

// ImportDocument replaces the database contents with doc in one transaction.
func (db *DB) ImportDocument(ctx context.Context, doc models.Document) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks"); err != nil {
		return fmt.Errorf("failed to clear tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM meta"); err != nil {
		return fmt.Errorf("failed to clear meta: %w", err)
	}

	if err := setMeta(ctx, tx, metaVersion, strconv.Itoa(doc.Version)); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, metaLastUpdated, doc.LastUpdated); err != nil {
		return err
	}

	for i, t := range doc.Tasks {
		if err := insertTask(ctx, tx, i, t); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func setMeta(ctx context.Context, exec executor, key, value string) error {
	_, err := exec.ExecContext(ctx, "INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	if err != nil {
		return fmt.Errorf("failed to set meta %s: %w", key, err)
	}
	return nil
}

func insertTask(ctx context.Context, exec executor, position int, t models.Task) error {
	query := `
		INSERT INTO tasks (position, id, title, description, status, created_at, completed_at, snoozed_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := exec.ExecContext(ctx, query,
		position, t.ID, t.Title, nullString(t.Description), t.Status,
		t.CreatedAt, nullString(t.CompletedAt), nullString(t.SnoozedUntil),
	)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", t.ID, err)
	}
	return nil
}

// ListTasks returns tasks in list order, optionally filtered by status.
func (db *DB) ListTasks(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	return listTasks(ctx, db.DB, status)
}

func listTasks(ctx context.Context, exec executor, status models.TaskStatus) ([]models.Task, error) {
	query := `
		SELECT id, title, description, status, created_at, completed_at, snoozed_until
		FROM tasks
		WHERE (? = '' OR status = ?)
		ORDER BY position
	`
	rows, err := exec.QueryContext(ctx, query, status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var description, completedAt, snoozedUntil sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &description, &t.Status, &t.CreatedAt, &completedAt, &snoozedUntil); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Description = description.String
		t.CompletedAt = completedAt.String
		t.SnoozedUntil = snoozedUntil.String
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tasks, nil
}

// Summary returns per-status counts over all stored tasks.
func (db *DB) Summary(ctx context.Context) (models.Summary, error) {
	var s models.Summary
	err := db.QueryRowContext(ctx, "SELECT total, pending, in_progress, done, snoozed FROM v_task_summary").
		Scan(&s.Total, &s.Pending, &s.InProgress, &s.Done, &s.Snoozed)
	if err != nil {
		return models.Summary{}, fmt.Errorf("failed to get summary: %w", err)
	}
	return s, nil
}

// Document rebuilds the task document held in the database.
func (db *DB) Document(ctx context.Context) (models.Document, error) {
	doc := models.Document{}

	var version, lastUpdated string
	if err := db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaVersion).Scan(&version); err != nil && err != sql.ErrNoRows {
		return doc, fmt.Errorf("failed to read version: %w", err)
	}
	if err := db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", metaLastUpdated).Scan(&lastUpdated); err != nil && err != sql.ErrNoRows {
		return doc, fmt.Errorf("failed to read lastUpdated: %w", err)
	}
	if version != "" {
		v, err := strconv.Atoi(version)
		if err != nil {
			return doc, fmt.Errorf("invalid version %q: %w", version, err)
		}
		doc.Version = v
	}
	doc.LastUpdated = lastUpdated

	tasks, err := db.ListTasks(ctx, "")
	if err != nil {
		return doc, err
	}
	doc.Tasks = tasks
	return doc, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
