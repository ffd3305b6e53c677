package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ldi/devflow/pkg/models"
)

// ExportSnapshot writes doc to a fresh SQLite database at path. The database
// is built under a temporary name in the same directory and renamed into
// place, so an existing file at path is only replaced by a complete export.
func ExportSnapshot(ctx context.Context, doc models.Document, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempPath := filepath.Join(dir, fmt.Sprintf(".snapshot-%s.db", uuid.New().String()))
	defer removeDatabaseFiles(tempPath)

	db, err := Open(tempPath)
	if err != nil {
		return err
	}

	if err := db.Init(ctx); err != nil {
		db.Close()
		return err
	}
	if err := db.ImportDocument(ctx, doc); err != nil {
		db.Close()
		return err
	}
	// Fold the WAL back into the main file so the rename moves everything.
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		db.Close()
		return fmt.Errorf("failed to checkpoint: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=DELETE;"); err != nil {
		db.Close()
		return fmt.Errorf("failed to leave WAL mode: %w", err)
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

func removeDatabaseFiles(path string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		os.Remove(path + suffix)
	}
}

// openSnapshot opens an existing snapshot. Unlike Open it never creates
// the file.
func openSnapshot(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open snapshot file: %w", err)
	}
	return Open(path)
}

// ImportSnapshot reads the task document stored in the SQLite file at path.
func ImportSnapshot(ctx context.Context, path string) (models.Document, error) {
	db, err := openSnapshot(path)
	if err != nil {
		return models.Document{}, err
	}
	defer db.Close()

	return db.Document(ctx)
}

// ListSnapshot answers a task listing from the snapshot at path. The summary
// covers every stored task; filter narrows the returned tasks only.
func ListSnapshot(ctx context.Context, path string, filter models.TaskStatus) (models.ListResult, error) {
	db, err := openSnapshot(path)
	if err != nil {
		return models.ListResult{}, err
	}
	defer db.Close()

	summary, err := db.Summary(ctx)
	if err != nil {
		return models.ListResult{}, err
	}
	tasks, err := db.ListTasks(ctx, filter)
	if err != nil {
		return models.ListResult{}, err
	}
	return models.ListResult{Summary: summary, Tasks: tasks}, nil
}
