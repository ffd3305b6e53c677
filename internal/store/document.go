package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ldi/devflow/pkg/models"
)

// LoadOutcome reports how Read obtained its document.
type LoadOutcome int

const (
	// Loaded means the document was decoded from disk.
	Loaded LoadOutcome = iota
	// NotFound means no document exists yet.
	NotFound
	// Corrupt means the file could not be read or decoded and was ignored.
	Corrupt
)

func (o LoadOutcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case NotFound:
		return "not_found"
	case Corrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("LoadOutcome(%d)", int(o))
	}
}

// Path returns the document path for a working directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

func (s *Store) emptyDocument() models.Document {
	return models.Document{
		Version:     DocumentVersion,
		Tasks:       []models.Task{},
		LastUpdated: s.timestamp(),
	}
}

// Read loads the document for dir. A missing or undecodable file yields a
// fresh empty document; the outcome tells the two apart. The default
// document is not written until the next Save.
func (s *Store) Read(ctx context.Context, dir string) (models.Document, LoadOutcome) {
	path := Path(dir)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.emptyDocument(), NotFound
	}
	if err != nil {
		s.logger.Printf("ignoring unreadable task file %s: %v", path, err)
		return s.emptyDocument(), Corrupt
	}

	doc, err := decodeDocument(data)
	if err != nil {
		s.logger.Printf("ignoring malformed task file %s: %v (%d tasks will be discarded on the next save)",
			path, err, countRawTasks(data))
		return s.emptyDocument(), Corrupt
	}

	// Files written by hand may omit the header fields.
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.LastUpdated == "" {
		doc.LastUpdated = s.timestamp()
	}
	return doc, Loaded
}

// countRawTasks reports how many entries the tasks array of an undecodable
// document holds, or 0 when even that cannot be read.
func countRawTasks(data []byte) int {
	var raw struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0
	}
	return len(raw.Tasks)
}

// Load is Read without the outcome. It never fails, so a broken task file
// never blocks the caller.
func (s *Store) Load(ctx context.Context, dir string) models.Document {
	doc, _ := s.Read(ctx, dir)
	return doc
}

func decodeDocument(data []byte) (models.Document, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return models.Document{}, errors.New("task document is not a JSON object")
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, err
	}
	if doc.Tasks == nil {
		doc.Tasks = []models.Task{}
	}
	return doc, nil
}

// Save stamps lastUpdated and rewrites the document for dir. The file is
// written to a temporary sibling and renamed into place.
func (s *Store) Save(ctx context.Context, dir string, doc *models.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc.LastUpdated = s.timestamp()
	if doc.Version == 0 {
		doc.Version = DocumentVersion
	}
	if doc.Tasks == nil {
		doc.Tasks = []models.Task{}
	}

	data, err := models.MarshalIndent(doc)
	if err != nil {
		return fmt.Errorf("failed to encode task document: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create task directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write task document: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil

	if err := os.Chmod(filename, 0644); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to set task file permissions: %w", err)
	}
	if err := os.Rename(filename, Path(dir)); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
