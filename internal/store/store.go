// Package store persists the task list of a working directory as a single
// JSON document (.tasks.json).
//
// The store keeps no state between calls: every operation loads the document
// from disk, and every mutation rewrites it in full. Mutations through one
// Store are serialized; separate processes writing the same directory are not
// coordinated and the last save wins.
package store

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ldi/devflow/pkg/models"
)

const (
	// FileName is the document name inside a working directory.
	FileName = ".tasks.json"

	// DocumentVersion is written to every saved document.
	DocumentVersion = 1

	idLength = 8
)

// ErrNotFound is returned when no task matches the requested id.
var ErrNotFound = errors.New("task not found")

// Store implements the task operations over a working directory.
type Store struct {
	// mu guards the load-modify-save cycle of mutations.
	mu sync.Mutex

	now    func() time.Time
	newID  func() string
	logger *log.Logger
}

type Option func(*Store)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger used to report discarded documents.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:    time.Now,
		newID:  NewID,
		logger: log.New(os.Stderr, "devflow: ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns 8 lowercase hex characters taken from a random UUID.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
}

func (s *Store) timestamp() string {
	return models.Timestamp(s.now())
}

// List returns the tasks matching filter together with a summary of the
// whole list. An empty filter returns every task.
func (s *Store) List(ctx context.Context, dir string, filter models.TaskStatus) models.ListResult {
	doc := s.Load(ctx, dir)

	tasks := doc.Tasks
	if filter.Valid() {
		tasks = make([]models.Task, 0, len(doc.Tasks))
		for _, t := range doc.Tasks {
			if t.Status == filter {
				tasks = append(tasks, t)
			}
		}
	}

	return models.ListResult{
		Summary: models.Summarize(doc.Tasks),
		Tasks:   tasks,
	}
}

// Add appends a new pending task and saves the document.
func (s *Store) Add(ctx context.Context, dir, title, description string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx, dir)

	t := models.Task{
		ID:          s.newID(),
		Title:       title,
		Status:      models.TaskStatusPending,
		CreatedAt:   s.timestamp(),
		Description: description,
	}
	doc.Tasks = append(doc.Tasks, t)

	if err := s.Save(ctx, dir, &doc); err != nil {
		return nil, err
	}
	return &t, nil
}

// Start marks a task as in progress.
func (s *Store) Start(ctx context.Context, dir, id string) (*models.Task, error) {
	return s.update(ctx, dir, id, func(t *models.Task) {
		t.Status = models.TaskStatusInProgress
	})
}

// Complete marks a task as done and records the completion time.
func (s *Store) Complete(ctx context.Context, dir, id string) (*models.Task, error) {
	return s.update(ctx, dir, id, func(t *models.Task) {
		t.Status = models.TaskStatusDone
		t.CompletedAt = s.timestamp()
	})
}

// Snooze marks a task as snoozed until date. The date is stored verbatim.
func (s *Store) Snooze(ctx context.Context, dir, id, date string) (*models.Task, error) {
	return s.update(ctx, dir, id, func(t *models.Task) {
		t.Status = models.TaskStatusSnoozed
		t.SnoozedUntil = date
	})
}

// update applies fn to the task with the given id and saves. Any status may
// move to any other status.
func (s *Store) update(ctx context.Context, dir, id string, fn func(*models.Task)) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx, dir)

	for i := range doc.Tasks {
		if doc.Tasks[i].ID != id {
			continue
		}
		fn(&doc.Tasks[i])
		if err := s.Save(ctx, dir, &doc); err != nil {
			return nil, err
		}
		t := doc.Tasks[i]
		return &t, nil
	}

	return nil, ErrNotFound
}

// Delete removes the task with the given id. It reports whether a task was
// removed; when nothing matches the document is not rewritten.
func (s *Store) Delete(ctx context.Context, dir, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx, dir)

	kept := make([]models.Task, 0, len(doc.Tasks))
	for _, t := range doc.Tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(doc.Tasks) {
		return false, nil
	}

	doc.Tasks = kept
	if err := s.Save(ctx, dir, &doc); err != nil {
		return false, err
	}
	return true, nil
}

// Replace overwrites the document for dir with doc, as when restoring a
// backup. The previous contents are discarded.
func (s *Store) Replace(ctx context.Context, dir string, doc models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Save(ctx, dir, &doc)
}
