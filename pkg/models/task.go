package models

import (
	"errors"
	"fmt"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusSnoozed    TaskStatus = "snoozed"
)

// ErrInvalidStatus is returned when a string does not name a known status.
var ErrInvalidStatus = errors.New("invalid task status")

// TimestampLayout matches the ISO-8601 form written by the editor extension
// and earlier adapters, e.g. 2025-01-02T15:04:05.123456+00:00.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Timestamp formats t in UTC using TimestampLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Statuses returns every valid status in display order.
func Statuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusSnoozed}
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusSnoozed:
		return true
	default:
		return false
	}
}

// ParseStatus converts s into a TaskStatus, rejecting unknown values.
func ParseStatus(s string) (TaskStatus, error) {
	status := TaskStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q (valid: pending, in_progress, done, snoozed)", ErrInvalidStatus, s)
	}
	return status, nil
}

// FilterFromString returns the status named by s, or the empty status
// (meaning "no filter") when s is empty or unrecognized.
func FilterFromString(s string) TaskStatus {
	status, err := ParseStatus(s)
	if err != nil {
		return ""
	}
	return status
}

func (s *TaskStatus) UnmarshalText(text []byte) error {
	status, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Task is a single tracked unit of work. Field order is the on-disk key order.
type Task struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Status       TaskStatus `json:"status" yaml:"status"`
	CreatedAt    string     `json:"createdAt" yaml:"createdAt"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	CompletedAt  string     `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	SnoozedUntil string     `json:"snoozedUntil,omitempty" yaml:"snoozedUntil,omitempty"`
}

// Document is the persisted task list for one working directory.
type Document struct {
	Version     int    `json:"version" yaml:"version"`
	Tasks       []Task `json:"tasks" yaml:"tasks"`
	LastUpdated string `json:"lastUpdated" yaml:"lastUpdated"`
}

// Summary holds counts over the full, unfiltered task list.
type Summary struct {
	Total      int `json:"total" yaml:"total"`
	Pending    int `json:"pending" yaml:"pending"`
	InProgress int `json:"in_progress" yaml:"in_progress"`
	Done       int `json:"done" yaml:"done"`
	Snoozed    int `json:"snoozed" yaml:"snoozed"`
}

// Count returns the number of tasks recorded for status.
func (s Summary) Count(status TaskStatus) int {
	switch status {
	case TaskStatusPending:
		return s.Pending
	case TaskStatusInProgress:
		return s.InProgress
	case TaskStatusDone:
		return s.Done
	case TaskStatusSnoozed:
		return s.Snoozed
	default:
		return 0
	}
}

// Summarize counts tasks per status.
func Summarize(tasks []Task) Summary {
	s := Summary{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case TaskStatusPending:
			s.Pending++
		case TaskStatusInProgress:
			s.InProgress++
		case TaskStatusDone:
			s.Done++
		case TaskStatusSnoozed:
			s.Snoozed++
		}
	}
	return s
}

// ListResult is returned by the list operation.
type ListResult struct {
	Summary Summary `json:"summary" yaml:"summary"`
	Tasks   []Task  `json:"tasks" yaml:"tasks"`
}
