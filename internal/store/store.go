package store

import (
	"context"
	"fmt"
	"time"
)

// DateLayout is the wire and storage form of a task due date.
const DateLayout = "2006-01-02"

// DefaultImportance is assigned to tasks created without an importance rating.
const DefaultImportance = 5

type Task struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	DueDate        string       `json:"due_date"`
	EstimatedHours *float64     `json:"estimated_hours"`
	Importance     int          `json:"importance"`
	Dependencies   Dependencies `json:"dependencies"`
	Completed      bool         `json:"completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t Task) String() string {
	return fmt.Sprintf("Task %d: %s", t.ID, t.Title)
}

type TaskFilter struct {
	Completed *bool
	Limit     int
	Offset    int
}

type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}

type Store interface {
	CreateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id int64) (*Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*Task, error)
	UpdateTask(ctx context.Context, task *Task) error
	DeleteTask(ctx context.Context, id int64) error

	// GetStats counts overdue tasks relative to today, given as YYYY-MM-DD.
	GetStats(ctx context.Context, today string) (*TaskStats, error)

	Close() error
}

// parseDueDate converts the string form of a due date into a nullable time
// for the database drivers. An empty string means no deadline.
func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due_date %q: %w", s, err)
	}
	return &t, nil
}

func formatDueDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

const defaultListLimit = 100
