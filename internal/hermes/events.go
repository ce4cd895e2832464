package hermes

import (
	"time"

	"github.com/google/uuid"
)

// Envelope fields shared by every event.
type Meta struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
}

func newMeta() Meta {
	return Meta{EventID: uuid.NewString(), Timestamp: time.Now().UTC()}
}

type TaskEvent struct {
	Meta
	TaskID     int64  `json:"task_id"`
	Title      string `json:"title"`
	DueDate    string `json:"due_date,omitempty"`
	Importance int    `json:"importance"`
	Completed  bool   `json:"completed"`
}

// NewTaskEvent stamps a task event with a fresh ID and time.
func NewTaskEvent(taskID int64, title, dueDate string, importance int, completed bool) TaskEvent {
	return TaskEvent{
		Meta:       newMeta(),
		TaskID:     taskID,
		Title:      title,
		DueDate:    dueDate,
		Importance: importance,
		Completed:  completed,
	}
}

type AnalysisCompletedEvent struct {
	Meta
	Strategy  string  `json:"strategy"`
	TaskCount int     `json:"task_count"`
	TopTaskID int64   `json:"top_task_id,omitempty"`
	TopScore  float64 `json:"top_score,omitempty"`
	Cached    bool    `json:"cached"`
}

func NewAnalysisCompletedEvent(strategy string, taskCount int, topTaskID int64, topScore float64, cached bool) AnalysisCompletedEvent {
	return AnalysisCompletedEvent{
		Meta:      newMeta(),
		Strategy:  strategy,
		TaskCount: taskCount,
		TopTaskID: topTaskID,
		TopScore:  topScore,
		Cached:    cached,
	}
}
