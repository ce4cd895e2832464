package hermes

import "strconv"

const (
	SubjectAnalysisCompleted = "taskboard.analysis.completed"
	SubjectAll               = "taskboard.>"

	StreamName   = "TASKBOARD_EVENTS"
	StreamMaxAge = "720h" // 30 days
)

func taskSubject(taskID int64, verb string) string {
	return "taskboard.task." + strconv.FormatInt(taskID, 10) + "." + verb
}

func SubjectTaskCreated(taskID int64) string   { return taskSubject(taskID, "created") }
func SubjectTaskUpdated(taskID int64) string   { return taskSubject(taskID, "updated") }
func SubjectTaskCompleted(taskID int64) string { return taskSubject(taskID, "completed") }
func SubjectTaskDeleted(taskID int64) string   { return taskSubject(taskID, "deleted") }
