package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Taskboard/internal/cache"
	"github.com/MikeSquared-Agency/Taskboard/internal/hermes"
	"github.com/MikeSquared-Agency/Taskboard/internal/metrics"
	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

type TasksHandler struct {
	store  store.Store
	hermes hermes.Client
	cache  *cache.RankingCache
	logger *slog.Logger
}

func NewTasksHandler(s store.Store, h hermes.Client, c *cache.RankingCache, logger *slog.Logger) *TasksHandler {
	return &TasksHandler{store: s, hermes: h, cache: c, logger: logger}
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.normalize()
	if err := ValidateRequest(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	task := req.toTask()
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.afterWrite(r.Context(), "create", hermes.SubjectTaskCreated(task.ID), task)
	writeJSON(w, http.StatusCreated, task)
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.TaskFilter{}
	if v := q.Get("completed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid completed filter")
			return
		}
		filter.Completed = &b
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*store.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		writeValidationError(w, err)
		return
	}

	wasCompleted := task.Completed
	req.apply(task)
	if err := h.store.UpdateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	subject := hermes.SubjectTaskUpdated(task.ID)
	if task.Completed && !wasCompleted {
		subject = hermes.SubjectTaskCompleted(task.ID)
	}
	h.afterWrite(r.Context(), "update", subject, task)
	writeJSON(w, http.StatusOK, task)
}

// Complete marks a task done. Completing a finished task is a no-op.
func (h *TasksHandler) Complete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	if task.Completed {
		writeJSON(w, http.StatusOK, task)
		return
	}

	task.Completed = true
	if err := h.store.UpdateTask(r.Context(), task); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.afterWrite(r.Context(), "complete", hermes.SubjectTaskCompleted(task.ID), task)
	writeJSON(w, http.StatusOK, task)
}

func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteTask(r.Context(), task.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.afterWrite(r.Context(), "delete", hermes.SubjectTaskDeleted(task.ID), task)
	w.WriteHeader(http.StatusNoContent)
}

// loadTask resolves {id}, writing the error response itself when it fails.
func (h *TasksHandler) loadTask(w http.ResponseWriter, r *http.Request) (*store.Task, bool) {
	id, err := taskIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return nil, false
	}
	task, err := h.store.GetTask(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return task, true
}

// afterWrite runs the side effects of a mutation. None of them can fail the request.
func (h *TasksHandler) afterWrite(ctx context.Context, op, subject string, task *store.Task) {
	metrics.TaskWrites.WithLabelValues(op).Inc()
	h.cache.Invalidate(ctx)
	if h.hermes != nil {
		evt := hermes.NewTaskEvent(task.ID, task.Title, task.DueDate, task.Importance, task.Completed)
		if err := h.hermes.Publish(subject, evt); err != nil {
			h.logger.Warn("event publish failed", "subject", subject, "error", err)
		}
	}
}

func taskIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, strconv.ErrSyntax
	}
	return id, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(store.DateLayout, s)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
