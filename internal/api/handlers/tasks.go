package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"

	"identarr/internal/models"
	"identarr/internal/scheduler"
)

// TasksHandler exposes the task queue over HTTP.
type TasksHandler struct {
	db     *models.Database
	queue  *scheduler.Queue
	logger *logrus.Logger
}

// NewTasksHandler creates a new tasks handler
func NewTasksHandler(db *models.Database, queue *scheduler.Queue, logger *logrus.Logger) *TasksHandler {
	return &TasksHandler{
		db:     db,
		queue:  queue,
		logger: logger,
	}
}

// CreateTaskRequest is the payload for enqueueing a path.
type CreateTaskRequest struct {
	Path        string `json:"path"`
	IsDirectory bool   `json:"is_directory"`
	Priority    int    `json:"priority"`
	MaxRetries  int    `json:"max_retries"`
}

// Create enqueues a new scraping task.
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}

	task, err := h.queue.Enqueue(req.Path, req.IsDirectory, req.Priority, req.MaxRetries)
	if err != nil {
		h.logger.WithError(err).WithField("path", req.Path).Warn("Enqueue rejected")
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

// List returns all tasks, optionally filtered by ?status=.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []*models.ScrapingTask
		err   error
	)

	if status := r.URL.Query().Get("status"); status != "" {
		tasks, err = h.db.GetTasksByStatus(models.TaskStatus(status))
	} else {
		tasks, err = h.db.GetAllTasks()
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to list tasks")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []*models.ScrapingTask{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

// Get returns a single task by ID.
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.db.GetTaskByID(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to load task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(task)
}

// Cancel requests cancellation of a pending or running task.
func (h *TasksHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.queue.Cancel(id); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Retry re-admits a failed task with a fresh retry budget.
func (h *TasksHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.queue.Retry(id); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Delete removes a task record.
func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := h.db.GetTaskByID(id)
	if err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			http.Error(w, "Task not found", http.StatusNotFound)
			return
		}
		h.logger.WithError(err).Error("Failed to load task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if task.Status == models.TaskStatusRunning {
		http.Error(w, "Cannot delete a running task", http.StatusConflict)
		return
	}

	if err := h.db.DeleteTask(id); err != nil {
		h.logger.WithError(err).Error("Failed to delete task")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
