package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding scraping tasks.
type Database struct {
	store *bolthold.Store
}

// NewDatabase opens the task store at the given path.
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// CreateTask inserts a new task keyed by its ID.
func (db *Database) CreateTask(task *ScrapingTask) error {
	task.CreatedAt = time.Now()
	return db.store.Insert(task.ID, task)
}

// GetTaskByID retrieves a task by ID.
func (db *Database) GetTaskByID(id string) (*ScrapingTask, error) {
	var task ScrapingTask
	if err := db.store.Get(id, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask overwrites an existing task.
func (db *Database) UpdateTask(task *ScrapingTask) error {
	return db.store.Update(task.ID, task)
}

// DeleteTask removes a task by ID.
func (db *Database) DeleteTask(id string) error {
	return db.store.Delete(id, &ScrapingTask{})
}

// GetAllTasks retrieves every task, newest first.
func (db *Database) GetAllTasks() ([]*ScrapingTask, error) {
	var tasks []*ScrapingTask
	if err := db.store.Find(&tasks, nil); err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// GetTasksByStatus retrieves all tasks with the given status.
func (db *Database) GetTasksByStatus(status TaskStatus) ([]*ScrapingTask, error) {
	var tasks []*ScrapingTask
	err := db.store.Find(&tasks, bolthold.Where("Status").Eq(status).Index("Status"))
	return tasks, err
}

// GetDispatchableTasks returns up to limit pending tasks whose retry delay
// has elapsed, ordered by priority descending then enqueue order.
func (db *Database) GetDispatchableTasks(now time.Time, limit int) ([]*ScrapingTask, error) {
	pending, err := db.GetTasksByStatus(TaskStatusPending)
	if err != nil {
		return nil, err
	}

	due := pending[:0]
	for _, task := range pending {
		if task.Due(now) {
			due = append(due, task)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// TransitionTask atomically moves a task from one status to another,
// applying mutate to the stored copy inside the same transaction. Returns
// false without error when the task is no longer in the from status, which
// is how concurrent dispatchers lose the race without double-running a
// task.
func (db *Database) TransitionTask(id string, from, to TaskStatus, mutate func(*ScrapingTask)) (bool, error) {
	ok := false
	err := db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var task ScrapingTask
		if err := db.store.TxGet(tx, id, &task); err != nil {
			return err
		}
		if task.Status != from {
			return nil
		}
		task.Status = to
		if mutate != nil {
			mutate(&task)
		}
		if err := db.store.TxUpdate(tx, id, &task); err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

// Stats derives queue counters plus the running average processing time
// over completed tasks.
func (db *Database) Stats() (*QueueStats, error) {
	tasks, err := db.GetAllTasks()
	if err != nil {
		return nil, err
	}

	stats := &QueueStats{Total: len(tasks)}
	var totalProcessing time.Duration
	completedTimed := 0

	for _, task := range tasks {
		switch task.Status {
		case TaskStatusPending:
			stats.Pending++
		case TaskStatusRunning:
			stats.Running++
		case TaskStatusCompleted:
			stats.Completed++
			if task.StartedAt != nil && task.CompletedAt != nil {
				totalProcessing += task.CompletedAt.Sub(*task.StartedAt)
				completedTimed++
			}
		case TaskStatusFailed:
			stats.Failed++
		case TaskStatusCanceled:
			stats.Canceled++
		}
	}

	if completedTimed > 0 {
		stats.AverageProcessingTime = (totalProcessing / time.Duration(completedTimed)).Milliseconds()
	}
	return stats, nil
}
