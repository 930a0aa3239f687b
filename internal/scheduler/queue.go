package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"identarr/internal/models"
	"identarr/internal/parser"
)

// staleGrace is added on top of the processing timeout before a running
// task with no live worker is treated as a failed attempt.
const staleGrace = 1 * time.Minute

// Resolver is the unit of work the queue drives for each task.
type Resolver interface {
	Resolve(ctx context.Context, name string, isDirectory bool, fullPath string) (*models.DetailedMedia, error)
}

// Queue schedules scraping tasks over a bounded worker pool with
// per-attempt timeouts and capped exponential retry.
type Queue struct {
	db      *models.Database
	scraper Resolver
	cfg     models.QueueConfig
	ignore  *parser.IgnoreList
	logger  *logrus.Logger
	metrics *Metrics

	cron  *cron.Cron
	slots chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	running map[string]context.CancelFunc

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewQueue creates a task queue. metrics may be nil.
func NewQueue(db *models.Database, scraper Resolver, cfg models.QueueConfig, ignore *parser.IgnoreList, metrics *Metrics, logger *logrus.Logger) (*Queue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		db:      db,
		scraper: scraper,
		cfg:     cfg,
		ignore:  ignore,
		logger:  logger,
		metrics: metrics,
		cron:    cron.New(),
		slots:   make(chan struct{}, cfg.Concurrency),
		running: make(map[string]context.CancelFunc),
		baseCtx: ctx,
		cancel:  cancel,
	}, nil
}

// Start begins the periodic dispatch and maintenance passes.
func (q *Queue) Start() error {
	q.logger.WithFields(logrus.Fields{
		"concurrency": q.cfg.Concurrency,
		"batch_size":  q.cfg.BatchSize,
	}).Info("Starting task queue")

	// Every few seconds: admit due pending tasks to the worker pool. The
	// same pass re-admits retries whose NextRetryAt has elapsed.
	if _, err := q.cron.AddFunc("@every 5s", q.Dispatch); err != nil {
		return fmt.Errorf("failed to add dispatch job: %w", err)
	}

	// Every minute: recover tasks stuck in running with no live worker.
	if _, err := q.cron.AddFunc("@every 1m", q.sweepStale); err != nil {
		return fmt.Errorf("failed to add stale sweep job: %w", err)
	}

	if q.metrics != nil {
		if _, err := q.cron.AddFunc("@every 15s", q.publishMetrics); err != nil {
			return fmt.Errorf("failed to add metrics job: %w", err)
		}
	}

	q.cron.Start()

	// Recover tasks left running by a previous process before dispatching.
	go func() {
		q.sweepStale()
		q.Dispatch()
	}()

	return nil
}

// Stop halts dispatching, cancels in-flight work and waits for workers.
func (q *Queue) Stop() {
	q.logger.Info("Stopping task queue")
	q.cron.Stop()
	q.cancel()
	q.wg.Wait()
}

// Enqueue creates a pending task for a path. Names on the ignore list are
// rejected outright. A non-positive maxRetries takes the configured
// default.
func (q *Queue) Enqueue(path string, isDirectory bool, priority, maxRetries int) (*models.ScrapingTask, error) {
	name := filepath.Base(path)

	if q.ignore != nil {
		if matched, term := q.ignore.Matches(name); matched {
			return nil, fmt.Errorf("name %q matches ignore term %q", name, term)
		}
	}

	if maxRetries <= 0 {
		maxRetries = q.cfg.DefaultMaxRetries
	}

	task := &models.ScrapingTask{
		ID:          uuid.NewString(),
		FilePath:    path,
		FileName:    name,
		IsDirectory: isDirectory,
		Status:      models.TaskStatusPending,
		Priority:    priority,
		MaxRetries:  maxRetries,
	}

	if err := q.db.CreateTask(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":  task.ID,
		"name":     name,
		"priority": priority,
	}).Info("Task enqueued")

	go q.Dispatch()
	return task, nil
}

// Dispatch pulls due pending tasks in priority order and hands them to
// free workers. The pending-to-running transition is a compare-and-swap,
// so overlapping dispatch passes cannot double-run a task.
func (q *Queue) Dispatch() {
	tasks, err := q.db.GetDispatchableTasks(time.Now(), q.cfg.BatchSize)
	if err != nil {
		q.logger.WithError(err).Error("Failed to load dispatchable tasks")
		return
	}

	for _, task := range tasks {
		select {
		case q.slots <- struct{}{}:
		default:
			return // pool is full, next pass picks the rest up
		}

		claimed, err := q.db.TransitionTask(task.ID, models.TaskStatusPending, models.TaskStatusRunning, func(t *models.ScrapingTask) {
			now := time.Now()
			t.StartedAt = &now
			t.NextRetryAt = nil
		})
		if err != nil || !claimed {
			<-q.slots
			if err != nil {
				q.logger.WithError(err).WithField("task_id", task.ID).Error("Failed to claim task")
			}
			continue
		}

		q.wg.Add(1)
		go q.runTask(task)
	}
}

// runTask executes one attempt for a claimed task.
func (q *Queue) runTask(task *models.ScrapingTask) {
	defer q.wg.Done()
	defer func() { <-q.slots }()

	taskCtx, cancelTask := context.WithCancel(q.baseCtx)
	q.mu.Lock()
	q.running[task.ID] = cancelTask
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.running, task.ID)
		q.mu.Unlock()
		cancelTask()
	}()

	attemptCtx, cancelAttempt := context.WithTimeout(taskCtx, q.cfg.ProcessingTimeout)
	defer cancelAttempt()

	started := time.Now()
	result, err := q.scraper.Resolve(attemptCtx, task.FileName, task.IsDirectory, task.FilePath)

	// An explicit cancel beats any other outcome; nothing is committed
	// after it.
	if taskCtx.Err() != nil && q.baseCtx.Err() == nil {
		q.markCanceled(task.ID)
		return
	}

	if err != nil {
		// Shutdown is not a task failure: the attempt is abandoned as
		// running without touching the retry budget, and the stale
		// sweep reclaims it on the next start.
		if q.baseCtx.Err() != nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = models.ErrAttemptTimeout
		}
		q.markFailed(task.ID, err)
		return
	}

	q.markCompleted(task.ID, result, time.Since(started))
}

func (q *Queue) markCompleted(id string, result *models.DetailedMedia, elapsed time.Duration) {
	_, err := q.db.TransitionTask(id, models.TaskStatusRunning, models.TaskStatusCompleted, func(t *models.ScrapingTask) {
		now := time.Now()
		t.Result = result
		t.LastError = ""
		t.CompletedAt = &now
	})
	if err != nil {
		q.logger.WithError(err).WithField("task_id", id).Error("Failed to mark task completed")
		return
	}

	if q.metrics != nil {
		q.metrics.ObserveProcessing(elapsed)
	}

	q.logger.WithFields(logrus.Fields{
		"task_id":     id,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Task completed")
}

// markFailed records a failed attempt. While retry budget remains the task
// goes back to pending behind a capped exponential delay; otherwise it is
// failed for good and stays visible for inspection.
func (q *Queue) markFailed(id string, cause error) {
	task, err := q.db.GetTaskByID(id)
	if err != nil {
		q.logger.WithError(err).WithField("task_id", id).Error("Failed to load task after attempt")
		return
	}

	if task.RetryCount < task.MaxRetries {
		_, err = q.db.TransitionTask(id, models.TaskStatusRunning, models.TaskStatusPending, func(t *models.ScrapingTask) {
			t.RetryCount++
			t.LastError = cause.Error()
			next := time.Now().Add(q.retryDelay(t.RetryCount))
			t.NextRetryAt = &next
		})
		if err == nil {
			q.logger.WithFields(logrus.Fields{
				"task_id": id,
				"retry":   task.RetryCount + 1,
				"error":   cause.Error(),
			}).Warn("Task attempt failed, scheduled for retry")
		}
	} else {
		_, err = q.db.TransitionTask(id, models.TaskStatusRunning, models.TaskStatusFailed, func(t *models.ScrapingTask) {
			t.LastError = cause.Error()
			now := time.Now()
			t.CompletedAt = &now
		})
		if err == nil {
			q.logger.WithFields(logrus.Fields{
				"task_id": id,
				"error":   cause.Error(),
			}).Error("Task failed permanently")
		}
	}
	if err != nil {
		q.logger.WithError(err).WithField("task_id", id).Error("Failed to record task failure")
	}
}

func (q *Queue) markCanceled(id string) {
	_, err := q.db.TransitionTask(id, models.TaskStatusRunning, models.TaskStatusCanceled, func(t *models.ScrapingTask) {
		now := time.Now()
		t.CompletedAt = &now
	})
	if err != nil {
		q.logger.WithError(err).WithField("task_id", id).Error("Failed to mark task canceled")
		return
	}
	q.logger.WithField("task_id", id).Info("Task canceled")
}

// retryDelay computes min(retryDelay * factor^retryCount, maxRetryDelay).
func (q *Queue) retryDelay(retryCount int) time.Duration {
	delay := time.Duration(float64(q.cfg.RetryDelay) * math.Pow(q.cfg.BackoffFactor, float64(retryCount)))
	if delay > q.cfg.MaxRetryDelay || delay <= 0 {
		delay = q.cfg.MaxRetryDelay
	}
	return delay
}

// Cancel requests cancellation of a task. Pending tasks are canceled
// immediately; running tasks are canceled cooperatively at their next
// suspension point.
func (q *Queue) Cancel(id string) error {
	canceled, err := q.db.TransitionTask(id, models.TaskStatusPending, models.TaskStatusCanceled, func(t *models.ScrapingTask) {
		now := time.Now()
		t.CompletedAt = &now
	})
	if err != nil {
		return err
	}
	if canceled {
		q.logger.WithField("task_id", id).Info("Pending task canceled")
		return nil
	}

	q.mu.Lock()
	cancelTask, ok := q.running[id]
	q.mu.Unlock()
	if ok {
		cancelTask()
		return nil
	}

	task, err := q.db.GetTaskByID(id)
	if err != nil {
		return err
	}
	return fmt.Errorf("task %s is %s and cannot be canceled", id, task.Status)
}

// Retry re-admits a terminally failed task with a fresh retry budget.
func (q *Queue) Retry(id string) error {
	readmitted, err := q.db.TransitionTask(id, models.TaskStatusFailed, models.TaskStatusPending, func(t *models.ScrapingTask) {
		t.RetryCount = 0
		t.LastError = ""
		t.NextRetryAt = nil
		t.StartedAt = nil
		t.CompletedAt = nil
	})
	if err != nil {
		return err
	}
	if !readmitted {
		return fmt.Errorf("task %s is not in a failed state", id)
	}
	go q.Dispatch()
	return nil
}

// sweepStale treats running tasks with no live worker and an expired
// deadline as failed attempts. This covers workers lost to a crash or a
// previous process.
func (q *Queue) sweepStale() {
	tasks, err := q.db.GetTasksByStatus(models.TaskStatusRunning)
	if err != nil {
		q.logger.WithError(err).Error("Failed to load running tasks for stale sweep")
		return
	}

	cutoff := time.Now().Add(-(q.cfg.ProcessingTimeout + staleGrace))
	for _, task := range tasks {
		q.mu.Lock()
		_, alive := q.running[task.ID]
		q.mu.Unlock()
		if alive {
			continue
		}
		if task.StartedAt != nil && task.StartedAt.After(cutoff) {
			continue
		}

		q.logger.WithField("task_id", task.ID).Warn("Reclaiming stale running task")
		q.markFailed(task.ID, models.ErrAttemptTimeout)
	}
}

// Stats returns the current queue counters.
func (q *Queue) Stats() (*models.QueueStats, error) {
	return q.db.Stats()
}

func (q *Queue) publishMetrics() {
	stats, err := q.db.Stats()
	if err != nil {
		q.logger.WithError(err).Error("Failed to derive queue stats")
		return
	}
	q.metrics.SetStats(stats)
}
