package models

import (
	"fmt"
	"time"
)

// ScrapingTask is one unit of retryable resolution work tracked by the
// scheduler. Status and timestamps are mutated only by the scheduler;
// result and last error only on completion of a single attempt.
type ScrapingTask struct {
	ID string `boltholdKey:"ID"`

	FilePath    string
	FileName    string
	IsDirectory bool

	Status   TaskStatus `boltholdIndex:"Status"`
	Priority int

	RetryCount int
	MaxRetries int
	LastError  string

	Result *DetailedMedia

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	NextRetryAt *time.Time
}

// Due reports whether a pending task may be dispatched at the given time.
// Tasks waiting on a retry delay stay out of the dispatch set until their
// NextRetryAt has elapsed.
func (t *ScrapingTask) Due(now time.Time) bool {
	if t.Status != TaskStatusPending {
		return false
	}
	return t.NextRetryAt == nil || !t.NextRetryAt.After(now)
}

// QueueConfig carries the scheduler knobs.
type QueueConfig struct {
	Concurrency       int
	BatchSize         int
	RetryDelay        time.Duration
	MaxRetryDelay     time.Duration
	BackoffFactor     float64
	DefaultMaxRetries int
	ProcessingTimeout time.Duration
}

// Validate checks that every knob is positive and the delays are ordered.
func (c QueueConfig) Validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive, got %s", c.RetryDelay)
	}
	if c.MaxRetryDelay <= 0 {
		return fmt.Errorf("max retry delay must be positive, got %s", c.MaxRetryDelay)
	}
	if c.RetryDelay > c.MaxRetryDelay {
		return fmt.Errorf("retry delay %s exceeds max retry delay %s", c.RetryDelay, c.MaxRetryDelay)
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("backoff factor must be >= 1, got %g", c.BackoffFactor)
	}
	if c.DefaultMaxRetries <= 0 {
		return fmt.Errorf("default max retries must be positive, got %d", c.DefaultMaxRetries)
	}
	if c.ProcessingTimeout <= 0 {
		return fmt.Errorf("processing timeout must be positive, got %s", c.ProcessingTimeout)
	}
	return nil
}

// QueueStats is a point-in-time summary of the task collection.
type QueueStats struct {
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Canceled  int `json:"canceled"`
	Total     int `json:"total"`

	// AverageProcessingTime is the mean completedAt-startedAt over
	// completed tasks, in milliseconds. Zero when nothing completed yet.
	AverageProcessingTime int64 `json:"average_processing_time_ms"`
}
