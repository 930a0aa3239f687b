package models

// MediaKind represents the resolved type of a media item
type MediaKind string

const (
	MediaKindMovie      MediaKind = "movie"
	MediaKindTV         MediaKind = "tv"
	MediaKindCollection MediaKind = "collection"
	MediaKindNone       MediaKind = "none"
)

// TaskStatus represents the lifecycle state of a scraping task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCanceled  TaskStatus = "canceled"
)

// Terminal reports whether a status admits no further transitions. Failed is
// terminal at the status level; the scheduler re-admits failed attempts to
// pending itself while retry budget remains.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled:
		return true
	}
	return false
}
