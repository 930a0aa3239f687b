package models

import (
	"path/filepath"
	"testing"
	"time"
)

func TestTaskDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	task := &ScrapingTask{Status: TaskStatusPending}
	if !task.Due(now) {
		t.Error("pending task without NextRetryAt should be due")
	}

	task.NextRetryAt = &future
	if task.Due(now) {
		t.Error("task waiting on retry delay should not be due")
	}

	task.NextRetryAt = &past
	if !task.Due(now) {
		t.Error("task past its retry delay should be due")
	}

	task.Status = TaskStatusRunning
	if task.Due(now) {
		t.Error("running task should never be due")
	}
}

func TestQueueConfigValidate(t *testing.T) {
	valid := QueueConfig{
		Concurrency:       2,
		BatchSize:         5,
		RetryDelay:        time.Second,
		MaxRetryDelay:     time.Minute,
		BackoffFactor:     2,
		DefaultMaxRetries: 3,
		ProcessingTimeout: time.Minute,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	inverted := valid
	inverted.RetryDelay = 2 * time.Minute
	if err := inverted.Validate(); err == nil {
		t.Error("retry delay above max should be rejected")
	}

	shrinking := valid
	shrinking.BackoffFactor = 0.5
	if err := shrinking.Validate(); err == nil {
		t.Error("backoff factor below 1 should be rejected")
	}

	idle := valid
	idle.Concurrency = 0
	if err := idle.Validate(); err == nil {
		t.Error("zero concurrency should be rejected")
	}
}

func TestTransitionTaskCompareAndSwap(t *testing.T) {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	task := &ScrapingTask{ID: "t1", FileName: "a.mkv", Status: TaskStatusPending}
	if err := db.CreateTask(task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	claimed, err := db.TransitionTask("t1", TaskStatusPending, TaskStatusRunning, func(t *ScrapingTask) {
		now := time.Now()
		t.StartedAt = &now
	})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if !claimed {
		t.Fatal("first transition should claim the task")
	}

	// A second claim from pending must lose without error.
	claimed, err = db.TransitionTask("t1", TaskStatusPending, TaskStatusRunning, nil)
	if err != nil {
		t.Fatalf("losing transition errored: %v", err)
	}
	if claimed {
		t.Error("second transition should not claim an already running task")
	}

	got, err := db.GetTaskByID("t1")
	if err != nil {
		t.Fatalf("failed to load task: %v", err)
	}
	if got.Status != TaskStatusRunning {
		t.Errorf("expected running, got %s", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("mutate function should have set StartedAt")
	}
}
