package parallelism

import (
	"errors"
	"sync/atomic"
	"testing"
)

// TestPoolRunsAllTasks tests that every submitted task executes exactly
// once.
func TestPoolRunsAllTasks(t *testing.T) {
	var count atomic.Int32
	tasks := make([]Task, 50)
	for i := range tasks {
		tasks[i] = func() error {
			count.Add(1)
			return nil
		}
	}

	pool := NewPool(4)
	if err := pool.Run(tasks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count.Load() != int32(len(tasks)) {
		t.Errorf("expected %d tasks to run, got %d", len(tasks), count.Load())
	}
}

// TestPoolReturnsFirstError tests that Run surfaces an error when any task
// fails.
func TestPoolReturnsFirstError(t *testing.T) {
	want := errors.New("boom")
	tasks := []Task{
		func() error { return nil },
		func() error { return want },
		func() error { return nil },
	}

	pool := NewPool(2)
	if err := pool.Run(tasks); err == nil {
		t.Error("expected an error from the pool")
	}
}

// TestPoolHandlesEmptyBatch tests that Run is a no-op for an empty task
// list.
func TestPoolHandlesEmptyBatch(t *testing.T) {
	pool := NewPool(4)
	if err := pool.Run(nil); err != nil {
		t.Errorf("unexpected error on empty batch: %v", err)
	}
}

// TestNewPoolDefaultsToCPUCount tests that a non-positive size does not
// panic and produces a usable pool.
func TestNewPoolDefaultsToCPUCount(t *testing.T) {
	pool := NewPool(0)
	if err := pool.Run([]Task{func() error { return nil }}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
