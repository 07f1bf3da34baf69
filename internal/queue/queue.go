// Package queue provides the bounded FIFO task queue between event
// detection and workflow execution.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

const defaultCapacity = 100

// ErrFull is returned by TryEnqueue when the queue is at capacity. The
// router must never block on a full queue, since that would stall event
// detection; the offending workflow is failed instead.
var ErrFull = errors.New("task queue is full")

// ErrStopped is returned once the queue has been shut down.
var ErrStopped = errors.New("task queue stopped")

// TaskQueue holds routed work items awaiting a free worker. Enqueue is
// non-blocking and rejects once capacity is reached; Dequeue blocks until
// an item is available or the context is cancelled. Ordering is global
// FIFO across all zones.
type TaskQueue struct {
	items    chan models.WorkItem
	capacity int

	mu        sync.Mutex
	highWater int
	stopped   bool
	stopChan  chan struct{}
}

// New creates a task queue with the given capacity. Non-positive capacities
// fall back to the default.
func New(capacity int) *TaskQueue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &TaskQueue{
		items:    make(chan models.WorkItem, capacity),
		capacity: capacity,
		stopChan: make(chan struct{}),
	}
}

// TryEnqueue adds an item to the queue without blocking. It returns ErrFull
// when the queue is at capacity and ErrStopped after shutdown.
func (q *TaskQueue) TryEnqueue(item models.WorkItem) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	select {
	case q.items <- item:
		if depth := len(q.items); depth > q.highWater {
			q.highWater = depth
		}
		q.mu.Unlock()
		logger.L().Debug("Work item enqueued", "workflow_id", item.WorkflowID, "zone", item.Zone, "depth", len(q.items))
		return nil
	default:
		q.mu.Unlock()
		logger.L().Warn("Task queue full, rejecting work item", "workflow_id", item.WorkflowID, "zone", item.Zone, "capacity", q.capacity)
		return ErrFull
	}
}

// Dequeue retrieves the next work item in FIFO order. It blocks until an
// item is available, the context is cancelled, or the queue is stopped.
func (q *TaskQueue) Dequeue(ctx context.Context) (models.WorkItem, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		return models.WorkItem{}, ctx.Err()
	case <-q.stopChan:
		// Drain items already queued before the stop signal.
		select {
		case item := <-q.items:
			return item, nil
		default:
			return models.WorkItem{}, ErrStopped
		}
	}
}

// Stop rejects all further enqueues and unblocks pending Dequeue calls.
func (q *TaskQueue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return
	}
	q.stopped = true
	close(q.stopChan)
	logger.L().Info("Task queue stopped", "remaining", len(q.items))
}

// Depth returns the number of items currently queued.
func (q *TaskQueue) Depth() int {
	return len(q.items)
}

// Capacity returns the configured maximum depth.
func (q *TaskQueue) Capacity() int {
	return q.capacity
}

// HighWater returns the maximum depth observed since creation.
func (q *TaskQueue) HighWater() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.highWater
}
