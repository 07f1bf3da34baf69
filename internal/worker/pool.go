// Package worker runs the fixed pool of executors that pull work items off
// the task queue and drive each workflow through the external handler.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// Processor executes the external workflow handler for a dequeued item.
type Processor interface {
	Process(ctx context.Context, item models.WorkItem) error
}

// Tracker is the subset of the workflow monitor the pool needs. Workers
// never mutate workflow state directly; every change is requested here.
type Tracker interface {
	Transition(id string, state models.WorkflowState, errMsg string) error
}

// Dequeuer is the subset of the task queue the pool needs.
type Dequeuer interface {
	Dequeue(ctx context.Context) (models.WorkItem, error)
}

// Pool manages N executor goroutines. A failure inside one handler
// invocation is recorded on its workflow and never terminates the executor
// or affects other in-flight work.
type Pool struct {
	workers        int
	grace          time.Duration
	defaultTimeout time.Duration
	zoneTimeouts   map[string]time.Duration
	zoneSem        map[string]chan struct{} // per-zone concurrency caps

	queue   Dequeuer
	proc    Processor
	tracker Tracker

	dequeueCtx    context.Context
	dequeueCancel context.CancelFunc
	hardCtx       context.Context
	hardCancel    context.CancelFunc
	wg            sync.WaitGroup
}

// NewPool creates a worker pool for the given settings and zones.
func NewPool(settings models.ApplicationSettings, zones []models.ZoneConfig, q Dequeuer, proc Processor, tracker Tracker) *Pool {
	workers := settings.WorkerCount
	if workers <= 0 {
		workers = 1
		logger.L().Warn("worker_count not set or invalid, defaulting to 1", "configured_value", settings.WorkerCount)
	}

	p := &Pool{
		workers:        workers,
		grace:          settings.ShutdownGrace.Duration,
		defaultTimeout: settings.DefaultTimeout.Duration,
		zoneTimeouts:   make(map[string]time.Duration),
		zoneSem:        make(map[string]chan struct{}),
		queue:          q,
		proc:           proc,
		tracker:        tracker,
	}
	for _, zone := range zones {
		if zone.Timeout.Duration > 0 {
			p.zoneTimeouts[zone.Name] = zone.Timeout.Duration
		}
		if zone.MaxConcurrent > 0 {
			p.zoneSem[zone.Name] = make(chan struct{}, zone.MaxConcurrent)
		}
	}
	return p
}

// Start launches the executor goroutines.
func (p *Pool) Start() {
	p.dequeueCtx, p.dequeueCancel = context.WithCancel(context.Background())
	p.hardCtx, p.hardCancel = context.WithCancel(context.Background())

	logger.L().Info("Starting worker pool", "workers", p.workers)
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go p.worker(i)
	}
}

// Stop stops dequeuing, allows in-flight handler invocations up to the
// grace period to finish, then cancels the remainder. Cancelled workflows
// are failed with the shutdown reason by their executor.
func (p *Pool) Stop() {
	logger.L().Info("Stopping worker pool...")
	if p.dequeueCancel == nil {
		return
	}
	p.dequeueCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	grace := p.grace
	if grace <= 0 {
		grace = 30 * time.Second
	}
	select {
	case <-done:
	case <-time.After(grace):
		logger.L().Warn("Shutdown grace period expired, cancelling in-flight workflows", "grace", grace.String())
		p.hardCancel()
		<-done
	}
	p.hardCancel()
	logger.L().Info("Worker pool stopped")
}

// worker is the dequeue loop for a single executor goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()
	l := logger.L().With("worker_id", id)
	l.Debug("Worker started")

	for {
		item, err := p.queue.Dequeue(p.dequeueCtx)
		if err != nil {
			l.Debug("Worker stopping", "reason", err)
			return
		}
		p.runOne(l, item)
	}
}

// runOne drives a single workflow: acquire the zone slot, mark it running,
// invoke the handler under the per-task deadline, and request the terminal
// transition.
func (p *Pool) runOne(l *slog.Logger, item models.WorkItem) {
	// Per-zone concurrency cap. Waiting here keeps this worker occupied
	// but never exceeds the zone's RUNNING bound.
	if sem, ok := p.zoneSem[item.Zone]; ok {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-p.hardCtx.Done():
			p.transition(item.WorkflowID, models.StateFailed, models.ReasonShutdown)
			return
		}
	}

	if err := p.tracker.Transition(item.WorkflowID, models.StateRunning, ""); err != nil {
		// Already terminal (e.g., failed elsewhere); nothing to run.
		l.Warn("Skipping work item, workflow no longer pending", "workflow_id", item.WorkflowID, "error", err)
		return
	}

	timeout := p.timeoutFor(item.Zone)
	runCtx, cancel := context.WithTimeout(p.hardCtx, timeout)
	defer cancel()

	// The handler runs in its own goroutine so a stuck invocation can be
	// abandoned at the deadline; the buffered channel lets the stray result
	// be discarded.
	done := make(chan error, 1)
	go func() {
		done <- p.proc.Process(runCtx, item)
	}()

	select {
	case err := <-done:
		switch {
		case err == nil:
			p.transition(item.WorkflowID, models.StateCompleted, "")
		case runCtx.Err() == context.DeadlineExceeded:
			p.transition(item.WorkflowID, models.StateTimeout, fmt.Sprintf("handler exceeded %s timeout", timeout))
		case p.hardCtx.Err() != nil:
			p.transition(item.WorkflowID, models.StateFailed, models.ReasonShutdown)
		default:
			p.transition(item.WorkflowID, models.StateFailed, err.Error())
		}
	case <-runCtx.Done():
		if runCtx.Err() == context.DeadlineExceeded {
			l.Warn("Abandoning timed-out handler invocation", "workflow_id", item.WorkflowID, "timeout", timeout.String())
			p.transition(item.WorkflowID, models.StateTimeout, fmt.Sprintf("handler exceeded %s timeout", timeout))
		} else {
			p.transition(item.WorkflowID, models.StateFailed, models.ReasonShutdown)
		}
	}
}

// transition requests a state change and tolerates losing the race against
// the monitor's sweep; both timeout paths funnel into the same entry point
// and the second attempt is a no-op.
func (p *Pool) transition(id string, state models.WorkflowState, errMsg string) {
	if err := p.tracker.Transition(id, state, errMsg); err != nil {
		logger.L().Debug("Workflow transition was a no-op", "workflow_id", id, "state", state, "error", err)
	}
}

func (p *Pool) timeoutFor(zone string) time.Duration {
	if t, ok := p.zoneTimeouts[zone]; ok {
		return t
	}
	if p.defaultTimeout > 0 {
		return p.defaultTimeout
	}
	return 300 * time.Second
}
