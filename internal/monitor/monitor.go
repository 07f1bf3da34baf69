// Package monitor owns the canonical state of every workflow from creation
// to terminal state. All mutation funnels through a single critical section
// so the state table stays consistent under concurrent access from the
// worker pool and the timeout sweep.
package monitor

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// ErrUnknownWorkflow is returned for transitions on IDs the monitor has
// never seen or has already evicted from history.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// ErrInvalidTransition is returned for transitions that would leave a
// terminal state or otherwise violate the monotonic state machine. Callers
// racing on the dual timeout paths treat this as a no-op.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// Sink receives notifications for operationally significant transitions.
// Implementations must not block; delivery is best-effort.
type Sink interface {
	Notify(level models.NotificationLevel, title, message string, context map[string]any)
}

// Archiver persists terminal workflows for inspection across restarts.
type Archiver interface {
	Append(wf models.Workflow) error
}

// Monitor tracks active workflows and a bounded buffer of recently finished
// ones, and runs a periodic sweep that expires overrunning workflows.
type Monitor struct {
	sweepInterval time.Duration
	historyLimit  int
	sink          Sink     // optional
	archiver      Archiver // optional
	now           func() time.Time

	mu     sync.Mutex
	active map[string]*models.Workflow
	recent []models.Workflow // oldest first

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a monitor. sink and archiver may be nil.
func New(historyLimit int, sweepInterval time.Duration, sink Sink, archiver Archiver) *Monitor {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Monitor{
		sweepInterval: sweepInterval,
		historyLimit:  historyLimit,
		sink:          sink,
		archiver:      archiver,
		now:           func() time.Time { return time.Now().UTC() },
		active:        make(map[string]*models.Workflow),
		stopChan:      make(chan struct{}),
	}
}

// Start launches the background timeout sweep.
func (m *Monitor) Start() {
	if m.sweepInterval <= 0 {
		logger.L().Warn("Timeout sweep disabled, sweep_interval not positive")
		return
	}
	m.wg.Add(1)
	go m.sweepLoop()
	logger.L().Info("Workflow monitor started", "sweep_interval", m.sweepInterval.String())
}

// Stop halts the sweep and waits for it to exit. Workflow state remains
// readable after Stop.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
	logger.L().Info("Workflow monitor stopped")
}

// Create registers a new workflow in the pending state and returns a copy.
// IDs are unique for the process lifetime.
func (m *Monitor) Create(zone, filePath string, agent models.AgentType, timeout time.Duration) models.Workflow {
	wf := models.Workflow{
		ID:        uuid.NewString(),
		Zone:      zone,
		FilePath:  filePath,
		Agent:     string(agent),
		State:     models.StatePending,
		Timeout:   timeout,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.active[wf.ID] = &wf
	m.mu.Unlock()

	logger.L().Info("Workflow created", "workflow_id", wf.ID, "zone", zone, "file_path", filePath)
	return wf
}

// Transition requests a state change for the given workflow. Attempts to
// leave a terminal state or re-enter pending are rejected with
// ErrInvalidTransition and logged, never escalated. Terminal transitions
// move the workflow into the recent-history buffer and fan out to the
// notification sink and the archiver.
func (m *Monitor) Transition(id string, state models.WorkflowState, errMsg string) error {
	m.mu.Lock()
	wf, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		logger.L().Warn("Transition requested for unknown or finished workflow", "workflow_id", id, "state", state)
		return ErrUnknownWorkflow
	}

	switch state {
	case models.StateRunning:
		if wf.State != models.StatePending {
			m.mu.Unlock()
			logger.L().Warn("Rejected workflow transition", "workflow_id", id, "from", wf.State, "to", state)
			return ErrInvalidTransition
		}
		wf.State = models.StateRunning
		wf.StartedAt = m.now()
		m.mu.Unlock()
		logger.L().Info("Workflow running", "workflow_id", id, "zone", wf.Zone)
		return nil

	case models.StateCompleted, models.StateFailed, models.StateTimeout:
		wf.State = state
		wf.FinishedAt = m.now()
		wf.Error = errMsg
		finished := *wf
		delete(m.active, id)
		m.recent = append(m.recent, finished)
		if len(m.recent) > m.historyLimit {
			m.recent = m.recent[len(m.recent)-m.historyLimit:]
		}
		m.mu.Unlock()

		logger.L().Info("Workflow finished",
			"workflow_id", id, "zone", finished.Zone, "state", state,
			"duration", finished.RunDuration(m.now()).String(), "error", errMsg)
		m.afterTerminal(finished)
		return nil

	default:
		m.mu.Unlock()
		logger.L().Warn("Rejected workflow transition", "workflow_id", id, "from", wf.State, "to", state)
		return ErrInvalidTransition
	}
}

// afterTerminal fans a finished workflow out to the sink and archiver.
// Called outside the critical section; both paths are best-effort.
func (m *Monitor) afterTerminal(wf models.Workflow) {
	if m.archiver != nil {
		if err := m.archiver.Append(wf); err != nil {
			logger.L().Error("Failed to archive workflow history", "workflow_id", wf.ID, "error", err)
		}
	}
	if m.sink == nil {
		return
	}

	fileName := filepath.Base(wf.FilePath)
	ctx := map[string]any{
		"workflowId": wf.ID,
		"zone":       wf.Zone,
		"filePath":   wf.FilePath,
	}
	if wf.Error != "" {
		ctx["error"] = wf.Error
	}

	switch wf.State {
	case models.StateCompleted:
		m.sink.Notify(models.LevelInfo,
			fmt.Sprintf("Workflow Completed: %s", wf.Zone),
			fmt.Sprintf("File: %s", fileName), ctx)
	case models.StateFailed:
		m.sink.Notify(models.LevelError,
			fmt.Sprintf("Workflow Failed: %s", wf.Zone),
			fmt.Sprintf("File: %s\nError: %s", fileName, wf.Error), ctx)
	case models.StateTimeout:
		m.sink.Notify(models.LevelCritical,
			fmt.Sprintf("Workflow Timeout: %s", wf.Zone),
			fmt.Sprintf("File: %s\nDuration: %s", fileName, wf.RunDuration(m.now()).String()), ctx)
	}
}

// Get returns a copy of the workflow with the given ID, whether active or
// in the recent-history buffer.
func (m *Monitor) Get(id string) (models.Workflow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wf, ok := m.active[id]; ok {
		return *wf, true
	}
	for i := len(m.recent) - 1; i >= 0; i-- {
		if m.recent[i].ID == id {
			return m.recent[i], true
		}
	}
	return models.Workflow{}, false
}

// ListActive returns a snapshot of all non-terminal workflows.
func (m *Monitor) ListActive() []models.Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Workflow, 0, len(m.active))
	for _, wf := range m.active {
		out = append(out, *wf)
	}
	return out
}

// ListRecent returns up to limit recently finished workflows, newest first.
func (m *Monitor) ListRecent(limit int) []models.Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.recent) {
		limit = len(m.recent)
	}
	out := make([]models.Workflow, 0, limit)
	for i := len(m.recent) - 1; i >= len(m.recent)-limit; i-- {
		out = append(out, m.recent[i])
	}
	return out
}

// Stats is a point-in-time snapshot for the health surface.
type Stats struct {
	Active       int
	Completed    int
	OldestActive time.Time // zero when nothing is active
}

// Snapshot returns counts taken under the state lock so readers never see
// torn state.
func (m *Monitor) Snapshot() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{Active: len(m.active), Completed: len(m.recent)}
	for _, wf := range m.active {
		ref := wf.StartedAt
		if ref.IsZero() {
			ref = wf.CreatedAt
		}
		if st.OldestActive.IsZero() || ref.Before(st.OldestActive) {
			st.OldestActive = ref
		}
	}
	return st
}

func (m *Monitor) sweepLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			if expired := m.expireOverdue(); len(expired) > 0 {
				logger.L().Warn("Workflows timed out by sweep", "count", len(expired), "workflow_ids", expired)
			}
		}
	}
}

// expireOverdue marks every running workflow past its timeout as timed out.
// This is the mechanism of record even when the executor-side deadline also
// fires; whichever path gets there first wins and the second is a no-op.
func (m *Monitor) expireOverdue() []string {
	now := m.now()

	m.mu.Lock()
	var overdue []string
	for id, wf := range m.active {
		if wf.State != models.StateRunning || wf.Timeout <= 0 {
			continue
		}
		if now.Sub(wf.StartedAt) > wf.Timeout {
			overdue = append(overdue, id)
		}
	}
	m.mu.Unlock()

	var expired []string
	for _, id := range overdue {
		if err := m.Transition(id, models.StateTimeout, "exceeded configured timeout"); err == nil {
			expired = append(expired, id)
		}
	}
	return expired
}
