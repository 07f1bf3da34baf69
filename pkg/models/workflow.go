package models

import "time"

// WorkflowState is the lifecycle state of a tracked workflow. The machine is
// monotonic: pending -> running -> {completed | failed | timeout}, and a
// workflow never leaves a terminal state.
type WorkflowState string

const (
	StatePending   WorkflowState = "pending"
	StateRunning   WorkflowState = "running"
	StateCompleted WorkflowState = "completed"
	StateFailed    WorkflowState = "failed"
	StateTimeout   WorkflowState = "timeout"
)

// Terminal reports whether no further transition is possible from s.
func (s WorkflowState) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateTimeout
}

// Failure reasons recorded on a workflow's Error field for failures that do
// not originate in the external handler itself.
const (
	ReasonQueueOverflow = "queue_overflow"
	ReasonShutdown      = "shutdown"
)

// Workflow is the tracked lifecycle of processing one matched file event.
// It is owned exclusively by the monitor; everything else requests state
// changes through the monitor's interface.
type Workflow struct {
	ID         string        `json:"workflow_id"`
	Zone       string        `json:"zone"`
	FilePath   string        `json:"file_path"`
	Agent      string        `json:"agent"`
	State      WorkflowState `json:"state"`
	Timeout    time.Duration `json:"-"` // Effective per-workflow timeout, set at creation
	CreatedAt  time.Time     `json:"created_at"`
	StartedAt  time.Time     `json:"started_at,omitempty"`
	FinishedAt time.Time     `json:"finished_at,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// RunDuration returns how long the workflow ran, or how long it has been
// running so far if it has not finished.
func (w Workflow) RunDuration(now time.Time) time.Duration {
	if w.StartedAt.IsZero() {
		return 0
	}
	if !w.FinishedAt.IsZero() {
		return w.FinishedAt.Sub(w.StartedAt)
	}
	return now.Sub(w.StartedAt)
}
