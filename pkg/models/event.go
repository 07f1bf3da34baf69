package models

import "time"

// EventType identifies the kind of file system change that was observed.
type EventType string

const (
	EventCreated  EventType = "created"
	EventModified EventType = "modified"
	EventDeleted  EventType = "deleted"
	EventMoved    EventType = "moved"
)

// FileEvent is a raw notification from the file system watcher. DestPath is
// only set for moved events when the watcher can resolve the destination.
type FileEvent struct {
	Path       string    `json:"path"`
	Kind       EventType `json:"kind"`
	DestPath   string    `json:"dest_path,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// TargetPath returns the path a moved event should be evaluated against.
// Moved events match on their destination; every other kind matches on Path.
func (e FileEvent) TargetPath() string {
	if e.Kind == EventMoved && e.DestPath != "" {
		return e.DestPath
	}
	return e.Path
}

// WorkItem is a routed unit of work awaiting a free worker. It references
// the workflow the router created for it; the workflow itself is owned by
// the monitor and never travels through the queue.
type WorkItem struct {
	WorkflowID string    `json:"workflow_id"`
	Zone       string    `json:"zone"`
	Path       string    `json:"path"`
	Kind       EventType `json:"kind"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
