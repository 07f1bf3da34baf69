// Package dedup collapses bursts of identical file system notifications
// into one logical event. Editors commonly perform several writes for a
// single save; the underlying watch mechanism reports each one.
package dedup

import (
	"sync"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// Filter is a streaming, O(1)-memory duplicate suppressor. It remembers only
// the immediately preceding accepted event: a (path, kind) pair identical to
// that event arriving within the coalescing window is dropped. A path seen
// again after an intervening different event is treated as new.
type Filter struct {
	window time.Duration

	mu       sync.Mutex
	lastPath string
	lastKind models.EventType
	lastAt   time.Time
}

// NewFilter creates a filter with the given coalescing window. A
// non-positive window disables deduplication entirely.
func NewFilter(window time.Duration) *Filter {
	return &Filter{window: window}
}

// Accept reports whether the event should be forwarded downstream. Accepted
// events become the new last-seen reference; dropped duplicates are
// discarded entirely, their timestamps are not merged.
func (f *Filter) Accept(event models.FileEvent) bool {
	if f.window <= 0 {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if event.Path == f.lastPath && event.Kind == f.lastKind &&
		event.ObservedAt.Sub(f.lastAt) < f.window {
		logger.L().Debug("Duplicate event coalesced", "path", event.Path, "kind", event.Kind)
		return false
	}

	f.lastPath = event.Path
	f.lastKind = event.Kind
	f.lastAt = event.ObservedAt
	return true
}
