// Package router matches normalized file events against configured drop
// zones and turns matches into tracked, queued work.
package router

import (
	"errors"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/internal/queue"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// Zone is a drop zone with its watched directories resolved (zone_dirs glob
// entries expanded to concrete paths).
type Zone struct {
	Config models.ZoneConfig
	Dirs   []string
}

// Tracker is the subset of the workflow monitor the router needs.
type Tracker interface {
	Create(zone, filePath string, agent models.AgentType, timeout time.Duration) models.Workflow
	Transition(id string, state models.WorkflowState, errMsg string) error
}

// Enqueuer is the subset of the task queue the router needs.
type Enqueuer interface {
	TryEnqueue(item models.WorkItem) error
}

// Router selects at most one target zone for each event. Zones are checked
// in declaration order and the first match wins; an event is never fanned
// out to multiple zones.
type Router struct {
	zones           []Zone
	caseInsensitive bool
	tracker         Tracker
	queue           Enqueuer
}

// New creates a router over the given resolved zones.
func New(zones []Zone, caseInsensitive bool, tracker Tracker, q Enqueuer) *Router {
	return &Router{
		zones:           zones,
		caseInsensitive: caseInsensitive,
		tracker:         tracker,
		queue:           q,
	}
}

// Route evaluates one normalized event. On a match it creates a pending
// workflow and enqueues a work item referencing it; the two happen
// back-to-back on the single routing goroutine, so no workflow exists
// without a queued item and vice versa. When the queue is full the workflow
// is immediately failed with the queue_overflow reason. Route never blocks.
// It returns true when the event was accepted into the queue.
func (r *Router) Route(event models.FileEvent) bool {
	target := event.TargetPath()

	zone, ok := r.match(event.Kind, target)
	if !ok {
		logger.L().Debug("Event discarded, no matching zone", "path", target, "kind", event.Kind)
		return false
	}

	wf := r.tracker.Create(zone.Name, target, zone.Agent, zone.Timeout.Duration)
	item := models.WorkItem{
		WorkflowID: wf.ID,
		Zone:       zone.Name,
		Path:       target,
		Kind:       event.Kind,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := r.queue.TryEnqueue(item); err != nil {
		if errors.Is(err, queue.ErrFull) {
			if terr := r.tracker.Transition(wf.ID, models.StateFailed, models.ReasonQueueOverflow); terr != nil {
				logger.L().Error("Failed to fail overflowed workflow", "workflow_id", wf.ID, "error", terr)
			}
		} else {
			if terr := r.tracker.Transition(wf.ID, models.StateFailed, err.Error()); terr != nil {
				logger.L().Error("Failed to fail rejected workflow", "workflow_id", wf.ID, "error", terr)
			}
		}
		return false
	}

	logger.L().Info("Event routed", "zone", zone.Name, "path", target, "kind", event.Kind, "workflow_id", wf.ID)
	return true
}

// match returns the first zone whose directories, event kinds, and file
// patterns all accept the event.
func (r *Router) match(kind models.EventType, target string) (models.ZoneConfig, bool) {
	for _, zone := range r.zones {
		if !zone.Config.HasEvent(kind) {
			continue
		}
		if !r.underZoneDirs(zone.Dirs, target) {
			continue
		}
		if !r.matchesPattern(zone.Config.FilePatterns, filepath.Base(target)) {
			continue
		}
		return zone.Config, true
	}
	return models.ZoneConfig{}, false
}

func (r *Router) underZoneDirs(dirs []string, target string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, target)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (r *Router) matchesPattern(patterns []string, name string) bool {
	if r.caseInsensitive {
		name = strings.ToLower(name)
	}
	for _, pattern := range patterns {
		if r.caseInsensitive {
			pattern = strings.ToLower(pattern)
		}
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
