// Package watcher turns OS file system notifications into FileEvents using
// fsnotify. One watch is registered per resolved zone directory;
// notifications are pushed onto a buffered channel so detection is never
// blocked by downstream processing.
package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

const defaultEventBuffer = 256

// Service watches every resolved zone directory and emits raw FileEvents.
type Service struct {
	zones  []models.ZoneConfig
	events chan models.FileEvent

	fsw      *fsnotify.Watcher
	resolved map[string][]string // zone name -> resolved directories
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewService creates a watcher service for the given zones.
func NewService(zones []models.ZoneConfig) *Service {
	return &Service{
		zones:    zones,
		events:   make(chan models.FileEvent, defaultEventBuffer),
		resolved: make(map[string][]string),
		stopChan: make(chan struct{}),
	}
}

// ResolveZoneDirs expands a zone's zone_dirs entries to concrete
// directories. Entries containing a * are globbed and matched directories
// are kept; plain entries must exist as directories, or are created when
// the zone opts in to create_zone_dir_if_not_exists.
func ResolveZoneDirs(zone models.ZoneConfig) ([]string, error) {
	var dirs []string
	for _, entry := range zone.ZoneDirs {
		if strings.Contains(entry, "*") {
			matches, err := filepath.Glob(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid zone_dirs pattern '%s': %w", entry, err)
			}
			found := 0
			for _, m := range matches {
				if info, err := os.Stat(m); err == nil && info.IsDir() {
					dirs = append(dirs, m)
					found++
				}
			}
			if found == 0 {
				logger.L().Warn("Zone directory pattern matched nothing", "zone", zone.Name, "pattern", entry)
			}
			continue
		}

		info, err := os.Stat(entry)
		switch {
		case err == nil && info.IsDir():
			dirs = append(dirs, entry)
		case err == nil:
			return nil, fmt.Errorf("zone_dirs entry '%s' exists but is not a directory", entry)
		case os.IsNotExist(err) && zone.CreateZoneDir:
			if err := os.MkdirAll(entry, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create zone directory '%s': %w", entry, err)
			}
			logger.L().Info("Created zone directory", "zone", zone.Name, "dir", entry)
			dirs = append(dirs, entry)
		case os.IsNotExist(err):
			return nil, fmt.Errorf("zone directory does not exist: %s (set create_zone_dir_if_not_exists to create it)", entry)
		default:
			return nil, fmt.Errorf("failed to stat zone directory '%s': %w", entry, err)
		}
	}
	return dirs, nil
}

// Start resolves every zone's directories and begins watching them.
func (s *Service) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file system watcher: %w", err)
	}
	s.fsw = fsw

	watched := make(map[string]bool)
	for _, zone := range s.zones {
		dirs, err := ResolveZoneDirs(zone)
		if err != nil {
			fsw.Close()
			return fmt.Errorf("zone '%s': %w", zone.Name, err)
		}
		s.resolved[zone.Name] = dirs

		for _, dir := range dirs {
			if watched[dir] {
				continue
			}
			if err := fsw.Add(dir); err != nil {
				fsw.Close()
				return fmt.Errorf("failed to watch directory '%s': %w", dir, err)
			}
			watched[dir] = true
			logger.L().Info("Watching drop zone directory", "zone", zone.Name, "dir", dir)
		}
	}

	if len(watched) == 0 {
		fsw.Close()
		return fmt.Errorf("no directories to watch; check zone_dirs configuration")
	}

	s.wg.Add(1)
	go s.run()
	logger.L().Info("Watcher service started", "directories", len(watched))
	return nil
}

// Events returns the stream of raw file events.
func (s *Service) Events() <-chan models.FileEvent {
	return s.events
}

// ZoneDirs returns the resolved directories for a zone. Valid after Start.
func (s *Service) ZoneDirs(zoneName string) []string {
	return s.resolved[zoneName]
}

// Stop stops watching and closes the event channel once the internal loop
// has drained.
func (s *Service) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopChan)
		if s.fsw != nil {
			err = s.fsw.Close()
		}
		s.wg.Wait()
		close(s.events)
	})
	if err != nil {
		return fmt.Errorf("failed to close file system watcher: %w", err)
	}
	return nil
}

func (s *Service) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case fe, ok := <-s.fsw.Events:
			if !ok {
				return
			}
			s.handle(fe)
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			logger.L().Error("File system watcher error", "error", err)
		}
	}
}

func (s *Service) handle(fe fsnotify.Event) {
	kind, ok := mapOp(fe.Op)
	if !ok {
		return
	}

	// Directory events never produce work; deletes and renames cannot be
	// statted, so only creation/modification of directories is filtered.
	if kind == models.EventCreated || kind == models.EventModified {
		if info, err := os.Stat(fe.Name); err == nil && info.IsDir() {
			return
		}
	}

	event := models.FileEvent{
		Path:       fe.Name,
		Kind:       kind,
		ObservedAt: time.Now().UTC(),
	}

	select {
	case s.events <- event:
	default:
		logger.L().Warn("Event buffer full, dropping file event", "path", fe.Name, "kind", kind)
	}
}

// mapOp translates an fsnotify operation to an event kind. Renames surface
// as moved without a destination path; fsnotify reports the new location as
// a separate created event, matching the cross-device behavior where a move
// appears as delete+create.
func mapOp(op fsnotify.Op) (models.EventType, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return models.EventCreated, true
	case op.Has(fsnotify.Write):
		return models.EventModified, true
	case op.Has(fsnotify.Remove):
		return models.EventDeleted, true
	case op.Has(fsnotify.Rename):
		return models.EventMoved, true
	default:
		return "", false
	}
}
