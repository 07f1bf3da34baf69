package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// Runner executes the workflow handler for dequeued work items: it renders
// the zone's prompt, invokes the zone's agent, and archives the processed
// file. It implements the worker pool's Processor interface.
type Runner struct {
	zones map[string]models.ZoneConfig
}

// NewRunner creates a runner over the configured zones.
func NewRunner(zones []models.ZoneConfig) *Runner {
	byName := make(map[string]models.ZoneConfig, len(zones))
	for _, z := range zones {
		byName[z.Name] = z
	}
	return &Runner{zones: byName}
}

// Process handles one work item. Errors are returned to the worker pool,
// which records them on the workflow; they never propagate further.
func (r *Runner) Process(ctx context.Context, item models.WorkItem) error {
	zone, ok := r.zones[item.Zone]
	if !ok {
		return fmt.Errorf("zone '%s' not found for workflow %s", item.Zone, item.WorkflowID)
	}

	l := logger.L().With("workflow_id", item.WorkflowID, "zone", zone.Name, "file_path", item.Path)

	prompt, err := BuildPrompt(zone.ReusablePrompt, item.Path)
	if err != nil {
		return err
	}

	ag, err := ForZone(zone)
	if err != nil {
		return err
	}

	l.Info("Invoking agent", "agent", ag.Name(), "model", zone.Model)
	stream := func(line string) {
		l.Debug("Agent output", "agent", ag.Name(), "line", line)
	}
	if err := ag.Invoke(ctx, prompt, stream); err != nil {
		return err
	}

	if zone.ArchiveDir != "" && item.Kind != models.EventDeleted {
		if err := r.archive(item.Path, zone.ArchiveDir); err != nil {
			// The agent call succeeded; a failed archive move is logged
			// but does not fail the workflow.
			l.Warn("Failed to archive processed file", "archive_dir", zone.ArchiveDir, "error", err)
		}
	}
	return nil
}

// archive moves a processed file into the zone's archive directory. Missing
// source files are skipped; the agent may have consumed or moved the file
// itself.
func (r *Runner) archive(srcPath, archiveDir string) error {
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return nil
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	dest := filepath.Join(archiveDir, filepath.Base(srcPath))
	if err := os.Rename(srcPath, dest); err != nil {
		return fmt.Errorf("failed to move file to archive: %w", err)
	}
	logger.L().Info("Archived processed file", "from", srcPath, "to", dest)
	return nil
}
