// Package server exposes the health and workflow inspection surface over
// HTTP. All reads are served from snapshots taken under the monitor's lock,
// so callers never observe torn state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/internal/monitor"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

const defaultRecentLimit = 10

// QueueStats is the subset of the task queue the server reads.
type QueueStats interface {
	Depth() int
	Capacity() int
	HighWater() int
}

// HTTPServer serves the health and inspection endpoints.
type HTTPServer struct {
	cfg     *models.Config
	monitor *monitor.Monitor
	queue   QueueStats
	mux     *http.ServeMux
	srv     *http.Server
}

// New creates the server. It does not begin listening until Start.
func New(cfg *models.Config, mon *monitor.Monitor, queue QueueStats) *HTTPServer {
	s := &HTTPServer{
		cfg:     cfg,
		monitor: mon,
		queue:   queue,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /health/detailed", s.handleHealthDetailed)
	s.mux.HandleFunc("GET /workflows/active", s.handleActiveWorkflows)
	s.mux.HandleFunc("GET /workflows/recent", s.handleRecentWorkflows)

	s.srv = &http.Server{
		Addr:              cfg.Application.HealthAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Mux exposes the underlying mux so tests can drive handlers directly.
func (s *HTTPServer) Mux() *http.ServeMux {
	return s.mux
}

// Start begins serving in a background goroutine.
func (s *HTTPServer) Start() {
	logger.L().Info("Starting health server", "addr", s.srv.Addr)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Error("Health server failed", "error", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	logger.L().Info("Stopping health server...")
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"system":    "agentic-drop-zone",
	})
}

func (s *HTTPServer) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	stats := s.monitor.Snapshot()

	var oldest any
	if !stats.OldestActive.IsZero() {
		oldest = stats.OldestActive.Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"system_status":            "healthy",
		"timestamp":                time.Now().UTC().Format(time.RFC3339),
		"active_workflows":         stats.Active,
		"completed_workflows":      stats.Completed,
		"oldest_active_workflow":   oldest,
		"queue_depth":              s.queue.Depth(),
		"queue_capacity":           s.queue.Capacity(),
		"queue_high_water":         s.queue.HighWater(),
		"drop_zones":               len(s.cfg.DropZones),
		"notification_config": map[string]any{
			"enabled":            s.cfg.Notifications.IsEnabled(),
			"webhook_configured": s.cfg.Notifications.WebhookURL != "",
			"min_level":          string(s.cfg.Notifications.MinLevel),
		},
	})
}

func (s *HTTPServer) handleActiveWorkflows(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	active := s.monitor.ListActive()

	out := make([]map[string]any, 0, len(active))
	for _, wf := range active {
		out = append(out, map[string]any{
			"workflow_id":      wf.ID,
			"zone":             wf.Zone,
			"file_path":        wf.FilePath,
			"agent":            wf.Agent,
			"state":            string(wf.State),
			"created_at":       wf.CreatedAt.Format(time.RFC3339),
			"duration_seconds": wf.RunDuration(now).Seconds(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"active_workflows": out})
}

func (s *HTTPServer) handleRecentWorkflows(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recent := s.monitor.ListRecent(limit)

	out := make([]map[string]any, 0, len(recent))
	for _, wf := range recent {
		entry := map[string]any{
			"workflow_id":      wf.ID,
			"zone":             wf.Zone,
			"file_path":        wf.FilePath,
			"agent":            wf.Agent,
			"state":            string(wf.State),
			"finished_at":      wf.FinishedAt.Format(time.RFC3339),
			"duration_seconds": wf.RunDuration(wf.FinishedAt).Seconds(),
		}
		if wf.Error != "" {
			entry["error"] = wf.Error
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"recent_workflows": out})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.L().Error("Failed to encode response", "error", err)
	}
}
