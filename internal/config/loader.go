package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rartzi/agentic-drop-zones/pkg/models"
	"gopkg.in/yaml.v3"
)

// Defaults applied to fields the config file leaves unset.
const (
	DefaultWorkerCount    = 3
	DefaultQueueCapacity  = 100
	DefaultTimeout        = 300 * time.Second
	DefaultSweepInterval  = 5 * time.Second
	DefaultDedupWindow    = 500 * time.Millisecond
	DefaultHistoryLimit   = 50
	DefaultHealthAddr     = "127.0.0.1:8080"
	DefaultShutdownGrace  = 30 * time.Second
	DefaultNotifyTimeout  = 10 * time.Second
	DefaultNotifyMinLevel = models.LevelError
)

// Load reads a YAML configuration file from the given path, applies
// defaults and environment overrides, and validates the result.
func Load(configPath string) (*models.Config, error) {
	yamlFile, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	var cfg models.Config
	if err := yaml.Unmarshal(yamlFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file '%s': %w", configPath, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *models.Config) {
	app := &cfg.Application
	if app.WorkerCount <= 0 {
		app.WorkerCount = DefaultWorkerCount
	}
	if app.QueueCapacity <= 0 {
		app.QueueCapacity = DefaultQueueCapacity
	}
	if app.DefaultTimeout.Duration <= 0 {
		app.DefaultTimeout.Duration = DefaultTimeout
	}
	if app.SweepInterval.Duration <= 0 {
		app.SweepInterval.Duration = DefaultSweepInterval
	}
	if app.DedupWindow.Duration <= 0 {
		app.DedupWindow.Duration = DefaultDedupWindow
	}
	if app.HistoryLimit <= 0 {
		app.HistoryLimit = DefaultHistoryLimit
	}
	if app.HealthAddr == "" {
		app.HealthAddr = DefaultHealthAddr
	}
	if app.ShutdownGrace.Duration <= 0 {
		app.ShutdownGrace.Duration = DefaultShutdownGrace
	}

	n := &cfg.Notifications
	if n.MinLevel == "" {
		n.MinLevel = DefaultNotifyMinLevel
	}
	if n.Timeout.Duration <= 0 {
		n.Timeout.Duration = DefaultNotifyTimeout
	}

	for i := range cfg.DropZones {
		z := &cfg.DropZones[i]
		if len(z.Events) == 0 {
			z.Events = []models.EventType{models.EventCreated}
		}
		if z.Agent == "" {
			z.Agent = models.AgentClaudeCode
		}
		if z.Timeout.Duration <= 0 {
			z.Timeout.Duration = app.DefaultTimeout.Duration
		}
	}
}

// applyEnvOverrides lets the environment override the webhook knobs so
// deployments can keep the URL out of the config file.
func applyEnvOverrides(cfg *models.Config) {
	if url := os.Getenv("NOTIFICATION_WEBHOOK_URL"); url != "" {
		cfg.Notifications.WebhookURL = url
	}
	if lvl := os.Getenv("NOTIFICATION_MIN_LEVEL"); lvl != "" {
		cfg.Notifications.MinLevel = models.NotificationLevel(lvl)
	}
}
