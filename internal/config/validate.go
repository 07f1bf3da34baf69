package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

var validEvents = map[models.EventType]bool{
	models.EventCreated:  true,
	models.EventModified: true,
	models.EventDeleted:  true,
	models.EventMoved:    true,
}

var validAgents = map[models.AgentType]bool{
	models.AgentClaudeCode: true,
	models.AgentGeminiCLI:  true,
	models.AgentCodexCLI:   true,
}

var validLevels = map[models.NotificationLevel]bool{
	models.LevelInfo:     true,
	models.LevelWarning:  true,
	models.LevelError:    true,
	models.LevelCritical: true,
}

// Validate checks the entire configuration for logical consistency and
// required fields. Any error here is fatal at startup: the process must not
// begin watching with a broken zone definition.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}

	if err := validateApplicationSettings(&cfg.Application); err != nil {
		return fmt.Errorf("invalid application settings: %w", err)
	}
	if err := validateNotificationSettings(&cfg.Notifications); err != nil {
		return fmt.Errorf("invalid notification settings: %w", err)
	}

	if len(cfg.DropZones) == 0 {
		return errors.New("at least one drop zone must be configured")
	}

	zoneNames := make(map[string]bool)
	for i, zone := range cfg.DropZones {
		if err := validateZoneConfig(&zone, i); err != nil {
			return fmt.Errorf("invalid drop zone at index %d (name: %s): %w", i, zone.Name, err)
		}
		if zoneNames[zone.Name] {
			return fmt.Errorf("duplicate drop zone name found: %s", zone.Name)
		}
		zoneNames[zone.Name] = true
	}
	return nil
}

func validateApplicationSettings(app *models.ApplicationSettings) error {
	if app.LogLevel != "" {
		level := strings.ToLower(app.LogLevel)
		if level != "debug" && level != "info" && level != "warn" && level != "error" {
			return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", app.LogLevel)
		}
	}
	if app.LogFormat != "" {
		format := strings.ToLower(app.LogFormat)
		if format != "text" && format != "json" {
			return fmt.Errorf("invalid log_format: %s (must be text or json)", app.LogFormat)
		}
	}
	if app.WorkerCount < 1 {
		return fmt.Errorf("worker_count must be at least 1: %d", app.WorkerCount)
	}
	if app.QueueCapacity < 1 {
		return fmt.Errorf("queue_capacity must be at least 1: %d", app.QueueCapacity)
	}
	if app.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be at least 1: %d", app.HistoryLimit)
	}
	return nil
}

func validateNotificationSettings(n *models.NotificationSettings) error {
	if !validLevels[n.MinLevel] {
		return fmt.Errorf("invalid min_level: %s (must be info, warning, error, or critical)", n.MinLevel)
	}
	if n.WebhookURL != "" {
		u, err := url.Parse(n.WebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid webhook_url: %s", n.WebhookURL)
		}
	}
	if err := validateRetryPolicy(n.RetryPolicy, "retry_policy"); err != nil {
		return err
	}
	return nil
}

func validateZoneConfig(zone *models.ZoneConfig, index int) error {
	if zone.Name == "" {
		return fmt.Errorf("drop zone at index %d must have a name", index)
	}
	if len(zone.ZoneDirs) == 0 {
		return errors.New("zone_dirs must contain at least one directory")
	}
	for _, d := range zone.ZoneDirs {
		if d == "" {
			return errors.New("zone_dirs entries cannot be empty")
		}
	}
	if len(zone.FilePatterns) == 0 {
		return errors.New("file_patterns must contain at least one pattern")
	}
	for _, p := range zone.FilePatterns {
		if _, err := path.Match(p, "probe"); err != nil {
			return fmt.Errorf("invalid file pattern '%s': %w", p, err)
		}
	}
	for _, e := range zone.Events {
		if !validEvents[e] {
			return fmt.Errorf("invalid event type: %s", e)
		}
	}
	if !validAgents[zone.Agent] {
		return fmt.Errorf("invalid agent type: %s", zone.Agent)
	}
	if zone.ReusablePrompt == "" {
		return errors.New("reusable_prompt cannot be empty")
	}
	if zone.MaxConcurrent < 0 {
		return fmt.Errorf("max_concurrent cannot be negative: %d", zone.MaxConcurrent)
	}
	return nil
}

func validateRetryPolicy(policy *models.RetryPolicy, fieldName string) error {
	if policy == nil {
		return nil
	}
	if policy.MaxRetries != nil && *policy.MaxRetries < 0 {
		return fmt.Errorf("%s: max_retries cannot be negative", fieldName)
	}
	if policy.Delay != nil && *policy.Delay < 0 {
		return fmt.Errorf("%s: delay cannot be negative", fieldName)
	}
	if policy.BackoffFactor != nil && *policy.BackoffFactor < 1.0 {
		return fmt.Errorf("%s: backoff_factor cannot be less than 1.0", fieldName)
	}
	return nil
}
