package models

import "time"

// Config is the root configuration structure loaded from drops.yaml.
type Config struct {
	Application   ApplicationSettings  `yaml:"application"`
	Notifications NotificationSettings `yaml:"notifications"`
	DropZones     []ZoneConfig         `yaml:"drop_zones"`
}

// ApplicationSettings holds global configuration for the pipeline.
type ApplicationSettings struct {
	LogLevel        string   `yaml:"log_level"`        // e.g., "debug", "info", "warn", "error"
	LogFormat       string   `yaml:"log_format"`       // e.g., "text", "json"
	WorkerCount     int      `yaml:"worker_count"`     // Number of concurrent workflow executors
	QueueCapacity   int      `yaml:"queue_capacity"`   // Max items the task queue will hold
	DefaultTimeout  Duration `yaml:"default_timeout"`  // Per-workflow timeout unless the zone overrides it
	SweepInterval   Duration `yaml:"sweep_interval"`   // How often the monitor checks for overrunning workflows
	DedupWindow     Duration `yaml:"dedup_window"`     // Coalescing window for identical consecutive events
	HistoryLimit    int      `yaml:"history_limit"`    // Bounded in-memory buffer of terminal workflows
	HistoryDBPath   string   `yaml:"history_db_path"`  // Optional SQLite journal of terminal workflows
	CaseInsensitive bool     `yaml:"case_insensitive"` // Case-insensitive file pattern matching
	HealthAddr      string   `yaml:"health_addr"`      // Listen address for the health/inspection server
	ShutdownGrace   Duration `yaml:"shutdown_grace"`   // How long in-flight workflows get to finish on stop
}

// NotificationLevel is the severity attached to a notification.
type NotificationLevel string

const (
	LevelInfo     NotificationLevel = "info"
	LevelWarning  NotificationLevel = "warning"
	LevelError    NotificationLevel = "error"
	LevelCritical NotificationLevel = "critical"
)

var levelOrder = map[NotificationLevel]int{
	LevelInfo:     0,
	LevelWarning:  1,
	LevelError:    2,
	LevelCritical: 3,
}

// AtLeast reports whether l is at or above the severity of min.
// Unknown levels rank below info so a typo never opens the floodgates.
func (l NotificationLevel) AtLeast(min NotificationLevel) bool {
	lo, ok := levelOrder[l]
	if !ok {
		lo = -1
	}
	mo, ok := levelOrder[min]
	if !ok {
		mo = 0
	}
	return lo >= mo
}

// NotificationSettings configures the webhook notification sink.
type NotificationSettings struct {
	WebhookURL  string            `yaml:"webhook_url"`  // Overridden by NOTIFICATION_WEBHOOK_URL
	Enabled     *bool             `yaml:"enabled"`      // Defaults to true when unset
	MinLevel    NotificationLevel `yaml:"min_level"`    // Overridden by NOTIFICATION_MIN_LEVEL
	Timeout     Duration          `yaml:"timeout"`      // Per-delivery HTTP timeout
	RetryPolicy *RetryPolicy      `yaml:"retry_policy"` // Optional best-effort delivery retry
}

// IsEnabled treats a nil Enabled pointer as true.
func (n NotificationSettings) IsEnabled() bool {
	return n.Enabled == nil || *n.Enabled
}

// RetryPolicy defines the parameters for retrying failed operations.
// Pointers are used to distinguish between a value being explicitly set
// (even to 0 or 0.0) and not being set at all, allowing for proper merging
// with default policies.
type RetryPolicy struct {
	MaxRetries    *int     `yaml:"max_retries"`    // Max number of retries
	Delay         *float64 `yaml:"delay"`          // Initial delay in seconds
	BackoffFactor *float64 `yaml:"backoff_factor"` // Multiplier for exponential backoff (e.g., 2.0)
}

// AgentType identifies which external agent processes a zone's files.
type AgentType string

const (
	AgentClaudeCode AgentType = "claude_code"
	AgentGeminiCLI  AgentType = "gemini_cli"
	AgentCodexCLI   AgentType = "codex_cli"
)

// ZoneConfig defines a single drop zone: the directories it watches, which
// events and file patterns qualify, and how matched files are processed.
type ZoneConfig struct {
	Name           string      `yaml:"name"`
	ZoneDirs       []string    `yaml:"zone_dirs"`       // Directories to watch; entries may contain * globs
	FilePatterns   []string    `yaml:"file_patterns"`   // File name globs (e.g., "*.txt")
	Events         []EventType `yaml:"events"`          // Event kinds that qualify; defaults to [created]
	Agent          AgentType   `yaml:"agent"`           // Defaults to claude_code
	Model          string      `yaml:"model"`           // Model passed to the agent CLI
	ReusablePrompt string      `yaml:"reusable_prompt"` // Prompt template file with [[FILE_PATH]] placeholder
	MCPServerFile  string      `yaml:"mcp_server_file"` // Optional MCP server config (JSON, schema validated)
	MaxConcurrent  int         `yaml:"max_concurrent"`  // Per-zone cap on RUNNING workflows; 0 means no cap
	Timeout        Duration    `yaml:"timeout"`         // Per-zone workflow timeout; 0 means application default
	ArchiveDir     string      `yaml:"archive_dir"`     // Optional destination for processed files
	CreateZoneDir  bool        `yaml:"create_zone_dir_if_not_exists"`
}

// HasEvent reports whether the zone reacts to the given event kind.
func (z ZoneConfig) HasEvent(kind EventType) bool {
	for _, e := range z.Events {
		if e == kind {
			return true
		}
	}
	return false
}

// Duration is a wrapper around time.Duration to allow parsing from YAML
// strings like "10s", "5m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	var err error
	d.Duration, err = time.ParseDuration(s)
	return err
}
