package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/agent"
	"github.com/rartzi/agentic-drop-zones/internal/config"
	"github.com/rartzi/agentic-drop-zones/internal/dedup"
	"github.com/rartzi/agentic-drop-zones/internal/history"
	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/internal/monitor"
	"github.com/rartzi/agentic-drop-zones/internal/notify"
	"github.com/rartzi/agentic-drop-zones/internal/queue"
	"github.com/rartzi/agentic-drop-zones/internal/router"
	"github.com/rartzi/agentic-drop-zones/internal/server"
	"github.com/rartzi/agentic-drop-zones/internal/watcher"
	"github.com/rartzi/agentic-drop-zones/internal/worker"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the configured drop zones in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runForeground(getConfigPath())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// runForeground wires the whole pipeline together and blocks until a
// shutdown signal arrives. Any error before services start is a
// configuration error and fatal.
func runForeground(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("error loading configuration from '%s': %w", configPath, err)
	}

	if err := logger.Init(cfg.Application, nil); err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}
	log := logger.L()
	log.Info("Agentic drop zone starting", "config", configPath, "zones", len(cfg.DropZones))

	if err := checkEnvironment(cfg); err != nil {
		return err
	}
	for _, zone := range cfg.DropZones {
		if zone.MCPServerFile != "" {
			if err := agent.ValidateMCPFile(zone.MCPServerFile); err != nil {
				return fmt.Errorf("zone '%s': %w", zone.Name, err)
			}
		}
	}

	// --- Service construction ---
	notifier := notify.New(cfg.Notifications)

	var archiver monitor.Archiver
	var store *history.Store
	if path := cfg.Application.HistoryDBPath; path != "" {
		store, err = history.Open(path)
		if err != nil {
			return fmt.Errorf("error opening workflow history journal: %w", err)
		}
		archiver = store
		log.Info("Workflow history journal enabled", "path", path)
	}

	mon := monitor.New(cfg.Application.HistoryLimit, cfg.Application.SweepInterval.Duration, notifier, archiver)
	taskQueue := queue.New(cfg.Application.QueueCapacity)
	watchSvc := watcher.NewService(cfg.DropZones)
	runner := agent.NewRunner(cfg.DropZones)
	pool := worker.NewPool(cfg.Application, cfg.DropZones, taskQueue, runner, mon)
	httpServer := server.New(cfg, mon, taskQueue)

	// --- Start services ---
	if err := watchSvc.Start(); err != nil {
		return fmt.Errorf("error starting watcher service: %w", err)
	}

	routerZones := make([]router.Zone, 0, len(cfg.DropZones))
	for _, zone := range cfg.DropZones {
		routerZones = append(routerZones, router.Zone{
			Config: zone,
			Dirs:   watchSvc.ZoneDirs(zone.Name),
		})
	}
	rtr := router.New(routerZones, cfg.Application.CaseInsensitive, mon, taskQueue)
	filter := dedup.NewFilter(cfg.Application.DedupWindow.Duration)

	// The normalize-and-route loop: single goroutine, non-blocking end to
	// end, so event detection is never limited by processing speed.
	var pipelineWG sync.WaitGroup
	pipelineWG.Add(1)
	go func() {
		defer pipelineWG.Done()
		for event := range watchSvc.Events() {
			if filter.Accept(event) {
				rtr.Route(event)
			}
		}
	}()

	mon.Start()
	pool.Start()
	httpServer.Start()
	log.Info("All services started")

	zoneNames := make([]string, 0, len(cfg.DropZones))
	for _, zone := range cfg.DropZones {
		zoneNames = append(zoneNames, zone.Name)
	}
	notifier.Notify(models.LevelInfo, "Agentic Drop Zone Started",
		fmt.Sprintf("Monitoring %d drop zones", len(cfg.DropZones)),
		map[string]any{"drop_zones": zoneNames})

	// --- Signal handling ---
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stopChan
	log.Info("Received shutdown signal", "signal", sig.String())

	// --- Graceful shutdown ---
	// Stop order: event source first, then the workers (with their grace
	// period), then everything downstream of them.
	if err := watchSvc.Stop(); err != nil {
		log.Error("Error stopping watcher service", "error", err)
	}
	pipelineWG.Wait()

	pool.Stop()
	taskQueue.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping health server", "error", err)
	}

	mon.Stop()
	notifier.Close()
	if store != nil {
		if err := store.Close(); err != nil {
			log.Error("Error closing workflow history journal", "error", err)
		}
	}

	log.Info("Agentic drop zone shut down gracefully")
	return nil
}

// checkEnvironment verifies the environment variables the configured agents
// need. Required variables are fatal; optional ones only log a warning.
func checkEnvironment(cfg *models.Config) error {
	needsClaude := false
	needsGemini := false
	for _, zone := range cfg.DropZones {
		switch zone.Agent {
		case models.AgentClaudeCode:
			needsClaude = true
		case models.AgentGeminiCLI:
			needsGemini = true
		}
	}

	if needsClaude {
		useBedrock := os.Getenv("CLAUDE_CODE_USE_BEDROCK") == "1"
		if useBedrock {
			if os.Getenv("AWS_REGION") == "" {
				return fmt.Errorf("AWS_REGION is required when CLAUDE_CODE_USE_BEDROCK=1")
			}
		} else if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for claude_code zones (or set CLAUDE_CODE_USE_BEDROCK=1)")
		}
		if os.Getenv("CLAUDE_CODE_PATH") == "" {
			logger.L().Warn("CLAUDE_CODE_PATH not set, falling back to 'claude' on PATH")
		}
	}
	if needsGemini && os.Getenv("GEMINI_CLI_PATH") == "" {
		logger.L().Warn("GEMINI_CLI_PATH not set, falling back to 'gemini' on PATH")
	}
	return nil
}
