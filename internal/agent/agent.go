// Package agent holds the external collaborators that process dropped
// files: the Claude Code CLI, the Gemini CLI, and the (not yet implemented)
// Codex CLI. Agents stream their output line by line for display and
// logging only; success or failure is carried solely by the returned error.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/rartzi/agentic-drop-zones/pkg/models"
)

// ErrNotImplemented is returned by agents that are declared but not wired
// up yet. It fails the workflow fast instead of silently doing nothing.
var ErrNotImplemented = errors.New("agent not implemented")

// StreamFunc receives one line of agent output at a time.
type StreamFunc func(line string)

// Agent invokes an external processor for a rendered prompt. Invoke must
// honor context cancellation: when the worker abandons a timed-out call the
// underlying process is killed.
type Agent interface {
	Name() string
	Invoke(ctx context.Context, prompt string, stream StreamFunc) error
}

// ForZone returns the agent configured for a zone.
func ForZone(zone models.ZoneConfig) (Agent, error) {
	switch zone.Agent {
	case models.AgentClaudeCode:
		return &ClaudeAgent{Model: zone.Model, MCPServerFile: zone.MCPServerFile}, nil
	case models.AgentGeminiCLI:
		return &GeminiAgent{Model: zone.Model}, nil
	case models.AgentCodexCLI:
		return &CodexAgent{}, nil
	default:
		return nil, fmt.Errorf("unknown agent type: %s", zone.Agent)
	}
}

// runCLI starts the command, streams stdout and stderr line by line to
// stream, and waits for it to finish. Context cancellation kills the
// process through exec.CommandContext.
func runCLI(ctx context.Context, name string, cmd *exec.Cmd, stream StreamFunc) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: failed to open stdout pipe: %w", name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%s: failed to open stderr pipe: %w", name, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: failed to start: %w", name, err)
	}

	var wg sync.WaitGroup
	readLines := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" && stream != nil {
				stream(line)
			}
		}
	}
	wg.Add(2)
	go readLines(stdout)
	go readLines(stderr)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: cancelled: %w", name, ctx.Err())
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
