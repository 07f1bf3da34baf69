package agent

import (
	"context"
	"os"
	"os/exec"
)

// ClaudeAgent runs prompts through the Claude Code CLI in non-interactive
// mode with permission prompts bypassed.
type ClaudeAgent struct {
	Model         string
	MCPServerFile string
}

func (a *ClaudeAgent) Name() string { return "claude_code" }

// Invoke executes the Claude Code CLI for the rendered prompt. The binary
// is resolved from CLAUDE_CODE_PATH, falling back to "claude" on PATH.
func (a *ClaudeAgent) Invoke(ctx context.Context, prompt string, stream StreamFunc) error {
	bin := os.Getenv("CLAUDE_CODE_PATH")
	if bin == "" {
		bin = "claude"
	}

	args := []string{"-p", prompt, "--permission-mode", "bypassPermissions"}
	if a.Model != "" {
		args = append(args, "--model", a.Model)
	}
	if a.MCPServerFile != "" {
		args = append(args, "--mcp-config", a.MCPServerFile)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = os.Environ()
	return runCLI(ctx, a.Name(), cmd, stream)
}
