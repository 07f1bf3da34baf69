package agent

import (
	"context"
	"os"
	"os/exec"
)

const defaultGeminiModel = "gemini-2.5-pro"

// GeminiAgent runs prompts through the Gemini CLI with tool calls
// auto-approved and sandboxing enabled.
type GeminiAgent struct {
	Model string
}

func (a *GeminiAgent) Name() string { return "gemini_cli" }

// Invoke executes the Gemini CLI for the rendered prompt. The binary is
// resolved from GEMINI_CLI_PATH, falling back to "gemini" on PATH.
func (a *GeminiAgent) Invoke(ctx context.Context, prompt string, stream StreamFunc) error {
	bin := os.Getenv("GEMINI_CLI_PATH")
	if bin == "" {
		bin = "gemini"
	}

	model := a.Model
	if model == "" {
		model = defaultGeminiModel
	}

	cmd := exec.CommandContext(ctx, bin, "--yolo", "--sandbox", "-m", model, "-p", prompt)
	cmd.Env = os.Environ()
	return runCLI(ctx, a.Name(), cmd, stream)
}
