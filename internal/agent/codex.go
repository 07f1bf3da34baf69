package agent

import (
	"context"
	"fmt"
)

// CodexAgent is declared in the configuration surface but has no CLI
// integration yet.
type CodexAgent struct{}

func (a *CodexAgent) Name() string { return "codex_cli" }

// Invoke always fails with ErrNotImplemented so a misconfigured zone
// surfaces immediately instead of silently dropping work.
func (a *CodexAgent) Invoke(ctx context.Context, prompt string, stream StreamFunc) error {
	return fmt.Errorf("codex_cli: %w", ErrNotImplemented)
}
