package agent

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testInitLogger initializes the logger for test execution, discarding output.
func testInitLogger(t *testing.T) {
	t.Helper()
	settings := models.ApplicationSettings{LogLevel: "error", LogFormat: "text"}
	err := logger.Init(settings, io.Discard)
	require.NoError(t, err, "Failed to initialize logger for test")
}

func TestForZone(t *testing.T) {
	testInitLogger(t)

	ag, err := ForZone(models.ZoneConfig{Agent: models.AgentClaudeCode, Model: "opus", MCPServerFile: "mcp.json"})
	require.NoError(t, err)
	claude, ok := ag.(*ClaudeAgent)
	require.True(t, ok)
	assert.Equal(t, "claude_code", claude.Name())
	assert.Equal(t, "opus", claude.Model)
	assert.Equal(t, "mcp.json", claude.MCPServerFile)

	ag, err = ForZone(models.ZoneConfig{Agent: models.AgentGeminiCLI})
	require.NoError(t, err)
	assert.Equal(t, "gemini_cli", ag.Name())

	ag, err = ForZone(models.ZoneConfig{Agent: models.AgentCodexCLI})
	require.NoError(t, err)
	assert.Equal(t, "codex_cli", ag.Name())

	_, err = ForZone(models.ZoneConfig{Agent: "mystery_cli"})
	assert.Error(t, err)
}

func TestCodexAgent_NotImplemented(t *testing.T) {
	testInitLogger(t)
	ag := &CodexAgent{}
	err := ag.Invoke(context.Background(), "do something", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestBuildPrompt(t *testing.T) {
	testInitLogger(t)
	dir := t.TempDir()
	promptPath := filepath.Join(dir, "echo.md")
	template := "Read the file at [[FILE_PATH]] and summarize it.\nThe file is [[FILE_PATH]]."
	require.NoError(t, os.WriteFile(promptPath, []byte(template), 0o644))

	prompt, err := BuildPrompt(promptPath, "/drops/echo_zone/note.txt")
	require.NoError(t, err)
	assert.Equal(t, "Read the file at /drops/echo_zone/note.txt and summarize it.\nThe file is /drops/echo_zone/note.txt.", prompt)
}

func TestBuildPrompt_Errors(t *testing.T) {
	testInitLogger(t)
	dir := t.TempDir()

	_, err := BuildPrompt(filepath.Join(dir, "missing.md"), "/drops/a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = BuildPrompt(dir, "/drops/a.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a file")
}

func TestClaudeAgent_InvokeStreamsOutput(t *testing.T) {
	testInitLogger(t)
	// /bin/echo stands in for the CLI: it prints its arguments and exits 0,
	// which exercises the spawn, stream, and wait path end to end.
	t.Setenv("CLAUDE_CODE_PATH", "/bin/echo")

	ag := &ClaudeAgent{Model: "opus"}
	var mu sync.Mutex
	var lines []string
	err := ag.Invoke(context.Background(), "summarize the file", func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "summarize the file")
	assert.Contains(t, lines[0], "--model opus")
}

func TestClaudeAgent_InvokeFailsOnMissingBinary(t *testing.T) {
	testInitLogger(t)
	t.Setenv("CLAUDE_CODE_PATH", filepath.Join(t.TempDir(), "no-such-binary"))

	ag := &ClaudeAgent{}
	err := ag.Invoke(context.Background(), "prompt", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start")
}

func TestRunner_ProcessUnknownZone(t *testing.T) {
	testInitLogger(t)
	r := NewRunner(nil)
	err := r.Process(context.Background(), models.WorkItem{WorkflowID: "wf-1", Zone: "ghost", Path: "/drops/a.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zone 'ghost' not found")
}

func TestRunner_ProcessInvokesAgentAndArchives(t *testing.T) {
	testInitLogger(t)
	t.Setenv("CLAUDE_CODE_PATH", "/bin/echo")

	dir := t.TempDir()
	promptPath := filepath.Join(dir, "echo.md")
	require.NoError(t, os.WriteFile(promptPath, []byte("Process [[FILE_PATH]]"), 0o644))

	dropped := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(dropped, []byte("hello"), 0o644))
	archiveDir := filepath.Join(dir, "processed")

	zone := models.ZoneConfig{
		Name:           "echo",
		Agent:          models.AgentClaudeCode,
		ReusablePrompt: promptPath,
		ArchiveDir:     archiveDir,
	}
	r := NewRunner([]models.ZoneConfig{zone})

	item := models.WorkItem{WorkflowID: "wf-1", Zone: "echo", Path: dropped, Kind: models.EventCreated, EnqueuedAt: time.Now()}
	require.NoError(t, r.Process(context.Background(), item))

	// Processed file moved into the archive directory.
	_, err := os.Stat(filepath.Join(archiveDir, "note.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(dropped)
	assert.True(t, os.IsNotExist(err))
}

func TestRunner_ProcessFailsOnMissingPrompt(t *testing.T) {
	testInitLogger(t)
	zone := models.ZoneConfig{
		Name:           "echo",
		Agent:          models.AgentClaudeCode,
		ReusablePrompt: filepath.Join(t.TempDir(), "missing.md"),
	}
	r := NewRunner([]models.ZoneConfig{zone})

	err := r.Process(context.Background(), models.WorkItem{WorkflowID: "wf-1", Zone: "echo", Path: "/drops/a.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt file not found")
}
