package watcher

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
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

func TestResolveZoneDirs_PlainEntry(t *testing.T) {
	testInitLogger(t)
	dir := t.TempDir()

	dirs, err := ResolveZoneDirs(models.ZoneConfig{Name: "echo", ZoneDirs: []string{dir}})
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, dirs)
}

func TestResolveZoneDirs_MissingEntry(t *testing.T) {
	testInitLogger(t)
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := ResolveZoneDirs(models.ZoneConfig{Name: "echo", ZoneDirs: []string{missing}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestResolveZoneDirs_CreatesWhenOptedIn(t *testing.T) {
	testInitLogger(t)
	missing := filepath.Join(t.TempDir(), "auto", "nested")

	dirs, err := ResolveZoneDirs(models.ZoneConfig{Name: "echo", ZoneDirs: []string{missing}, CreateZoneDir: true})
	require.NoError(t, err)
	assert.Equal(t, []string{missing}, dirs)

	info, err := os.Stat(missing)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestResolveZoneDirs_FileEntryRejected(t *testing.T) {
	testInitLogger(t)
	file := filepath.Join(t.TempDir(), "not-a-dir.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := ResolveZoneDirs(models.ZoneConfig{Name: "echo", ZoneDirs: []string{file}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestResolveZoneDirs_GlobEntry(t *testing.T) {
	testInitLogger(t)
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "team_a"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "team_b"), 0o755))
	// Files matching the glob are not watchable and must be skipped.
	require.NoError(t, os.WriteFile(filepath.Join(root, "team_c"), []byte("x"), 0o644))

	dirs, err := ResolveZoneDirs(models.ZoneConfig{Name: "teams", ZoneDirs: []string{filepath.Join(root, "team_*")}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(root, "team_a"), filepath.Join(root, "team_b")}, dirs)
}

func TestResolveZoneDirs_GlobMatchingNothingIsNotFatal(t *testing.T) {
	testInitLogger(t)
	dirs, err := ResolveZoneDirs(models.ZoneConfig{Name: "teams", ZoneDirs: []string{filepath.Join(t.TempDir(), "nope_*")}})
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestMapOp(t *testing.T) {
	testInitLogger(t)

	cases := []struct {
		op   fsnotify.Op
		want models.EventType
		ok   bool
	}{
		{fsnotify.Create, models.EventCreated, true},
		{fsnotify.Write, models.EventModified, true},
		{fsnotify.Remove, models.EventDeleted, true},
		{fsnotify.Rename, models.EventMoved, true},
		{fsnotify.Chmod, "", false},
		// Combined flags resolve in priority order.
		{fsnotify.Create | fsnotify.Chmod, models.EventCreated, true},
	}
	for _, tc := range cases {
		got, ok := mapOp(tc.op)
		assert.Equal(t, tc.ok, ok, "op %v", tc.op)
		assert.Equal(t, tc.want, got, "op %v", tc.op)
	}
}

func TestService_EmitsEventsForWatchedDir(t *testing.T) {
	testInitLogger(t)
	dir := t.TempDir()

	svc := NewService([]models.ZoneConfig{{
		Name:     "echo",
		ZoneDirs: []string{dir},
	}})
	require.NoError(t, svc.Start())
	defer svc.Stop()

	assert.Equal(t, []string{dir}, svc.ZoneDirs("echo"))

	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	select {
	case ev := <-svc.Events():
		assert.Equal(t, path, ev.Path)
		assert.Equal(t, models.EventCreated, ev.Kind)
		assert.False(t, ev.ObservedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no event received for created file")
	}
}

func TestService_IgnoresDirectoryCreation(t *testing.T) {
	testInitLogger(t)
	dir := t.TempDir()

	svc := NewService([]models.ZoneConfig{{Name: "echo", ZoneDirs: []string{dir}}})
	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
	filePath := filepath.Join(dir, "after.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("x"), 0o644))

	// The directory creation is swallowed; the next event is the file.
	select {
	case ev := <-svc.Events():
		assert.Equal(t, filePath, ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestService_StartFailsWithNothingToWatch(t *testing.T) {
	testInitLogger(t)
	svc := NewService([]models.ZoneConfig{{
		Name:     "empty",
		ZoneDirs: []string{filepath.Join(t.TempDir(), "nope_*")},
	}})
	err := svc.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no directories to watch")
}

func TestService_StopClosesEventChannel(t *testing.T) {
	testInitLogger(t)
	svc := NewService([]models.ZoneConfig{{Name: "echo", ZoneDirs: []string{t.TempDir()}}})
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Stop())

	select {
	case _, ok := <-svc.Events():
		assert.False(t, ok, "event channel must be closed after Stop")
	case <-time.After(time.Second):
		t.Fatal("event channel not closed after Stop")
	}

	// Stop is idempotent.
	require.NoError(t, svc.Stop())
}
