package router

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rartzi/agentic-drop-zones/internal/logger"
	"github.com/rartzi/agentic-drop-zones/internal/queue"
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

// --- Mocks ---

type createdWorkflow struct {
	id       string
	zone     string
	filePath string
}

type failedWorkflow struct {
	id     string
	errMsg string
}

type mockTracker struct {
	mu      sync.Mutex
	nextID  int
	created []createdWorkflow
	failed  []failedWorkflow
}

func (m *mockTracker) Create(zone, filePath string, agent models.AgentType, timeout time.Duration) models.Workflow {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := "wf-" + string(rune('0'+m.nextID))
	m.created = append(m.created, createdWorkflow{id: id, zone: zone, filePath: filePath})
	return models.Workflow{ID: id, Zone: zone, FilePath: filePath, Agent: string(agent), State: models.StatePending, Timeout: timeout}
}

func (m *mockTracker) Transition(id string, state models.WorkflowState, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == models.StateFailed {
		m.failed = append(m.failed, failedWorkflow{id: id, errMsg: errMsg})
	}
	return nil
}

type mockEnqueuer struct {
	err   error
	items []models.WorkItem
}

func (m *mockEnqueuer) TryEnqueue(item models.WorkItem) error {
	if m.err != nil {
		return m.err
	}
	m.items = append(m.items, item)
	return nil
}

func echoZone() Zone {
	return Zone{
		Config: models.ZoneConfig{
			Name:         "echo",
			FilePatterns: []string{"*.txt", "*.md"},
			Events:       []models.EventType{models.EventCreated},
			Agent:        models.AgentClaudeCode,
		},
		Dirs: []string{"/drops/echo_zone"},
	}
}

func event(path string, kind models.EventType) models.FileEvent {
	return models.FileEvent{Path: path, Kind: kind, ObservedAt: time.Now()}
}

// --- Tests ---

func TestRouter_MatchCreatesAndEnqueues(t *testing.T) {
	testInitLogger(t)
	tracker := &mockTracker{}
	q := &mockEnqueuer{}
	r := New([]Zone{echoZone()}, false, tracker, q)

	ok := r.Route(event("/drops/echo_zone/note.txt", models.EventCreated))
	require.True(t, ok)

	require.Len(t, tracker.created, 1)
	assert.Equal(t, "echo", tracker.created[0].zone)
	assert.Equal(t, "/drops/echo_zone/note.txt", tracker.created[0].filePath)

	require.Len(t, q.items, 1)
	assert.Equal(t, tracker.created[0].id, q.items[0].WorkflowID)
	assert.Equal(t, models.EventCreated, q.items[0].Kind)
}

func TestRouter_NoMatchLeavesNoTrace(t *testing.T) {
	testInitLogger(t)

	cases := []struct {
		name  string
		event models.FileEvent
	}{
		{"wrong directory", event("/drops/other_zone/note.txt", models.EventCreated)},
		{"wrong pattern", event("/drops/echo_zone/image.png", models.EventCreated)},
		{"wrong event kind", event("/drops/echo_zone/note.txt", models.EventDeleted)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := &mockTracker{}
			q := &mockEnqueuer{}
			r := New([]Zone{echoZone()}, false, tracker, q)

			assert.False(t, r.Route(tc.event))
			// A discarded event must not create workflow state.
			assert.Empty(t, tracker.created)
			assert.Empty(t, q.items)
		})
	}
}

func TestRouter_FirstMatchWins(t *testing.T) {
	testInitLogger(t)
	first := echoZone()
	second := echoZone()
	second.Config.Name = "echo_shadow"

	tracker := &mockTracker{}
	q := &mockEnqueuer{}
	r := New([]Zone{first, second}, false, tracker, q)

	require.True(t, r.Route(event("/drops/echo_zone/note.txt", models.EventCreated)))

	// Exactly one workflow, owned by the zone declared first.
	require.Len(t, tracker.created, 1)
	assert.Equal(t, "echo", tracker.created[0].zone)
	require.Len(t, q.items, 1)
}

func TestRouter_QueueOverflowFailsWorkflow(t *testing.T) {
	testInitLogger(t)
	tracker := &mockTracker{}
	q := &mockEnqueuer{err: queue.ErrFull}
	r := New([]Zone{echoZone()}, false, tracker, q)

	ok := r.Route(event("/drops/echo_zone/note.txt", models.EventCreated))
	assert.False(t, ok)

	require.Len(t, tracker.created, 1)
	require.Len(t, tracker.failed, 1)
	assert.Equal(t, tracker.created[0].id, tracker.failed[0].id)
	assert.Equal(t, models.ReasonQueueOverflow, tracker.failed[0].errMsg)
}

func TestRouter_SubdirectoriesOfZoneDirMatch(t *testing.T) {
	testInitLogger(t)
	tracker := &mockTracker{}
	q := &mockEnqueuer{}
	r := New([]Zone{echoZone()}, false, tracker, q)

	assert.True(t, r.Route(event("/drops/echo_zone/nested/deep/note.txt", models.EventCreated)))

	// Sibling directories sharing a name prefix must not match.
	assert.False(t, r.Route(event("/drops/echo_zone_backup/note.txt", models.EventCreated)))
}

func TestRouter_CaseInsensitivePatterns(t *testing.T) {
	testInitLogger(t)
	zone := echoZone()

	sensitive := New([]Zone{zone}, false, &mockTracker{}, &mockEnqueuer{})
	assert.False(t, sensitive.Route(event("/drops/echo_zone/NOTE.TXT", models.EventCreated)))

	insensitive := New([]Zone{zone}, true, &mockTracker{}, &mockEnqueuer{})
	assert.True(t, insensitive.Route(event("/drops/echo_zone/NOTE.TXT", models.EventCreated)))
}

func TestRouter_MovedEventRoutesDestinationPath(t *testing.T) {
	testInitLogger(t)
	zone := echoZone()
	zone.Config.Events = []models.EventType{models.EventMoved}

	tracker := &mockTracker{}
	q := &mockEnqueuer{}
	r := New([]Zone{zone}, false, tracker, q)

	ev := models.FileEvent{
		Path:       "/tmp/staging/note.txt",
		DestPath:   "/drops/echo_zone/note.txt",
		Kind:       models.EventMoved,
		ObservedAt: time.Now(),
	}
	require.True(t, r.Route(ev))
	assert.Equal(t, "/drops/echo_zone/note.txt", tracker.created[0].filePath)
}
