package queue

import (
	"context"
	"io"
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

func item(id, zone string) models.WorkItem {
	return models.WorkItem{WorkflowID: id, Zone: zone, Path: zone + "/file.txt", Kind: models.EventCreated, EnqueuedAt: time.Now()}
}

func TestNew(t *testing.T) {
	testInitLogger(t)

	q := New(5)
	require.NotNil(t, q)
	assert.Equal(t, 5, q.Capacity())
	assert.Equal(t, 0, q.Depth())

	// Non-positive capacities fall back to the default.
	qDefault := New(0)
	assert.Equal(t, defaultCapacity, qDefault.Capacity())
	qNeg := New(-3)
	assert.Equal(t, defaultCapacity, qNeg.Capacity())
}

func TestTaskQueue_FIFOOrder(t *testing.T) {
	testInitLogger(t)
	q := New(10)

	require.NoError(t, q.TryEnqueue(item("wf-1", "alpha")))
	require.NoError(t, q.TryEnqueue(item("wf-2", "beta")))
	require.NoError(t, q.TryEnqueue(item("wf-3", "alpha")))

	ctx := context.Background()
	for _, want := range []string{"wf-1", "wf-2", "wf-3"} {
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got.WorkflowID)
	}
}

func TestTaskQueue_RejectsBeyondCapacity(t *testing.T) {
	testInitLogger(t)
	q := New(2)

	require.NoError(t, q.TryEnqueue(item("wf-1", "alpha")))
	require.NoError(t, q.TryEnqueue(item("wf-2", "alpha")))

	// The third enqueue must fail immediately, not block.
	err := q.TryEnqueue(item("wf-3", "alpha"))
	require.ErrorIs(t, err, ErrFull)
	assert.Equal(t, 2, q.Depth())

	// Draining one item frees a slot.
	_, err = q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.NoError(t, q.TryEnqueue(item("wf-4", "alpha")))
}

func TestTaskQueue_HighWater(t *testing.T) {
	testInitLogger(t)
	q := New(10)

	require.NoError(t, q.TryEnqueue(item("wf-1", "alpha")))
	require.NoError(t, q.TryEnqueue(item("wf-2", "alpha")))
	assert.Equal(t, 2, q.HighWater())

	_, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, q.Depth())
	// High-water mark is sticky.
	assert.Equal(t, 2, q.HighWater())
}

func TestTaskQueue_DequeueBlocksUntilItem(t *testing.T) {
	testInitLogger(t)
	q := New(10)

	got := make(chan models.WorkItem, 1)
	go func() {
		wi, err := q.Dequeue(context.Background())
		if err == nil {
			got <- wi
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.TryEnqueue(item("wf-1", "alpha")))

	select {
	case wi := <-got:
		assert.Equal(t, "wf-1", wi.WorkflowID)
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after enqueue")
	}
}

func TestTaskQueue_DequeueHonorsContext(t *testing.T) {
	testInitLogger(t)
	q := New(10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTaskQueue_StopRejectsEnqueueAndDrains(t *testing.T) {
	testInitLogger(t)
	q := New(10)

	require.NoError(t, q.TryEnqueue(item("wf-1", "alpha")))
	q.Stop()

	// Enqueue after stop is rejected.
	assert.ErrorIs(t, q.TryEnqueue(item("wf-2", "alpha")), ErrStopped)

	// Items queued before the stop can still be drained.
	wi, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wf-1", wi.WorkflowID)

	_, err = q.Dequeue(context.Background())
	assert.ErrorIs(t, err, ErrStopped)

	// Stop is idempotent.
	q.Stop()
}
