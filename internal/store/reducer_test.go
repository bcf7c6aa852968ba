package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidesmith/slidesmith-go/internal/domain/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(Options{
		Now: func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func seedTask(t *testing.T, s *Store, id string, samples ...string) {
	t.Helper()
	task := &model.Task{
		ID:     id,
		Prompt: "quarterly review deck",
		Status: model.TaskStatusRunning,
	}
	for _, sampleID := range samples {
		task.Samples = append(task.Samples, model.Sample{
			ID:     sampleID,
			Status: model.TaskStatusIdle,
		})
	}
	require.NoError(t, s.Upsert(task))
}

func intPtr(v int) *int { return &v }

func TestChunkAppendsInArrivalOrder(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0")

	s.Apply(model.StreamEvent{Type: model.EventChunk, TaskID: "j1", Content: "Hello"})
	s.Apply(model.StreamEvent{Type: model.EventChunk, TaskID: "j1", Content: " World"})

	task, err := s.Get("j1")
	require.NoError(t, err)
	require.Len(t, task.Samples, 1)
	assert.Equal(t, "Hello"+model.ChunkSeparator+" World", task.Samples[0].Content)
}

func TestChunkTargetsAddressedSample(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0", "j1-sample-1")

	s.Apply(model.StreamEvent{
		Type: model.EventChunk, TaskID: "j1", SampleID: "j1-sample-1", Content: "second",
	})

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Empty(t, task.Samples[0].Content)
	assert.Equal(t, "second", task.Samples[1].Content)
}

func TestChunkSynthesizesSampleWhenNoneExist(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j2")

	s.Apply(model.StreamEvent{Type: model.EventChunk, TaskID: "j2", Content: "x"})

	task, err := s.Get("j2")
	require.NoError(t, err)
	require.Len(t, task.Samples, 1)
	assert.Equal(t, "j2-sample-0", task.Samples[0].ID)
	assert.Equal(t, "x", task.Samples[0].Content)
	assert.Equal(t, model.TaskStatusRunning, task.Samples[0].Status)
}

func TestDuplicateChunksDoubleAppend(t *testing.T) {
	// No idempotence under re-delivery: duplicates append twice.
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0")

	ev := model.StreamEvent{Type: model.EventChunk, TaskID: "j1", Content: "dup"}
	s.Apply(ev)
	s.Apply(ev)

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, "dup"+model.ChunkSeparator+"dup", task.Samples[0].Content)
}

func TestProgressIsMonotonePerRun(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0")

	s.Apply(model.StreamEvent{Type: model.EventProgress, TaskID: "j1", Progress: intPtr(40)})
	s.Apply(model.StreamEvent{Type: model.EventProgress, TaskID: "j1", Progress: intPtr(25)})

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, 40, task.Progress, "stale lower progress must be ignored")

	// An explicit status transition starts a new run and resets progress.
	s.Apply(model.StreamEvent{Type: model.EventStatus, TaskID: "j1", Status: model.TaskStatusIdle})
	s.Apply(model.StreamEvent{Type: model.EventStatus, TaskID: "j1", Status: model.TaskStatusRunning})
	s.Apply(model.StreamEvent{Type: model.EventProgress, TaskID: "j1", Progress: intPtr(10)})

	task, err = s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, 10, task.Progress)
}

func TestSampleProgressMarksSampleRunning(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0")

	s.Apply(model.StreamEvent{
		Type: model.EventProgress, TaskID: "j1", SampleID: "j1-sample-0", Progress: intPtr(55),
	})

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, 55, task.Samples[0].Progress)
	assert.Equal(t, model.TaskStatusRunning, task.Samples[0].Status)
	assert.Zero(t, task.Progress, "sample progress must not touch task progress")
}

func TestProgressClampedToRange(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0")

	s.Apply(model.StreamEvent{Type: model.EventProgress, TaskID: "j1", Progress: intPtr(140)})

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, 100, task.Progress)
}

func TestCompleteAlwaysYieldsHundredPercent(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0")

	s.Apply(model.StreamEvent{Type: model.EventProgress, TaskID: "j1", Progress: intPtr(30)})
	s.Apply(model.StreamEvent{
		Type:   model.EventComplete,
		TaskID: "j1",
		Artifact: &model.Artifact{
			Type:    model.ArtifactTypePPT,
			Content: "deck ready",
		},
	})

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
	require.NotNil(t, task.Artifact)
	assert.Equal(t, model.ArtifactTypePPT, task.Artifact.Type)
}

func TestCompleteWithSampleCompletesSample(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0", "j1-sample-1")

	artifact := &model.Artifact{Type: model.ArtifactTypeHTML, Content: "<html></html>"}
	s.Apply(model.StreamEvent{
		Type: model.EventComplete, TaskID: "j1", SampleID: "j1-sample-1", Artifact: artifact,
	})

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, task.Samples[1].Status)
	assert.Equal(t, 100, task.Samples[1].Progress)
	require.NotNil(t, task.Samples[1].Artifact)
	assert.Equal(t, model.TaskStatusIdle, task.Samples[0].Status)
}

func TestErrorEventMarksFailedAndKeepsProgress(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j3", "j3-sample-0")
	s.Apply(model.StreamEvent{Type: model.EventProgress, TaskID: "j3", Progress: intPtr(70)})

	s.Apply(model.StreamEvent{Type: model.EventError, TaskID: "j3", Error: "timeout"})

	task, err := s.Get("j3")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, task.Status)
	assert.Equal(t, "timeout", task.Error)
	assert.Equal(t, 70, task.Progress, "failure must not rewrite progress")
}

func TestErrorEventDefaultsMessage(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j3")

	s.Apply(model.StreamEvent{Type: model.EventError, TaskID: "j3"})

	task, err := s.Get("j3")
	require.NoError(t, err)
	assert.Equal(t, "unknown error", task.Error)
}

func TestErrorWithSampleFailsSample(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j3", "j3-sample-0")

	s.Apply(model.StreamEvent{
		Type: model.EventError, TaskID: "j3", SampleID: "j3-sample-0", Error: "oom",
	})

	task, err := s.Get("j3")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, task.Samples[0].Status)
}

func TestStatusEventSetsStatus(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1")

	s.Apply(model.StreamEvent{Type: model.EventStatus, TaskID: "j1", Status: model.TaskStatusCollecting})

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCollecting, task.Status)
}

func TestEventForUnknownTaskIsDropped(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1")

	s.Apply(model.StreamEvent{Type: model.EventChunk, TaskID: "ghost", Content: "x"})

	assert.Equal(t, 1, s.Len(), "events must never create tasks")
	assert.Equal(t, int64(1), s.DroppedEvents())
}

func TestNoEventDeletesAnything(t *testing.T) {
	s := newTestStore(t)
	seedTask(t, s, "j1", "j1-sample-0")

	for _, ev := range []model.StreamEvent{
		{Type: model.EventStatus, TaskID: "j1", Status: model.TaskStatusFailed},
		{Type: model.EventError, TaskID: "j1", Error: "boom"},
		{Type: model.EventComplete, TaskID: "j1"},
	} {
		s.Apply(ev)
	}

	task, err := s.Get("j1")
	require.NoError(t, err)
	assert.Len(t, task.Samples, 1)
	assert.Equal(t, 1, s.Len())
}
