package store

import (
	"time"

	"github.com/slidesmith/slidesmith-go/internal/domain/model"
)

// reduce applies one stream event to a task aggregate and reports whether
// anything changed. It runs under the store lock; events for the same task
// are applied strictly in arrival order, and no event kind ever deletes a
// task or sample.
func reduce(task *model.Task, ev model.StreamEvent, now time.Time) bool {
	var changed bool

	switch ev.Type {
	case model.EventStatus:
		changed = reduceStatus(task, ev)
	case model.EventChunk:
		changed = reduceChunk(task, ev, now)
	case model.EventProgress:
		changed = reduceProgress(task, ev)
	case model.EventComplete:
		changed = reduceComplete(task, ev)
	case model.EventError:
		changed = reduceError(task, ev)
	}

	if changed {
		task.UpdatedAt = model.Timestamp{Time: now}
	}
	return changed
}

func reduceStatus(task *model.Task, ev model.StreamEvent) bool {
	if !ev.Status.Valid() || task.Status == ev.Status {
		return false
	}
	task.Status = ev.Status
	// An explicit transition into a non-terminal state starts a new run, so
	// progress restarts from zero. Without this reset a later, lower
	// progress value would be indistinguishable from reordered delivery.
	if ev.Status == model.TaskStatusIdle || ev.Status == model.TaskStatusRunning {
		task.Progress = 0
	}
	return true
}

func reduceChunk(task *model.Task, ev model.StreamEvent, now time.Time) bool {
	if ev.Content == "" {
		return false
	}

	sample := resolveChunkTarget(task, ev.SampleID, now)
	if sample.Content == "" {
		sample.Content = ev.Content
	} else {
		sample.Content += model.ChunkSeparator + ev.Content
	}
	return true
}

// resolveChunkTarget picks the sample a chunk appends to: the addressed
// sample if present, otherwise the first sample, otherwise a synthesized
// placeholder. Synthesis covers the race between the create response and
// the first stream event, when the sample list is not yet populated.
func resolveChunkTarget(task *model.Task, sampleID string, now time.Time) *model.Sample {
	if sampleID != "" {
		if sample := task.Sample(sampleID); sample != nil {
			return sample
		}
	}
	if len(task.Samples) > 0 && sampleID == "" {
		return &task.Samples[0]
	}

	id := sampleID
	if id == "" {
		id = model.PlaceholderSampleID(task.ID, 0)
	}
	task.Samples = append(task.Samples, model.Sample{
		ID:        id,
		Status:    model.TaskStatusRunning,
		CreatedAt: model.Timestamp{Time: now},
	})
	return &task.Samples[len(task.Samples)-1]
}

func reduceProgress(task *model.Task, ev model.StreamEvent) bool {
	if ev.Progress == nil {
		return false
	}
	value := clampProgress(*ev.Progress)

	if ev.SampleID != "" {
		sample := task.Sample(ev.SampleID)
		if sample == nil {
			return false
		}
		if value < sample.Progress {
			// Progress is monotone within a run; a lower value without a
			// status transition is stale and ignored.
			return false
		}
		changed := sample.Progress != value || sample.Status != model.TaskStatusRunning
		sample.Progress = value
		sample.Status = model.TaskStatusRunning
		return changed
	}

	if value < task.Progress || value == task.Progress {
		return false
	}
	task.Progress = value
	return true
}

func reduceComplete(task *model.Task, ev model.StreamEvent) bool {
	task.Status = model.TaskStatusCompleted
	task.Progress = 100
	if ev.Artifact != nil {
		task.Artifact = ev.Artifact
	}

	if ev.SampleID != "" {
		if sample := task.Sample(ev.SampleID); sample != nil {
			sample.Status = model.TaskStatusCompleted
			sample.Progress = 100
			if ev.Artifact != nil {
				sample.Artifact = ev.Artifact
			}
		}
	}
	return true
}

func reduceError(task *model.Task, ev model.StreamEvent) bool {
	task.Status = model.TaskStatusFailed
	task.Error = ev.Error
	if task.Error == "" {
		task.Error = "unknown error"
	}

	if ev.SampleID != "" {
		if sample := task.Sample(ev.SampleID); sample != nil {
			sample.Status = model.TaskStatusFailed
		}
	}
	return true
}

func clampProgress(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
