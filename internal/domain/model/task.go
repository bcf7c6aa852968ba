// Package model defines the core data types shared across the slidesmith
// task synchronization engine and its lifecycle API client.
package model

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the current status of a task or sample.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type TaskStatus string

const (
	// TaskStatusIdle indicates a task is created but not yet generating.
	TaskStatusIdle TaskStatus = "idle"
	// TaskStatusRunning indicates generation is in progress.
	TaskStatusRunning TaskStatus = "running"
	// TaskStatusCollecting indicates samples are being aggregated after
	// generation. The server vocabulary includes this state but only an
	// explicit status event moves a task into it.
	TaskStatusCollecting TaskStatus = "collecting"
	// TaskStatusCompleted indicates a task has finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates a task has failed.
	TaskStatusFailed TaskStatus = "failed"
)

// Valid returns true if the TaskStatus is valid.
func (s TaskStatus) Valid() bool {
	return s == TaskStatusIdle || s == TaskStatusRunning || s == TaskStatusCollecting ||
		s == TaskStatusCompleted || s == TaskStatusFailed
}

// Terminal returns true if the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler for TaskStatus.
func (s *TaskStatus) UnmarshalText(text []byte) error {
	v := TaskStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid TaskStatus: %q", v)
	}
	*s = v
	return nil
}

// ArtifactType represents the kind of final output a task or sample produced.
type ArtifactType string

const (
	// ArtifactTypeHTML is a markup document artifact.
	ArtifactTypeHTML ArtifactType = "html"
	// ArtifactTypeCode is a source code artifact.
	ArtifactTypeCode ArtifactType = "code"
	// ArtifactTypeMarkdown is a formatted text artifact.
	ArtifactTypeMarkdown ArtifactType = "markdown"
	// ArtifactTypePPT is a slide deck artifact.
	ArtifactTypePPT ArtifactType = "ppt"
)

// Valid returns true if the ArtifactType is valid.
func (t ArtifactType) Valid() bool {
	return t == ArtifactTypeHTML || t == ArtifactTypeCode || t == ArtifactTypeMarkdown ||
		t == ArtifactTypePPT
}

// Artifact is the final structured output of a completed task or sample.
type Artifact struct {
	Type ArtifactType `json:"type"`
	// Content is the artifact text or an opaque reference to it.
	Content string `json:"content"`
	// Language is an optional hint for code artifacts.
	Language string `json:"language,omitempty"`
}

// Sample is one parallel generation attempt within a task.
type Sample struct {
	ID string `json:"id"`
	// Content is an append-only text buffer. Chunks are joined with
	// ChunkSeparator; it is replaced wholesale only by a snapshot refresh.
	Content   string     `json:"content"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
	CreatedAt Timestamp  `json:"created_at"`
	FilePath  string     `json:"file_path,omitempty"`
	Artifact  *Artifact  `json:"artifact,omitempty"`
}

// Task is a top-level generation request, possibly containing multiple
// parallel samples. Sample order is insertion order and is significant.
type Task struct {
	ID        string     `json:"id"`
	Prompt    string     `json:"prompt"`
	Status    TaskStatus `json:"status"`
	Samples   []Sample   `json:"samples"`
	Progress  int        `json:"progress"`
	CreatedAt Timestamp  `json:"created_at"`
	UpdatedAt Timestamp  `json:"updated_at"`
	// Error holds the server-reported failure reason when Status is failed.
	Error string `json:"error,omitempty"`
	// Artifact is the aggregate/primary result across samples, set on
	// completion.
	Artifact       *Artifact      `json:"artifact,omitempty"`
	Pages          string         `json:"pages,omitempty"`
	OutputType     string         `json:"output_type,omitempty"`
	UploadedFileID string         `json:"uploaded_file_id,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
}

// Sample returns a pointer to the sample with the given id, or nil.
func (t *Task) Sample(sampleID string) *Sample {
	for i := range t.Samples {
		if t.Samples[i].ID == sampleID {
			return &t.Samples[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the task. Store reads hand out clones so
// observers never alias reducer-owned state.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Samples != nil {
		cp.Samples = make([]Sample, len(t.Samples))
		copy(cp.Samples, t.Samples)
		for i := range cp.Samples {
			cp.Samples[i].Artifact = cloneArtifact(t.Samples[i].Artifact)
		}
	}
	cp.Artifact = cloneArtifact(t.Artifact)
	if t.Options != nil {
		cp.Options = make(map[string]any, len(t.Options))
		for k, v := range t.Options {
			cp.Options[k] = v
		}
	}
	return &cp
}

func cloneArtifact(a *Artifact) *Artifact {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// PlaceholderSampleID derives the server's sample id scheme for a task:
// "<task-id>-sample-<index>". The reducer uses index 0 when it has to
// synthesize a sample for a chunk that arrives before the sample list is
// known.
func PlaceholderSampleID(taskID string, index int) string {
	return fmt.Sprintf("%s-sample-%d", taskID, index)
}

// NewPlaceholderSamples builds the optimistic sample set inserted client-side
// immediately after a successful create call, before the first stream event.
func NewPlaceholderSamples(taskID string, count int, now time.Time) []Sample {
	if count <= 0 {
		return nil
	}
	samples := make([]Sample, count)
	for i := range samples {
		samples[i] = Sample{
			ID:        PlaceholderSampleID(taskID, i),
			Status:    TaskStatusRunning,
			CreatedAt: Timestamp{Time: now},
		}
	}
	return samples
}
