package model

import (
	"errors"
	"strings"
)

// MaxSampleCount caps the number of parallel samples per task, mirroring the
// server-side limit.
const MaxSampleCount = 5

// CreateTaskRequest represents a request to create a new generation task.
type CreateTaskRequest struct {
	Prompt         string         `json:"prompt"`
	SampleCount    int            `json:"sample_count,omitempty"`
	Pages          string         `json:"pages,omitempty"`
	OutputType     string         `json:"output_type,omitempty"`
	UploadedFileID string         `json:"uploaded_file_id,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
}

// Validate validates the CreateTaskRequest fields.
func (r *CreateTaskRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" {
		return errors.New("prompt is required")
	}
	if r.SampleCount < 0 {
		return errors.New("sample count must be >= 0")
	}
	if r.SampleCount > MaxSampleCount {
		return errors.New("sample count exceeds maximum")
	}
	return nil
}

// CreateTaskResponse is the server acknowledgement for a create call.
type CreateTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// RenameTaskRequest updates a task's prompt.
type RenameTaskRequest struct {
	Prompt string `json:"prompt"`
}

// Ack is the generic status acknowledgement returned by mutating lifecycle
// calls such as delete.
type Ack struct {
	Status string `json:"status"`
	TaskID string `json:"task_id,omitempty"`
}

// UploadedFile describes one stored upload.
type UploadedFile struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// UploadResponse is the server acknowledgement for a multipart upload.
type UploadResponse struct {
	Status string         `json:"status"`
	Files  []UploadedFile `json:"files"`
}
