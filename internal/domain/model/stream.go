package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChunkSeparator joins successive chunk payloads in a sample's content
// buffer, matching the joiner the server uses when rebuilding snapshots.
const ChunkSeparator = "\n\n"

// EventKind identifies a stream event type.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type EventKind string

const (
	// EventStatus sets the task status.
	EventStatus EventKind = "status"
	// EventChunk appends incremental text to a sample's content buffer.
	EventChunk EventKind = "chunk"
	// EventProgress updates task- or sample-level progress.
	EventProgress EventKind = "progress"
	// EventComplete marks a task (and optionally one sample) as completed
	// and attaches the final artifact.
	EventComplete EventKind = "complete"
	// EventError marks a task (and optionally one sample) as failed.
	EventError EventKind = "error"
)

// Valid returns true if the EventKind is one the reducer understands.
func (k EventKind) Valid() bool {
	return k == EventStatus || k == EventChunk || k == EventProgress ||
		k == EventComplete || k == EventError
}

// UnmarshalText implements encoding.TextUnmarshaler for EventKind.
func (k *EventKind) UnmarshalText(text []byte) error {
	v := EventKind(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid EventKind: %q", v)
	}
	*k = v
	return nil
}

// StreamEvent is the structured envelope delivered per stream message. Field
// presence depends on Type; the reducer applies the merge policy.
type StreamEvent struct {
	Type     EventKind  `json:"type"`
	TaskID   string     `json:"task_id"`
	SampleID string     `json:"sample_id,omitempty"`
	Content  string     `json:"content,omitempty"`
	Status   TaskStatus `json:"status,omitempty"`
	Progress *int       `json:"progress,omitempty"`
	Error    string     `json:"error,omitempty"`
	Artifact *Artifact  `json:"artifact,omitempty"`
}

// DecodeStreamEvent parses one inbound frame. A frame that fails to decode,
// carries an unknown type, or lacks a task id is rejected; the connection
// manager drops it without tearing down the connection.
func DecodeStreamEvent(data []byte) (StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StreamEvent{}, fmt.Errorf("decode stream event: %w", err)
	}
	if !ev.Type.Valid() {
		return StreamEvent{}, fmt.Errorf("unknown stream event type %q", ev.Type)
	}
	if strings.TrimSpace(ev.TaskID) == "" {
		return StreamEvent{}, fmt.Errorf("stream event %q missing task_id", ev.Type)
	}
	return ev, nil
}

// SubscribeRequest is the client-to-server control message registering
// interest in live updates for one task.
type SubscribeRequest struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
}

// NewSubscribeRequest builds a subscribe control message for the given task.
func NewSubscribeRequest(taskID string) SubscribeRequest {
	return SubscribeRequest{Type: "subscribe", TaskID: taskID}
}
