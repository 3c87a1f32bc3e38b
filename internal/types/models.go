// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// Document is a schema-less JSON object. Every persisted record kind
// (run documents, events, materials, material sets, artifacts, tools) is a
// Document; fields are read by name rather than through static structs.
type Document map[string]any

// Get returns the field value and whether the key is present.
func (d Document) Get(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

// String returns the field as a string, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Has reports whether key is present and non-nil.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// Clone returns a shallow copy.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge returns base with patch keys laid over it. Patch wins on conflict;
// neither input is modified. Keys cannot be removed this way.
func Merge(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// ToDocument converts any JSON-encodable value into a Document.
func ToDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Timestamp formats t the way every record stores time: UTC with
// millisecond precision, e.g. 2024-01-01T00:00:00.000Z.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Event types written by the execution wrapper and the record stores.
const (
	EventSessionStart       = "session_start"
	EventSessionCreated     = "session_created"
	EventToolStart          = "tool_start"
	EventStdout             = "stdout"
	EventStderr             = "stderr"
	EventArtifactWritten    = "artifact_written"
	EventToolEnd            = "tool_end"
	EventMaterialAdded      = "material_added"
	EventMaterialSetCreated = "material_set_created"
	EventArtifactAdded      = "artifact_added"
)

// Session status values derived from or written to the run document.
const (
	StatusCreated   = "created"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusActive    = "active"
	StatusArchived  = "archived"
)

// SessionPaths locates everything a session workspace owns.
type SessionPaths struct {
	Dir       string `json:"session_dir"`
	Artifacts string `json:"artifacts_dir"`
	Inputs    string `json:"inputs_dir"`
	Run       string `json:"run_path"`
	Events    string `json:"events_path"`
}

// Session is the result of creating a session workspace.
type Session struct {
	ID    SessionID    `json:"session_id"`
	Paths SessionPaths `json:"paths"`
}
