// internal/state/records.go
package state

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/user/aiwf/internal/types"
)

// MaterialInput describes an input reference to record.
type MaterialInput struct {
	Path   string `json:"path" validate:"required"`
	Type   string `json:"type,omitempty" validate:"omitempty,oneof=file url text"`
	Tag    string `json:"tag,omitempty"`
	Source string `json:"source,omitempty"`
}

// ArtifactInput describes an output file to record. The material set and
// tool ids are stored as given and not checked against their stores.
type ArtifactInput struct {
	Path          string `json:"path" validate:"required"`
	MaterialSetID string `json:"material_set_id,omitempty"`
	ToolID        string `json:"tool_id,omitempty"`
	ToolVersion   string `json:"tool_version,omitempty"`
}

// RecordPaths names the append-only logs a RecordStore writes.
type RecordPaths struct {
	Materials    string
	MaterialSets string
	Artifacts    string
}

// RecordStore appends materials, material sets and artifacts to their logs
// and announces each one with an event. Records are never rewritten.
type RecordStore struct {
	paths     RecordPaths
	emitter   *Emitter
	attached  *Attachment
	sessions  *SessionStore
	validator *validator.Validate
	clock     types.Clock
	logger    zerolog.Logger
}

// NewRecordStore wires the record logs to an emitter. attached and sessions
// may be nil, in which case events only go to the global log.
func NewRecordStore(paths RecordPaths, emitter *Emitter, attached *Attachment, sessions *SessionStore, opts ...Option) *RecordStore {
	o := buildOptions("records", opts)
	return &RecordStore{
		paths:     paths,
		emitter:   emitter,
		attached:  attached,
		sessions:  sessions,
		validator: validator.New(),
		clock:     o.clock,
		logger:    o.logger,
	}
}

// AddMaterial records an input reference. An empty type is inferred: http
// and https URLs are url, paths that exist on disk are file, anything else
// is text.
func (s *RecordStore) AddMaterial(in MaterialInput) (types.Document, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if in.Type == "" {
		in.Type = InferMaterialType(in.Path)
	}

	now := s.clock.Now()
	record := types.Document{
		"material_id": types.MakeID("mat", now),
		"type":        in.Type,
		"path":        in.Path,
		"added_at":    types.Timestamp(now),
	}
	setIfNotEmpty(record, "tag", in.Tag)
	setIfNotEmpty(record, "source", in.Source)

	if err := AppendRecord(s.paths.Materials, record); err != nil {
		return nil, err
	}
	if err := s.announce(types.EventMaterialAdded, "material_id", record); err != nil {
		return nil, err
	}
	return record, nil
}

// InferMaterialType guesses file, url or text for a material path.
func InferMaterialType(path string) string {
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return "url"
	}
	if _, err := os.Stat(path); err == nil {
		return "file"
	}
	return "text"
}

// CreateMaterialSet records a fixed snapshot of included and excluded
// material ids. Duplicates are dropped, keeping first occurrence order.
func (s *RecordStore) CreateMaterialSet(include, exclude []string) (types.Document, error) {
	now := s.clock.Now()
	record := types.Document{
		"material_set_id": types.MakeID("ms", now),
		"include":         dedupe(include),
		"exclude":         dedupe(exclude),
		"created_at":      types.Timestamp(now),
	}
	if err := AppendRecord(s.paths.MaterialSets, record); err != nil {
		return nil, err
	}
	if err := s.announce(types.EventMaterialSetCreated, "material_set_id", record); err != nil {
		return nil, err
	}
	return record, nil
}

// AddArtifact records an output file.
func (s *RecordStore) AddArtifact(in ArtifactInput) (types.Document, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	now := s.clock.Now()
	record := types.Document{
		"artifact_id": types.MakeID("art", now),
		"path":        in.Path,
		"created_at":  types.Timestamp(now),
	}
	setIfNotEmpty(record, "material_set_id", in.MaterialSetID)
	setIfNotEmpty(record, "tool_id", in.ToolID)
	setIfNotEmpty(record, "tool_version", in.ToolVersion)

	if err := AppendRecord(s.paths.Artifacts, record); err != nil {
		return nil, err
	}
	if err := s.announce(types.EventArtifactAdded, "artifact_id", record); err != nil {
		return nil, err
	}
	return record, nil
}

// Materials returns the material log in append order.
func (s *RecordStore) Materials() ([]types.Document, error) {
	return LoadRecords(s.paths.Materials)
}

// MaterialSets returns the material set log in append order.
func (s *RecordStore) MaterialSets() ([]types.Document, error) {
	return LoadRecords(s.paths.MaterialSets)
}

// Artifacts returns the artifact log in append order.
func (s *RecordStore) Artifacts() ([]types.Document, error) {
	return LoadRecords(s.paths.Artifacts)
}

// announce emits the event for a new record. With a session attached the
// event carries its session_id and also lands in that session's log.
func (s *RecordStore) announce(eventType, idField string, record types.Document) error {
	event := types.Document{
		"ts":    record.String(timeField(record)),
		"type":  eventType,
		idField: record[idField],
	}
	for _, k := range []string{"path", "tag", "material_set_id", "tool_id"} {
		if v, ok := record[k]; ok {
			event[k] = v
		}
	}
	if v, ok := record["type"]; ok {
		event["material_type"] = v
	}

	sessionLog := ""
	if s.attached != nil {
		current, err := s.attached.Current()
		switch {
		case err == nil:
			id := types.SessionID(current.String("session_id"))
			if s.sessions == nil {
				event["session_id"] = string(id)
				break
			}
			// A removed session stays attached until detach; its directory
			// must not be recreated by the event write.
			if _, err := s.sessions.Get(id); err != nil {
				if !errors.Is(err, types.ErrNotFound) {
					return err
				}
				s.logger.Warn().Str("session_id", string(id)).Msg("attached session no longer exists, event kept global")
				break
			}
			event["session_id"] = string(id)
			sessionLog = s.sessions.Paths(id).Events
		case !errors.Is(err, types.ErrNotFound):
			return err
		}
	}

	_, err := s.emitter.Emit(sessionLog, event)
	return err
}

func timeField(record types.Document) string {
	if record.Has("added_at") {
		return "added_at"
	}
	return "created_at"
}

func setIfNotEmpty(doc types.Document, key, value string) {
	if value != "" {
		doc[key] = value
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
