// Package catalog maps catalog kind names to the stores that hold them and
// resolves "kind:id" references to single records.
package catalog

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/user/aiwf/internal/types"
)

// Catalog kind names.
const (
	Sessions     = "sessions"
	Tools        = "tools"
	Materials    = "materials"
	MaterialSets = "material-sets"
	Artifacts    = "artifacts"
	Events       = "events"
	Timeline     = "timeline"
)

// idFields names the field that identifies a record of each kind.
var idFields = map[string]string{
	Sessions:     "session_id",
	Tools:        "tool_id",
	Materials:    "material_id",
	MaterialSets: "material_set_id",
	Artifacts:    "artifact_id",
	Events:       "event_id",
	Timeline:     "event_id",
}

// Loader reads one full record collection.
type Loader func() ([]types.Document, error)

// SessionSource lists sessions and locates their workspaces.
type SessionSource interface {
	List() ([]types.Document, error)
	Paths(id types.SessionID) types.SessionPaths
}

// LogReader reads an append-only log.
type LogReader func(path string) ([]types.Document, error)

// Sources supplies the loaders behind each kind.
type Sources struct {
	Sessions     SessionSource
	Tools        Loader
	Materials    Loader
	MaterialSets Loader
	Artifacts    Loader
	Events       Loader
	ReadLog      LogReader
}

// Resolver loads catalogs by name.
type Resolver struct {
	src     Sources
	loaders map[string]Loader
	logger  zerolog.Logger
}

// New builds a Resolver over src.
func New(src Sources, logger zerolog.Logger) *Resolver {
	r := &Resolver{src: src, logger: logger.With().Str("component", "catalog").Logger()}
	r.loaders = map[string]Loader{
		Sessions:     src.Sessions.List,
		Tools:        src.Tools,
		Materials:    src.Materials,
		MaterialSets: src.MaterialSets,
		Artifacts:    src.Artifacts,
		Events:       src.Events,
		Timeline:     r.timeline,
	}
	return r
}

// Kinds returns every known kind name, sorted.
func Kinds() []string {
	out := make([]string, 0, len(idFields))
	for k := range idFields {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IDField returns the identifying field for kind.
func IDField(kind string) (string, error) {
	field, ok := idFields[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownCatalog, kind)
	}
	return field, nil
}

// Load returns the full collection for kind.
func (r *Resolver) Load(kind string) ([]types.Document, error) {
	load, ok := r.loaders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownCatalog, kind)
	}
	records, err := load()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	if records == nil {
		records = []types.Document{}
	}
	return records, nil
}

// Fetch returns the single record of kind whose id field equals id.
func (r *Resolver) Fetch(kind, id string) (types.Document, error) {
	field, err := IDField(kind)
	if err != nil {
		return nil, err
	}
	records, err := r.Load(kind)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if s, ok := rec[field].(string); ok && s == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
}

// FetchRef resolves a "kind:id" reference.
func (r *Resolver) FetchRef(ref string) (types.Document, error) {
	kind, id, err := types.ParseRef(ref)
	if err != nil {
		return nil, err
	}
	return r.Fetch(kind, id)
}

// timeline merges the global event log with every session's local log.
// Local events that are plain dual-write copies of a global event are
// skipped. The rest, typically written before global logging existed, are
// appended with session_id and a local event_id backfilled when missing.
func (r *Resolver) timeline() ([]types.Document, error) {
	global, err := r.src.Events()
	if err != nil {
		return nil, err
	}

	copies := make(map[string]int, len(global))
	for _, ev := range global {
		stripped := ev.Clone()
		delete(stripped, "event_id")
		copies[signature(stripped)]++
	}

	merged := make([]types.Document, 0, len(global))
	merged = append(merged, global...)

	sessions, err := r.src.Sessions.List()
	if err != nil {
		return nil, err
	}
	backfilled := 0
	for _, sess := range sessions {
		id := types.SessionID(sess.String("session_id"))
		local, err := r.src.ReadLog(r.src.Sessions.Paths(types.SessionID(sess.String("session_dir"))).Events)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", id, err)
		}
		for i, ev := range local {
			sig := signature(ev)
			if copies[sig] > 0 {
				copies[sig]--
				continue
			}
			augmented := ev.Clone()
			if !augmented.Has("session_id") {
				augmented["session_id"] = string(id)
			}
			if !augmented.Has("event_id") {
				augmented["event_id"] = fmt.Sprintf("local_%s_%d", id, i+1)
			}
			merged = append(merged, augmented)
			backfilled++
		}
	}

	r.logger.Debug().Int("global", len(global)).Int("backfilled", backfilled).Msg("timeline merged")
	return merged, nil
}

// signature is a stable serialization used to recognise identical records.
// encoding/json writes map keys in sorted order.
func signature(doc types.Document) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(data)
}
