// internal/state/tools.go
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/user/aiwf/internal/types"
)

// toolsFile is the on-disk shape of tools.json.
type toolsFile struct {
	Tools map[string]types.Document `json:"tools"`
}

// ToolRegistry is a JSON-file-backed map from tool id to invocation
// metadata. Entries are replaced in place; no history is kept.
type ToolRegistry struct {
	path string
	mu   sync.RWMutex
}

// NewToolRegistry creates a registry stored at the given file path.
func NewToolRegistry(path string) *ToolRegistry {
	return &ToolRegistry{path: path}
}

// Path returns the file path used by this registry.
func (r *ToolRegistry) Path() string {
	return r.path
}

// Set merges meta over the existing entry for id, creating it if needed.
func (r *ToolRegistry) Set(id string, meta types.Document) (types.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("tool id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tools, err := r.load()
	if err != nil {
		return nil, err
	}
	clean := meta.Clone()
	delete(clean, "tool_id")
	entry := types.Merge(tools[id], clean)
	tools[id] = entry
	if err := r.save(tools); err != nil {
		return nil, err
	}
	return withToolID(id, entry), nil
}

// Get returns the entry for id, or an error wrapping types.ErrNotFound.
func (r *ToolRegistry) Get(id string) (types.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools, err := r.load()
	if err != nil {
		return nil, err
	}
	entry, ok := tools[id]
	if !ok {
		return nil, fmt.Errorf("tool %s: %w", id, types.ErrNotFound)
	}
	return withToolID(id, entry), nil
}

// Delete removes id and reports whether it was present.
func (r *ToolRegistry) Delete(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tools, err := r.load()
	if err != nil {
		return false, err
	}
	if _, ok := tools[id]; !ok {
		return false, nil
	}
	delete(tools, id)
	return true, r.save(tools)
}

// List returns every entry, with tool_id set, sorted by id.
func (r *ToolRegistry) List() ([]types.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools, err := r.load()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tools))
	for id := range tools {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]types.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, withToolID(id, tools[id]))
	}
	return out, nil
}

func withToolID(id string, entry types.Document) types.Document {
	out := entry.Clone()
	out["tool_id"] = id
	return out
}

// load reads the registry file. A missing file is an empty registry.
func (r *ToolRegistry) load() (map[string]types.Document, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]types.Document), nil
		}
		return nil, fmt.Errorf("read tools file: %w", err)
	}

	var file toolsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal tools: %w", err)
	}
	if file.Tools == nil {
		file.Tools = make(map[string]types.Document)
	}
	for id, entry := range file.Tools {
		if entry == nil {
			file.Tools[id] = types.Document{}
		}
	}
	return file.Tools, nil
}

func (r *ToolRegistry) save(tools map[string]types.Document) error {
	return WriteDocument(r.path, toolsFile{Tools: tools})
}
