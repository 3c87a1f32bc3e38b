// internal/state/document.go
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/aiwf/internal/types"
)

// ReadDocument loads the JSON document at path. A missing file yields an
// error wrapping types.ErrNotFound; the caller decides on a default.
func ReadDocument(path string) (types.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("document %s: %w", path, types.ErrNotFound)
		}
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc types.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document %s: %w", path, err)
	}
	if doc == nil {
		doc = types.Document{}
	}
	return doc, nil
}

// WriteDocument replaces the document at path. The payload goes to a temp
// file that is renamed into place, so readers see the old or the new
// document and never a partial one.
func WriteDocument(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}

	// Atomic write: write to temp file then rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp document: %w", err)
	}
	return nil
}

// UpdateDocument shallow-merges patch over the existing document and writes
// the result. The document must already exist. Read and write are separate
// steps with no lock between them: a concurrent writer in another process
// can lose its update.
func UpdateDocument(path string, patch types.Document) (types.Document, error) {
	current, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	next := types.Merge(current, patch)
	if err := WriteDocument(path, next); err != nil {
		return nil, err
	}
	return next, nil
}
