// internal/state/session.go
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/user/aiwf/internal/types"
)

// SessionStore manages session workspaces under a root directory. Each
// session owns root/<sessionID>/ with run.json, events.jsonl, artifacts/ and
// inputs/.
type SessionStore struct {
	root   string
	clock  types.Clock
	logger zerolog.Logger
}

// NewSessionStore creates a new file-backed SessionStore rooted at the given directory.
func NewSessionStore(root string, opts ...Option) *SessionStore {
	o := buildOptions("sessions", opts)
	return &SessionStore{root: root, clock: o.clock, logger: o.logger}
}

// Root returns the session root directory.
func (s *SessionStore) Root() string {
	return s.root
}

// Paths returns the workspace layout for id. It does not touch the disk.
func (s *SessionStore) Paths(id types.SessionID) types.SessionPaths {
	dir := filepath.Join(s.root, string(id))
	return types.SessionPaths{
		Dir:       dir,
		Artifacts: filepath.Join(dir, "artifacts"),
		Inputs:    filepath.Join(dir, "inputs"),
		Run:       filepath.Join(dir, "run.json"),
		Events:    filepath.Join(dir, "events.jsonl"),
	}
}

// sessionDir resolves id to its directory, rejecting ids that would escape
// the root.
func (s *SessionStore) sessionDir(id types.SessionID) (string, error) {
	if id == "" || strings.ContainsAny(string(id), `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid session id: %q", id)
	}
	dir := filepath.Join(s.root, string(id))
	resolved, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	absRoot, err := filepath.Abs(s.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	if !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid session id: %q", id)
	}
	return dir, nil
}

// Create makes a new workspace and writes a run document holding only
// session_id. Ids have one-second resolution: a second unnamed session in
// the same second fails with types.ErrAlreadyExists instead of sharing the
// directory.
func (s *SessionStore) Create(name string) (*types.Session, error) {
	id := types.NewSessionID(s.clock.Now(), name)
	dir, err := s.sessionDir(id)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, fmt.Errorf("create session root: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("session %s: %w", id, types.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	paths := s.Paths(id)
	for _, sub := range []string{paths.Artifacts, paths.Inputs} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("create session subdir: %w", err)
		}
	}
	if err := WriteDocument(paths.Run, types.Document{"session_id": string(id)}); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("session_id", string(id)).Str("dir", dir).Msg("session created")
	return &types.Session{ID: id, Paths: paths}, nil
}

// Get returns the run document of the given session.
func (s *SessionStore) Get(id types.SessionID) (types.Document, error) {
	dir, err := s.sessionDir(id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("session %s: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("stat session: %w", err)
	}
	return ReadDocument(s.Paths(id).Run)
}

// List summarizes every immediate subdirectory of the root, in name order.
// A missing or unreadable run document gives an empty summary rather than
// an error. status is archived iff archived_at is set, otherwise active; the
// run document's own status is kept as run_status.
func (s *SessionStore) List() ([]types.Document, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.Document{}, nil
		}
		return nil, fmt.Errorf("read session root: %w", err)
	}

	summaries := make([]types.Document, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id := types.SessionID(entry.Name())
		run, err := ReadDocument(s.Paths(id).Run)
		if err != nil {
			s.logger.Debug().Err(err).Str("session_id", string(id)).Msg("unreadable run document")
			run = types.Document{}
		}
		summaries = append(summaries, summarize(id, run, s.Paths(id).Dir))
	}
	return summaries, nil
}

func summarize(id types.SessionID, run types.Document, dir string) types.Document {
	summary := run.Clone()
	if !summary.Has("session_id") {
		summary["session_id"] = string(id)
	}
	if status, ok := run["status"]; ok {
		summary["run_status"] = status
	}
	summary["status"] = types.StatusActive
	if run.Has("archived_at") {
		summary["status"] = types.StatusArchived
	}
	summary["session_dir"] = string(id)
	summary["session_path"] = dir
	return summary
}

// UpdateRun patches the session's run document. session_id is fixed at
// creation, so any session_id in the patch is ignored.
func (s *SessionStore) UpdateRun(id types.SessionID, patch types.Document) (types.Document, error) {
	if _, err := s.sessionDir(id); err != nil {
		return nil, err
	}
	clean := patch.Clone()
	delete(clean, "session_id")
	return UpdateDocument(s.Paths(id).Run, clean)
}

// Archive marks the session archived. The workspace stays on disk.
func (s *SessionStore) Archive(id types.SessionID) (types.Document, error) {
	run, err := s.UpdateRun(id, types.Document{
		"status":      types.StatusArchived,
		"archived_at": types.Timestamp(s.clock.Now()),
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("session_id", string(id)).Msg("session archived")
	return run, nil
}

// Remove deletes the whole workspace, including its run document and local
// event log. It refuses unless confirmed is true.
func (s *SessionStore) Remove(id types.SessionID, confirmed bool) error {
	if !confirmed {
		return fmt.Errorf("remove session %s: %w", id, types.ErrConfirmationRequired)
	}
	dir, err := s.sessionDir(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("session %s: %w", id, types.ErrNotFound)
		}
		return fmt.Errorf("stat session: %w", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove session directory: %w", err)
	}
	s.logger.Debug().Str("session_id", string(id)).Msg("session removed")
	return nil
}
