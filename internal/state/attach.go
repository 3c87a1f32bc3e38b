// internal/state/attach.go
package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/user/aiwf/internal/types"
)

// Attachment is the process-wide pointer to the session that registry
// operations should be attributed to. It is absent until Attach is called
// and Detach deletes it; there is no implicit default.
type Attachment struct {
	path  string
	clock types.Clock
}

// NewAttachment stores the pointer document at path.
func NewAttachment(path string, opts ...Option) *Attachment {
	o := buildOptions("attach", opts)
	return &Attachment{path: path, clock: o.clock}
}

// Attach points at the given session.
func (a *Attachment) Attach(id types.SessionID, sessionPath string) (types.Document, error) {
	doc := types.Document{
		"session_id":   string(id),
		"session_path": sessionPath,
		"attached_at":  types.Timestamp(a.clock.Now()),
	}
	if err := WriteDocument(a.path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Current returns the pointer, or an error wrapping types.ErrNotFound when
// nothing is attached.
func (a *Attachment) Current() (types.Document, error) {
	doc, err := ReadDocument(a.path)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, fmt.Errorf("attached session: %w", types.ErrNotFound)
		}
		return nil, err
	}
	return doc, nil
}

// Detach removes the pointer. Detaching with nothing attached returns an
// error wrapping types.ErrNotFound.
func (a *Attachment) Detach() error {
	if err := os.Remove(a.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("attached session: %w", types.ErrNotFound)
		}
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}
