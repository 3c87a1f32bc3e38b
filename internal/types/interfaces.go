// internal/types/interfaces.go
package types

import "time"

// Clock supplies wall-clock time to anything that stamps ids or records.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

type SessionStore interface {
	Create(name string) (*Session, error)
	Get(id SessionID) (Document, error)
	List() ([]Document, error)
	UpdateRun(id SessionID, patch Document) (Document, error)
	Archive(id SessionID) (Document, error)
	Remove(id SessionID, confirmed bool) error
	Paths(id SessionID) SessionPaths
}

type EventEmitter interface {
	Emit(sessionLog string, event Document) (Document, error)
	EmitGlobal(event Document) (Document, error)
}

type ToolRegistry interface {
	Set(id string, meta Document) (Document, error)
	Get(id string) (Document, error)
	Delete(id string) (bool, error)
	List() ([]Document, error)
}
