// internal/types/errors.go
package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for a missing document, record, session or tool.
	ErrNotFound = errors.New("not found")
	// ErrCorruptLog is returned when a log line does not parse. The whole
	// load fails; no partial result is returned.
	ErrCorruptLog = errors.New("corrupt log")
	// ErrConfirmationRequired guards destructive operations.
	ErrConfirmationRequired = errors.New("confirmation required")
	// ErrUnknownCatalog is returned for an unrecognized catalog kind.
	ErrUnknownCatalog = errors.New("unknown catalog")
	// ErrInvalidReference is returned for a malformed "kind:id" reference.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrAlreadyExists is returned when a session id is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// CorruptLogError identifies the offending line of an append-only log.
type CorruptLogError struct {
	Path string
	Line int
	Err  error
}

func (e *CorruptLogError) Error() string {
	return fmt.Sprintf("corrupt log %s at line %d: %v", e.Path, e.Line, e.Err)
}

// Unwrap lets errors.Is match both ErrCorruptLog and the decode error.
func (e *CorruptLogError) Unwrap() []error {
	return []error{ErrCorruptLog, e.Err}
}
