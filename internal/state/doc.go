// Package state provides filesystem-backed storage implementations: mutable
// JSON documents, append-only JSONL logs, session workspaces, the tool
// registry and the attached-session pointer.
//
// Nothing here takes file locks. Within one process each store serializes
// its own writes; across processes the only guarantee is the OS append
// boundary for log lines.
package state

import (
	"github.com/rs/zerolog"
	"github.com/user/aiwf/internal/types"
)

// Compile-time interface compliance checks.
var _ types.SessionStore = (*SessionStore)(nil)
var _ types.EventEmitter = (*Emitter)(nil)
var _ types.ToolRegistry = (*ToolRegistry)(nil)

// Option configures a store.
type Option func(*options)

type options struct {
	clock  types.Clock
	logger zerolog.Logger
}

// WithClock replaces the wall clock used for ids and timestamps.
func WithClock(c types.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the logger; stores only log at debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(component string, opts []Option) options {
	o := options{clock: types.SystemClock{}, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With().Str("component", component).Logger()
	return o
}
