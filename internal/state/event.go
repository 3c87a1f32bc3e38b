// internal/state/event.go
package state

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/user/aiwf/internal/types"
)

// Emitter writes lifecycle events to the global event log and, when a
// session log is named, to that session's local log as well.
//
// The two appends are independent. A crash between them leaves the copies
// out of step and nothing repairs that.
type Emitter struct {
	globalPath string
	clock      types.Clock
	logger     zerolog.Logger
	mu         sync.Mutex
}

// NewEmitter creates an Emitter appending to the global log at globalPath.
func NewEmitter(globalPath string, opts ...Option) *Emitter {
	o := buildOptions("events", opts)
	return &Emitter{globalPath: globalPath, clock: o.clock, logger: o.logger}
}

// GlobalPath returns the global event log path.
func (e *Emitter) GlobalPath() string {
	return e.globalPath
}

// Emit assigns a fresh event_id, appends that copy to the global log and
// appends the copy without event_id to sessionLog. ts is filled in when the
// caller left it empty. The returned document is the global copy.
func (e *Emitter) Emit(sessionLog string, event types.Document) (types.Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	local, global := e.stamp(event)
	if err := AppendRecord(e.globalPath, global); err != nil {
		return nil, err
	}
	if sessionLog != "" {
		if err := AppendRecord(sessionLog, local); err != nil {
			return nil, err
		}
	}
	e.logger.Debug().
		Str("event_id", global.String("event_id")).
		Str("type", global.String("type")).
		Str("session_id", global.String("session_id")).
		Msg("event emitted")
	return global, nil
}

// EmitGlobal appends to the global log only.
func (e *Emitter) EmitGlobal(event types.Document) (types.Document, error) {
	return e.Emit("", event)
}

func (e *Emitter) stamp(event types.Document) (local, global types.Document) {
	now := e.clock.Now()
	local = event.Clone()
	delete(local, "event_id")
	if !local.Has("ts") {
		local["ts"] = types.Timestamp(now)
	}
	global = local.Clone()
	global["event_id"] = types.MakeID("evt", now)
	return local, global
}

// LoadEvents returns the global event log in append order.
func (e *Emitter) LoadEvents() ([]types.Document, error) {
	return LoadRecords(e.globalPath)
}
