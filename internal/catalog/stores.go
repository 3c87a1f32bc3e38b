package catalog

import (
	"github.com/user/aiwf/internal/state"
)

// FromStores wires the filesystem stores into Sources.
func FromStores(sessions *state.SessionStore, emitter *state.Emitter, records *state.RecordStore, tools *state.ToolRegistry) Sources {
	return Sources{
		Sessions:     sessions,
		Tools:        tools.List,
		Materials:    records.Materials,
		MaterialSets: records.MaterialSets,
		Artifacts:    records.Artifacts,
		Events:       emitter.LoadEvents,
		ReadLog:      state.LoadRecords,
	}
}
