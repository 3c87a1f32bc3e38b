package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/aiwf/internal/types"
)

type recordFixture struct {
	dir      string
	emitter  *Emitter
	attached *Attachment
	sessions *SessionStore
	records  *RecordStore
}

func newRecordFixture(t *testing.T) *recordFixture {
	t.Helper()
	dir := t.TempDir()
	clock := WithClock(newStepClock(testEpoch, time.Second))
	f := &recordFixture{dir: dir}
	f.emitter = NewEmitter(filepath.Join(dir, "db", "events.jsonl"), clock)
	f.attached = NewAttachment(filepath.Join(dir, "attached-session.json"), clock)
	f.sessions = NewSessionStore(filepath.Join(dir, "sessions"), clock)
	f.records = NewRecordStore(RecordPaths{
		Materials:    filepath.Join(dir, "db", "materials.jsonl"),
		MaterialSets: filepath.Join(dir, "db", "material_sets.jsonl"),
		Artifacts:    filepath.Join(dir, "db", "artifacts.jsonl"),
	}, f.emitter, f.attached, f.sessions, clock)
	return f
}

func TestRecordStore_AddMaterialInfersType(t *testing.T) {
	f := newRecordFixture(t)
	onDisk := filepath.Join(f.dir, "notes.md")
	require.NoError(t, os.WriteFile(onDisk, []byte("# notes"), 0o644))

	cases := []struct {
		path string
		want string
	}{
		{"https://example.com/spec", "url"},
		{onDisk, "file"},
		{"remember the milk", "text"},
	}
	for _, tc := range cases {
		m, err := f.records.AddMaterial(MaterialInput{Path: tc.path, Tag: "x"})
		require.NoError(t, err)
		assert.Equal(t, tc.want, m["type"], tc.path)
		assert.Regexp(t, `^mat_\d{8}_\d{6}_[0-9a-z]{4}$`, m["material_id"])
	}

	materials, err := f.records.Materials()
	require.NoError(t, err)
	require.Len(t, materials, 3)
	assert.Equal(t, "x", materials[0]["tag"])
	assert.NotContains(t, materials[0], "source")
}

func TestRecordStore_AddMaterialValidation(t *testing.T) {
	f := newRecordFixture(t)

	_, err := f.records.AddMaterial(MaterialInput{})
	assert.Error(t, err)

	_, err = f.records.AddMaterial(MaterialInput{Path: "a", Type: "video"})
	assert.Error(t, err)

	m, err := f.records.AddMaterial(MaterialInput{Path: "a", Type: "text"})
	require.NoError(t, err)
	assert.Equal(t, "text", m["type"])
}

func TestRecordStore_MaterialSetDedupes(t *testing.T) {
	f := newRecordFixture(t)

	set, err := f.records.CreateMaterialSet([]string{"m1", "m2", "m1", " "}, []string{"m3", "m3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, set["include"])
	assert.Equal(t, []string{"m3"}, set["exclude"])

	sets, err := f.records.MaterialSets()
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, []any{"m1", "m2"}, sets[0]["include"])
}

func TestRecordStore_AddArtifact(t *testing.T) {
	f := newRecordFixture(t)

	_, err := f.records.AddArtifact(ArtifactInput{})
	assert.Error(t, err, "path is required")

	art, err := f.records.AddArtifact(ArtifactInput{Path: "out/report.pdf", MaterialSetID: "ms_x", ToolID: "render"})
	require.NoError(t, err)
	assert.Equal(t, "ms_x", art["material_set_id"])
	assert.Equal(t, "render", art["tool_id"])
	assert.NotContains(t, art, "tool_version")

	arts, err := f.records.Artifacts()
	require.NoError(t, err)
	require.Len(t, arts, 1)
}

func TestRecordStore_EventsGlobalWhenDetached(t *testing.T) {
	f := newRecordFixture(t)

	m, err := f.records.AddMaterial(MaterialInput{Path: "hello", Type: "text"})
	require.NoError(t, err)

	events, err := f.emitter.LoadEvents()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventMaterialAdded, events[0]["type"])
	assert.Equal(t, m["material_id"], events[0]["material_id"])
	assert.Equal(t, "text", events[0]["material_type"])
	assert.Equal(t, m["added_at"], events[0]["ts"])
	assert.NotContains(t, events[0], "session_id")
}

func TestRecordStore_EventsDualWrittenWhenAttached(t *testing.T) {
	f := newRecordFixture(t)
	sess, err := f.sessions.Create("work")
	require.NoError(t, err)
	_, err = f.attached.Attach(sess.ID, sess.Paths.Dir)
	require.NoError(t, err)

	_, err = f.records.CreateMaterialSet([]string{"m1"}, nil)
	require.NoError(t, err)

	global, err := f.emitter.LoadEvents()
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, string(sess.ID), global[0]["session_id"])

	local, err := LoadRecords(sess.Paths.Events)
	require.NoError(t, err)
	require.Len(t, local, 1)
	assert.Equal(t, types.EventMaterialSetCreated, local[0]["type"])
	assert.NotContains(t, local[0], "event_id")
}

func TestRecordStore_EventsGlobalWhenAttachedSessionRemoved(t *testing.T) {
	f := newRecordFixture(t)
	sess, err := f.sessions.Create("gone")
	require.NoError(t, err)
	_, err = f.attached.Attach(sess.ID, sess.Paths.Dir)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Remove(sess.ID, true))

	_, err = f.records.AddMaterial(MaterialInput{Path: "hello", Type: "text"})
	require.NoError(t, err)

	_, err = os.Stat(sess.Paths.Dir)
	assert.True(t, os.IsNotExist(err), "removed session dir must not reappear")

	global, err := f.emitter.LoadEvents()
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, types.EventMaterialAdded, global[0]["type"])
	assert.NotContains(t, global[0], "session_id")
}
