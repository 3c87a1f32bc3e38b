package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/aiwf/internal/types"
)

func TestToolRegistry_SetMergesOverExisting(t *testing.T) {
	reg := NewToolRegistry(filepath.Join(t.TempDir(), "tools.json"))

	_, err := reg.Set("fmt", types.Document{"cmd": "gofmt -l", "tool_version": "1"})
	require.NoError(t, err)
	entry, err := reg.Set("fmt", types.Document{"tool_version": "2", "capabilities": []string{"lint"}})
	require.NoError(t, err)

	assert.Equal(t, "fmt", entry["tool_id"])
	assert.Equal(t, "gofmt -l", entry["cmd"])
	assert.Equal(t, "2", entry["tool_version"])

	got, err := reg.Get("fmt")
	require.NoError(t, err)
	assert.Equal(t, []any{"lint"}, got["capabilities"])
}

func TestToolRegistry_FileShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	reg := NewToolRegistry(path)
	_, err := reg.Set("echo", types.Document{"cmd": "echo"})
	require.NoError(t, err)

	doc, err := ReadDocument(path)
	require.NoError(t, err)
	tools, ok := doc["tools"].(map[string]any)
	require.True(t, ok, "tools.json must hold a tools object")
	assert.Equal(t, map[string]any{"cmd": "echo"}, tools["echo"], "tool_id is the key, not a stored field")
}

func TestToolRegistry_GetMissing(t *testing.T) {
	reg := NewToolRegistry(filepath.Join(t.TempDir(), "tools.json"))
	_, err := reg.Get("nope")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestToolRegistry_Delete(t *testing.T) {
	reg := NewToolRegistry(filepath.Join(t.TempDir(), "tools.json"))
	_, err := reg.Set("a", types.Document{"cmd": "a"})
	require.NoError(t, err)

	existed, err := reg.Delete("a")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = reg.Delete("a")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestToolRegistry_ListSorted(t *testing.T) {
	reg := NewToolRegistry(filepath.Join(t.TempDir(), "tools.json"))
	for _, id := range []string{"zeta", "alpha", "mid"} {
		_, err := reg.Set(id, types.Document{"cmd": id})
		require.NoError(t, err)
	}

	list, err := reg.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0]["tool_id"])
	assert.Equal(t, "mid", list[1]["tool_id"])
	assert.Equal(t, "zeta", list[2]["tool_id"])
}

func TestToolRegistry_RejectsEmptyID(t *testing.T) {
	reg := NewToolRegistry(filepath.Join(t.TempDir(), "tools.json"))
	_, err := reg.Set("  ", types.Document{"cmd": "x"})
	assert.Error(t, err)
}

func TestToolRegistry_ReadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tools":{"ls":{"cmd":"ls -la"}}}`), 0o644))

	entry, err := NewToolRegistry(path).Get("ls")
	require.NoError(t, err)
	assert.Equal(t, "ls -la", entry["cmd"])
}
