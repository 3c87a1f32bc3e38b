package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/aiwf/internal/config"
	"github.com/user/aiwf/internal/types"
	"gopkg.in/yaml.v3"
)

// cli runs aiwf commands in-process against one data dir.
type cli struct {
	t       *testing.T
	dataDir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{config.EnvHome, config.EnvSessionRoot, config.EnvToolsPath, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
	return &cli{t: t, dataDir: t.TempDir()}
}

func (c *cli) exec(args ...string) (string, string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCommand(&out, &errOut)
	cmd.SetArgs(append([]string{"--data-dir", c.dataDir}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, _, err := c.exec(args...)
	require.NoError(c.t, err, "aiwf %s", strings.Join(args, " "))
	return out
}

func (c *cli) docs(args ...string) []types.Document {
	c.t.Helper()
	var docs []types.Document
	require.NoError(c.t, json.Unmarshal([]byte(c.ok(append(args, "--format", "json")...)), &docs))
	return docs
}

func (c *cli) doc(args ...string) types.Document {
	c.t.Helper()
	var doc types.Document
	require.NoError(c.t, json.Unmarshal([]byte(c.ok(append(args, "--format", "json")...)), &doc))
	return doc
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	require.NotNil(t, cmd)
	assert.Equal(t, "aiwf", cmd.Use)
	assert.Equal(t, version, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})
	commands := [][]string{
		{"run"},
		{"tool", "add"}, {"tool", "get"}, {"tool", "list"}, {"tool", "rm"},
		{"session", "new"}, {"session", "list"}, {"session", "archive"}, {"session", "rm"},
		{"session", "attach"}, {"session", "detach"}, {"session", "current"},
		{"material", "add"}, {"material-set", "create"}, {"artifact", "add"},
		{"query"}, {"fetch"}, {"catalogs"},
		{"config", "list"}, {"config", "get"}, {"config", "set"},
		{"version"},
	}

	for _, path := range commands {
		name := strings.Join(path, " ")
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, subCmd)
			assert.Equal(t, path[len(path)-1], subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCommand(&bytes.Buffer{}, &bytes.Buffer{})

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "data-dir", "session-root", "tools-path"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.exec("session", "list", "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
}

func TestNoCommandIsUsageError(t *testing.T) {
	c := newCLI(t)
	out, _, err := c.exec()
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
	assert.Empty(t, err.Error())
	assert.Contains(t, out, "Usage:")
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.exec("frobnicate")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
}

func TestRunRecordsSession(t *testing.T) {
	c := newCLI(t)
	c.ok("run", "--cmd", "echo hello", "--name", "demo", "--participant", "ana:author")

	sessions := c.docs("query", "sessions")
	require.Len(t, sessions, 1)
	sess := sessions[0]
	assert.True(t, strings.HasSuffix(sess.String("session_id"), "_demo"))
	assert.Equal(t, "echo hello", sess.String("command"))
	assert.Equal(t, "active", sess.String("status"))
	assert.Equal(t, "completed", sess.String("run_status"))
	assert.Equal(t, filepath.Join(c.dataDir, "sessions", sess.String("session_id")), sess.String("session_path"))

	stdout := c.docs("query", "events", "--filter", "type=stdout", "--fields", "type,data")
	require.Len(t, stdout, 1)
	assert.Equal(t, types.Document{"type": "stdout", "data": "hello\n"}, stdout[0])

	fetched := c.doc("fetch", "sessions:"+sess.String("session_id"))
	assert.Equal(t, sess.String("command"), fetched.String("command"))

	data, err := os.ReadFile(filepath.Join(sess.String("session_path"), "artifacts", "stdout.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	timeline := c.docs("query", "timeline", "--filter", "session_id="+sess.String("session_id"))
	assert.GreaterOrEqual(t, len(timeline), 5)
}

func TestRunExitCode(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.exec("run", "--cmd", "exit 4")
	require.Error(t, err)
	assert.Equal(t, 4, GetExitCode(err))
	assert.Empty(t, err.Error())
}

func TestRunJSONResult(t *testing.T) {
	c := newCLI(t)
	res := c.doc("run", "--cmd", "true")
	assert.NotEmpty(t, res.String("session_id"))
	assert.EqualValues(t, 0, res["exit_code"])
}

func TestRunMissingCommand(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.exec("run")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
	assert.Contains(t, err.Error(), "missing --cmd")
}

func TestRunUnknownTool(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.exec("run", "--tool", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown tool: nope")
}

func TestToolLifecycle(t *testing.T) {
	c := newCLI(t)
	out := c.ok("tool", "add", "greet", "--cmd", "echo hi", "--tool-version", "1.0", "--capability", "say", "--capability", "wave")
	assert.Equal(t, "Registered tool: greet\n", out)

	entry := c.doc("tool", "get", "greet")
	assert.Equal(t, "echo hi", entry.String("cmd"))
	assert.Equal(t, "1.0", entry.String("tool_version"))
	assert.Equal(t, []any{"say", "wave"}, entry["capabilities"])
	assert.False(t, entry.Has("adapter_required"))

	list := c.docs("tool", "list")
	require.Len(t, list, 1)
	assert.Equal(t, "greet", list[0].String("tool_id"))

	c.ok("run", "--tool", "greet", "--", "there")
	sessions := c.docs("query", "sessions")
	require.Len(t, sessions, 1)
	assert.Equal(t, "echo hi there", sessions[0].String("command"))
	assert.Equal(t, "greet", sessions[0].String("tool_id"))
	assert.Equal(t, "1.0", sessions[0].String("tool_version"))

	c.ok("tool", "rm", "greet")
	_, _, err := c.exec("tool", "get", "greet")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestSessionLifecycle(t *testing.T) {
	c := newCLI(t)
	created := c.doc("session", "new", "--name", "work")
	id := created.String("session_id")
	require.NotEmpty(t, id)
	assert.Equal(t, "created", created.String("status"))

	c.ok("session", "attach", id)
	current := c.doc("session", "current")
	assert.Equal(t, id, current.String("session_id"))

	mat := c.doc("material", "add", "https://example.com/spec", "--tag", "ref")
	assert.Equal(t, "url", mat.String("type"))
	assert.True(t, strings.HasPrefix(mat.String("material_id"), "mat_"))

	local, err := os.ReadFile(filepath.Join(c.dataDir, "sessions", id, "events.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(local), `"material_added"`)

	events := c.docs("query", "events", "--filter", "type=material_added")
	require.Len(t, events, 1)
	assert.Equal(t, id, events[0].String("session_id"))

	c.ok("session", "detach")
	_, _, err = c.exec("session", "detach")
	require.Error(t, err)
	assert.Equal(t, "no session attached", err.Error())
	_, _, err = c.exec("session", "current")
	require.Error(t, err)

	c.ok("session", "archive", id)
	listed := c.docs("session", "list")
	require.Len(t, listed, 1)
	assert.Equal(t, "archived", listed[0].String("status"))

	_, _, err = c.exec("session", "rm", id)
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
	assert.ErrorIs(t, err, types.ErrConfirmationRequired)

	c.ok("session", "rm", id, "--yes")
	assert.Empty(t, c.docs("session", "list"))
}

func TestMaterialSetAndArtifact(t *testing.T) {
	c := newCLI(t)
	set := c.doc("material-set", "create", "--include", "mat_a,mat_b", "--include", "mat_a", "--exclude", "mat_c")
	assert.Equal(t, []any{"mat_a", "mat_b"}, set["include"])
	assert.Equal(t, []any{"mat_c"}, set["exclude"])

	art := c.doc("artifact", "add", "out/report.md", "--material-set", set.String("material_set_id"), "--tool", "pandoc")
	assert.Equal(t, set.String("material_set_id"), art.String("material_set_id"))

	found := c.docs("query", "artifacts", "--q", "REPORT")
	require.Len(t, found, 1)
	assert.Equal(t, art.String("artifact_id"), found[0].String("artifact_id"))

	_, _, err := c.exec("material", "add", "x", "--type", "video")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))
}

func TestQueryErrors(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.exec("query", "widgets")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnknownCatalog)
	assert.Equal(t, ExitUsage, GetExitCode(err))

	_, _, err = c.exec("query", "events", "--filter", "noequals")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))

	_, _, err = c.exec("query", "events", "--since", "2024-02-01", "--until", "2024-01-01")
	require.Error(t, err)
	assert.Equal(t, ExitUsage, GetExitCode(err))

	_, _, err = c.exec("fetch", "no-colon")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidReference)
	assert.Equal(t, ExitUsage, GetExitCode(err))

	_, _, err = c.exec("fetch", "materials:mat_missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCatalogs(t *testing.T) {
	c := newCLI(t)
	out := c.ok("catalogs")
	for _, kind := range []string{"sessions", "tools", "materials", "material-sets", "artifacts", "events", "timeline"} {
		assert.Contains(t, out, kind)
	}
}

func TestTextAndYAMLOutput(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, "No records found.\n", c.ok("query", "materials"))

	c.ok("tool", "add", "ls", "--cmd", "ls -la")
	text := c.ok("tool", "list")
	assert.Contains(t, text, "TOOL_ID")
	assert.Contains(t, text, "ls -la")

	var parsed []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(c.ok("tool", "list", "--format", "yaml")), &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, "ls", parsed[0]["tool_id"])

	lines := strings.Split(strings.TrimSpace(c.ok("catalogs", "--format", "jsonl")), "\n")
	assert.Len(t, lines, 7)
}

func TestConfigCommands(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, "info\n", c.ok("config", "get", "log_level"))

	assert.Equal(t, "Set log_level = warn\n", c.ok("config", "set", "log_level", "warn"))
	assert.Equal(t, "warn\n", c.ok("config", "get", "log_level"))

	listed := c.ok("config", "list")
	assert.Contains(t, listed, "log_level = warn")
	assert.Contains(t, listed, "session_root = "+filepath.Join(c.dataDir, "sessions"))

	_, _, err := c.exec("config", "set", "log_level", "loud")
	require.Error(t, err)
}

func TestConfigDataDirFlagIsRecorded(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, c.dataDir+"\n", c.ok("config", "get", "data_dir"))
	assert.Contains(t, c.ok("config", "list"), "data_dir = "+c.dataDir+"\n")

	raw, err := os.ReadFile(filepath.Join(c.dataDir, "config.json"))
	require.NoError(t, err)
	var written map[string]any
	require.NoError(t, json.Unmarshal(raw, &written))
	assert.Equal(t, c.dataDir, written["data_dir"])
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	assert.Equal(t, version+"\n", c.ok("version"))
	_, err := os.Stat(filepath.Join(c.dataDir, "config.json"))
	assert.True(t, os.IsNotExist(err), "version should not touch the data dir")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, 7, GetExitCode(&ExitError{Code: 7}))
	assert.Equal(t, ExitUsage, GetExitCode(types.ErrInvalidReference))
	assert.Equal(t, ExitFailure, GetExitCode(types.ErrNotFound))
	assert.Equal(t, ExitFailure, GetExitCode(os.ErrPermission))
}
