// Package runtime executes external commands inside a session workspace and
// records their lifecycle as events and run-document patches.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/user/aiwf/internal/types"
	"golang.org/x/sync/errgroup"
)

// DefaultTool is the tool name recorded for plain --cmd runs.
const DefaultTool = "cmd"

// Participant is one name:role pair attached to a run.
type Participant struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Request describes one command execution.
type Request struct {
	Command      string `validate:"required"`
	Cwd          string
	Name         string
	Tool         string
	ToolID       string
	ToolVersion  string
	Argv         []string
	SpecStack    []string
	Participants []Participant
}

// Result reports where a run was recorded and how it ended.
type Result struct {
	SessionID types.SessionID
	Paths     types.SessionPaths
	// ExitCode is the child's exit status, or 0 when it reported none.
	ExitCode int
	// Reported is false when the child ended without an exit status, for
	// example when it was killed by a signal.
	Reported bool
}

// Runtime runs commands and writes their events.
type Runtime struct {
	sessions  types.SessionStore
	events    types.EventEmitter
	tools     types.ToolRegistry
	clock     types.Clock
	logger    zerolog.Logger
	validator *validator.Validate
	shell     string
}

// New creates a Runtime with the given dependencies.
func New(sessions types.SessionStore, events types.EventEmitter, tools types.ToolRegistry, logger zerolog.Logger) *Runtime {
	return &Runtime{
		sessions:  sessions,
		events:    events,
		tools:     tools,
		clock:     types.SystemClock{},
		logger:    logger.With().Str("component", "runtime").Logger(),
		validator: validator.New(),
		shell:     "sh",
	}
}

// Run creates a session, executes req.Command through the shell and returns
// once tool_end is logged and the run document carries finished_at and
// exit_code. A non-zero exit is a normal Result, not an error.
func (rt *Runtime) Run(ctx context.Context, req Request) (*Result, error) {
	if err := rt.validator.Struct(req); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if req.Tool == "" {
		req.Tool = DefaultTool
	}
	if req.Argv == nil {
		req.Argv = []string{}
	}
	if req.Cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve cwd: %w", err)
		}
		req.Cwd = wd
	}

	sess, err := rt.sessions.Create(req.Name)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	rec := &recorder{rt: rt, session: sess}
	log := rt.logger.With().Str("session_id", string(sess.ID)).Logger()

	createdAt := types.Timestamp(rt.clock.Now())
	if _, err := rt.sessions.UpdateRun(sess.ID, types.Document{
		"status":     types.StatusCreated,
		"created_at": createdAt,
	}); err != nil {
		return nil, err
	}
	if err := rec.emit(types.Document{"ts": createdAt, "type": types.EventSessionCreated, "path": sess.Paths.Dir}); err != nil {
		return nil, err
	}

	if _, err := rt.sessions.UpdateRun(sess.ID, runPatch(req, types.Timestamp(rt.clock.Now()))); err != nil {
		return nil, err
	}
	if err := rec.emit(types.Document{"type": types.EventSessionStart}); err != nil {
		return nil, err
	}
	if err := rec.emit(types.Document{"type": types.EventToolStart, "tool": req.Tool, "argv": req.Argv}); err != nil {
		return nil, err
	}

	log.Info().Str("tool", req.Tool).Str("cwd", req.Cwd).Msg("starting command")
	code, reported, execErr := rt.execute(ctx, req, rec)

	var exitCode any
	if reported {
		exitCode = code
	}
	end := types.Document{"type": types.EventToolEnd, "code": exitCode}
	if execErr != nil {
		end["error"] = execErr.Error()
	}
	endErr := rec.emit(end)

	status := types.StatusCompleted
	if !reported || code != 0 || execErr != nil {
		status = types.StatusFailed
	}
	if _, err := rt.sessions.UpdateRun(sess.ID, types.Document{
		"finished_at": types.Timestamp(rt.clock.Now()),
		"exit_code":   exitCode,
		"status":      status,
	}); err != nil {
		return nil, err
	}

	if execErr != nil {
		log.Error().Err(execErr).Msg("command recording failed")
		return nil, execErr
	}
	if endErr != nil {
		return nil, endErr
	}
	log.Info().Int("exit_code", code).Bool("reported", reported).Msg("command finished")
	return &Result{SessionID: sess.ID, Paths: sess.Paths, ExitCode: code, Reported: reported}, nil
}

func runPatch(req Request, startedAt string) types.Document {
	patch := types.Document{
		"command":    req.Command,
		"cwd":        req.Cwd,
		"tool":       req.Tool,
		"argv":       req.Argv,
		"started_at": startedAt,
		"status":     types.StatusRunning,
	}
	if req.ToolID != "" {
		patch["tool_id"] = req.ToolID
	}
	if req.ToolVersion != "" {
		patch["tool_version"] = req.ToolVersion
	}
	if len(req.SpecStack) > 0 {
		patch["spec_stack"] = req.SpecStack
	}
	if len(req.Participants) > 0 {
		patch["participants"] = req.Participants
	}
	return patch
}

// execute spawns the child and pumps both streams until they close. It
// reports the exit code and whether the child reported one.
func (rt *Runtime) execute(ctx context.Context, req Request, rec *recorder) (int, bool, error) {
	stdoutFile, err := openArtifact(rec.session.Paths.Artifacts, "stdout.txt")
	if err != nil {
		return 0, false, err
	}
	defer stdoutFile.Close()
	stderrFile, err := openArtifact(rec.session.Paths.Artifacts, "stderr.txt")
	if err != nil {
		return 0, false, err
	}
	defer stderrFile.Close()

	cmd := exec.CommandContext(ctx, rt.shell, "-c", req.Command)
	cmd.Dir = req.Cwd
	cmd.Env = os.Environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, false, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, false, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 0, false, fmt.Errorf("start command: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error { return rec.pump(stdout, stdoutFile, types.EventStdout) })
	g.Go(func() error { return rec.pump(stderr, stderrFile, types.EventStderr) })
	pumpErr := g.Wait()

	waitErr := cmd.Wait()
	if waitErr == nil {
		return 0, true, pumpErr
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, true, pumpErr
		}
		return 0, false, pumpErr
	}
	if pumpErr != nil {
		return 0, false, pumpErr
	}
	return 0, false, fmt.Errorf("wait command: %w", waitErr)
}

// recorder writes events for one session. Each stream chunk and its
// artifact_written event are emitted as a pair under one lock, so pairs
// from stdout and stderr never interleave.
type recorder struct {
	rt      *Runtime
	session *types.Session
	mu      sync.Mutex
}

func (r *recorder) emit(event types.Document) error {
	event["session_id"] = string(r.session.ID)
	_, err := r.rt.events.Emit(r.session.Paths.Events, event)
	return err
}

// ParseSpecStack splits a comma-separated spec stack, dropping blanks.
func ParseSpecStack(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseParticipants reads name:role pairs. Entries without a name are
// dropped; the role may be empty.
func ParseParticipants(values []string) []Participant {
	var out []Participant
	for _, v := range values {
		name, role, _ := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, Participant{Name: name, Role: strings.TrimSpace(role)})
	}
	return out
}
