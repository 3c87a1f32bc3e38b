package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/runtime"
	"github.com/user/aiwf/internal/types"
)

type runOptions struct {
	command      string
	tool         string
	name         string
	cwd          string
	specStack    string
	participants []string
}

func newRunCommand(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run (--cmd \"...\" | --tool <id> [-- args...])",
		Short: "Run a command inside a new session",
		Long: `Run a command inside a new session workspace.

The command runs through sh -c. Its output is streamed to the session's
artifacts/stdout.txt and artifacts/stderr.txt and recorded as events.
aiwf exits with the command's exit code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.command, "cmd", "", "command to execute")
	f.StringVar(&o.tool, "tool", "", "registered tool id to execute")
	f.StringVar(&o.name, "name", "", "session name suffix")
	f.StringVar(&o.cwd, "cwd", "", "working directory for the command (default current directory)")
	f.StringVar(&o.specStack, "spec-stack", "", "comma-separated spec stack identifiers")
	f.StringArrayVar(&o.participants, "participant", nil, "participant as name:role (repeatable)")
	return cmd
}

func (a *app) run(cmd *cobra.Command, o *runOptions, args []string) error {
	var req runtime.Request
	switch {
	case o.command != "":
		req = runtime.Request{Command: o.command, Argv: args}
	case o.tool != "":
		resolved, err := a.runtime.ResolveTool(o.tool, args)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return usageError(fmt.Errorf("unknown tool: %s", o.tool))
			}
			return err
		}
		req = resolved
	default:
		return usageError(errors.New("missing --cmd"))
	}

	req.Name = strings.TrimSpace(o.name)
	req.SpecStack = runtime.ParseSpecStack(o.specStack)
	req.Participants = runtime.ParseParticipants(o.participants)
	if o.cwd != "" {
		req.Cwd = absPath(o.cwd)
	}

	res, err := a.runtime.Run(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	a.logger.Debug().
		Str("session_id", string(res.SessionID)).
		Int("exit_code", res.ExitCode).
		Msg("run recorded")
	if a.opts.Format != "text" {
		var code any
		if res.Reported {
			code = res.ExitCode
		}
		if err := a.print.record(types.Document{
			"session_id":   string(res.SessionID),
			"session_path": res.Paths.Dir,
			"exit_code":    code,
		}); err != nil {
			return err
		}
	}
	if res.ExitCode != 0 {
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}
