package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/types"
)

func newSessionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage session workspaces",
	}
	cmd.AddCommand(
		newSessionNewCommand(a),
		newSessionListCommand(a),
		newSessionArchiveCommand(a),
		newSessionRmCommand(a),
		newSessionAttachCommand(a),
		newSessionDetachCommand(a),
		newSessionCurrentCommand(a),
	)
	return cmd
}

func newSessionNewCommand(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create an empty session workspace",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.sessions.Create(name)
			if err != nil {
				return fmt.Errorf("create session: %w", err)
			}
			createdAt := types.Timestamp(a.clock.Now())
			run, err := a.sessions.UpdateRun(sess.ID, types.Document{
				"status":     types.StatusCreated,
				"created_at": createdAt,
			})
			if err != nil {
				return err
			}
			if _, err := a.emitter.Emit(sess.Paths.Events, types.Document{
				"ts":         createdAt,
				"type":       types.EventSessionCreated,
				"session_id": string(sess.ID),
				"path":       sess.Paths.Dir,
			}); err != nil {
				return err
			}
			run["session_path"] = sess.Paths.Dir
			return a.print.message(run, "Created session: %s", sess.ID)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "session name suffix")
	return cmd
}

func newSessionListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.sessions.List()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			return a.print.list(list, []string{"session_id", "status", "run_status", "created_at", "command"})
		},
	}
}

func newSessionArchiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Mark a session archived",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := types.SessionID(args[0])
			if _, err := a.sessions.Get(id); err != nil {
				return err
			}
			run, err := a.sessions.Archive(id)
			if err != nil {
				return fmt.Errorf("archive session: %w", err)
			}
			return a.print.message(run, "Archived session: %s", id)
		},
	}
}

func newSessionRmCommand(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <id> --yes",
		Short: "Delete a session workspace",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := types.SessionID(args[0])
			if err := a.sessions.Remove(id, yes); err != nil {
				if errors.Is(err, types.ErrConfirmationRequired) {
					return &ExitError{Code: ExitUsage, Message: "refusing to remove session without --yes", Err: err}
				}
				return err
			}
			if current, err := a.attached.Current(); err == nil && current.String("session_id") == string(id) {
				if err := a.attached.Detach(); err != nil {
					return err
				}
			}
			return a.print.message(types.Document{"session_id": string(id), "removed": true}, "Removed session: %s", id)
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm removal")
	return cmd
}

func newSessionAttachCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <id>",
		Short: "Attach registry events to a session",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := types.SessionID(args[0])
			if _, err := a.sessions.Get(id); err != nil {
				return err
			}
			doc, err := a.attached.Attach(id, a.sessions.Paths(id).Dir)
			if err != nil {
				return fmt.Errorf("attach session: %w", err)
			}
			return a.print.message(doc, "Attached session: %s", id)
		},
	}
}

func newSessionDetachCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "detach",
		Short: "Detach the attached session",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.attached.Detach(); err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return errors.New("no session attached")
				}
				return err
			}
			return a.print.message(types.Document{"detached": true}, "Detached session")
		},
	}
}

func newSessionCurrentCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the attached session",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.attached.Current()
			if err != nil {
				if errors.Is(err, types.ErrNotFound) {
					return errors.New("no session attached")
				}
				return err
			}
			return a.print.record(doc)
		},
	}
}
