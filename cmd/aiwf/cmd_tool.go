package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/types"
)

type toolAddOptions struct {
	command         string
	invocationType  string
	toolVersion     string
	capabilities    []string
	adapterRequired bool
	adapterNotes    string
}

func newToolCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Manage the tool registry",
	}
	cmd.AddCommand(newToolAddCommand(a), newToolGetCommand(a), newToolListCommand(a), newToolRmCommand(a))
	return cmd
}

func newToolAddCommand(a *app) *cobra.Command {
	o := &toolAddOptions{}
	cmd := &cobra.Command{
		Use:   "add <id> --cmd \"...\"",
		Short: "Register or update a tool",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.command == "" {
				return usageError(errors.New("missing --cmd for tool add"))
			}
			meta := types.Document{"cmd": o.command}
			f := cmd.Flags()
			if f.Changed("invocation-type") {
				meta["invocation_type"] = o.invocationType
			}
			if f.Changed("tool-version") {
				meta["tool_version"] = o.toolVersion
			}
			if f.Changed("capability") {
				meta["capabilities"] = o.capabilities
			}
			if f.Changed("adapter-required") {
				meta["adapter_required"] = o.adapterRequired
			}
			if f.Changed("adapter-notes") {
				meta["adapter_notes"] = o.adapterNotes
			}

			entry, err := a.tools.Set(args[0], meta)
			if err != nil {
				return fmt.Errorf("register tool: %w", err)
			}
			return a.print.message(entry, "Registered tool: %s", args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.command, "cmd", "", "command line the tool runs")
	f.StringVar(&o.invocationType, "invocation-type", "", "how the tool is invoked, e.g. cli")
	f.StringVar(&o.toolVersion, "tool-version", "", "tool version recorded with runs")
	f.StringArrayVar(&o.capabilities, "capability", nil, "capability tag (repeatable)")
	f.BoolVar(&o.adapterRequired, "adapter-required", false, "tool needs an adapter to run")
	f.StringVar(&o.adapterNotes, "adapter-notes", "", "notes about the adapter")
	return cmd
}

func newToolGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a registered tool",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.tools.Get(args[0])
			if err != nil {
				return err
			}
			return a.print.record(entry)
		},
	}
}

func newToolListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered tools",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := a.tools.List()
			if err != nil {
				return fmt.Errorf("list tools: %w", err)
			}
			return a.print.list(tools, []string{"tool_id", "cmd", "tool_version"})
		},
	}
}

func newToolRmCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a registered tool",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.tools.Delete(args[0])
			if err != nil {
				return fmt.Errorf("remove tool: %w", err)
			}
			if !removed {
				return fmt.Errorf("tool %s: %w", args[0], types.ErrNotFound)
			}
			return a.print.message(types.Document{"tool_id": args[0], "removed": true}, "Removed tool: %s", args[0])
		},
	}
}
