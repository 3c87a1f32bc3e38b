package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/config"
	"github.com/user/aiwf/internal/types"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	cmd.AddCommand(newConfigListCommand(a), newConfigGetCommand(a), newConfigSetCommand(a))
	return cmd
}

func newConfigListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := config.ListValues(a.cfg)
			if err != nil {
				return fmt.Errorf("list config: %w", err)
			}
			if a.opts.Format != "text" {
				return a.print.record(types.Document(values))
			}

			// Sort keys for stable output
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(a.out, "%s = %v\n", k, values[k])
			}
			return nil
		},
	}
}

func newConfigGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := config.LookupValue(a.cfg, a.cfgPath, args[0])
			if err != nil {
				return err
			}
			return a.print.message(types.Document{args[0]: val}, "%v", val)
		},
	}
}

func newConfigSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetValue(a.cfgPath, args[0], args[1]); err != nil {
				return err
			}
			return a.print.message(types.Document{args[0]: args[1]}, "Set %s = %s", args[0], args[1])
		},
	}
}
