package main

import (
	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/types"
)

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the aiwf version",
		Args:  noArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupOutput()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.print.message(types.Document{"version": version}, "%s", version)
		},
	}
}
