package main

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/user/aiwf/internal/state"
)

// recordError reports invalid input as a usage error.
func recordError(err error) error {
	var invalid validator.ValidationErrors
	if errors.As(err, &invalid) {
		return usageError(err)
	}
	return err
}

func newMaterialCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "material",
		Short: "Record input materials",
	}

	in := state.MaterialInput{}
	add := &cobra.Command{
		Use:   "add <path|url|text>",
		Short: "Record a material",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Path = args[0]
			rec, err := a.records.AddMaterial(in)
			if err != nil {
				return recordError(err)
			}
			return a.print.message(rec, "Added material: %s", rec.String("material_id"))
		},
	}
	f := add.Flags()
	f.StringVar(&in.Type, "type", "", "material type (file|url|text); inferred when empty")
	f.StringVar(&in.Tag, "tag", "", "free-form tag")
	f.StringVar(&in.Source, "source", "", "where the material came from")

	cmd.AddCommand(add)
	return cmd
}

func newMaterialSetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "material-set",
		Short: "Group materials into sets",
	}

	var include, exclude []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a material set",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.records.CreateMaterialSet(include, exclude)
			if err != nil {
				return recordError(err)
			}
			return a.print.message(rec, "Created material set: %s", rec.String("material_set_id"))
		},
	}
	f := create.Flags()
	f.StringSliceVar(&include, "include", nil, "material ids to include (comma-separated or repeated)")
	f.StringSliceVar(&exclude, "exclude", nil, "material ids to exclude (comma-separated or repeated)")

	cmd.AddCommand(create)
	return cmd
}

func newArtifactCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artifact",
		Short: "Record output artifacts",
	}

	in := state.ArtifactInput{}
	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Record an artifact",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Path = args[0]
			rec, err := a.records.AddArtifact(in)
			if err != nil {
				return recordError(err)
			}
			return a.print.message(rec, "Added artifact: %s", rec.String("artifact_id"))
		},
	}
	f := add.Flags()
	f.StringVar(&in.MaterialSetID, "material-set", "", "material set the artifact was produced from")
	f.StringVar(&in.ToolID, "tool", "", "tool id that produced the artifact")
	f.StringVar(&in.ToolVersion, "tool-version", "", "version of the producing tool")

	cmd.AddCommand(add)
	return cmd
}
