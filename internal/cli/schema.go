package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stratadb/strata/internal/schema"
)

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and validate entity type declarations",
	}
	cmd.AddCommand(newSchemaVetCommand(rootOpts))
	return cmd
}

// vetResult is the JSON payload of schema vet.
type vetResult struct {
	Valid bool     `json:"valid"`
	Types []string `json:"types,omitempty"`
	Error string   `json:"error,omitempty"`
}

func newSchemaVetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "vet [dir]",
		Short:         "Validate the CUE entity declarations of a directory",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.SchemaDir
			if len(args) == 1 {
				dir = args[0]
			}
			formatter := formatterFor(rootOpts, cmd)

			registry, err := schema.LoadDir(dir)
			if err != nil {
				formatter.Error("SCHEMA", err.Error())
				return WrapExitError(ExitFailure, "schema validation failed", err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(vetResult{Valid: true, Types: registry.Types()})
			}
			return formatter.Success(fmt.Sprintf("ok: %d type(s): %v",
				registry.Len(), registry.Types()))
		},
	}
}
