package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratadb/strata/internal/entity"
)

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		id        int64
		order     float64
		attrsFile string
	)

	cmd := &cobra.Command{
		Use:   "save <type>",
		Short: "Save a new revision of an entity",
		Long: `Save a new revision of an entity.

Attributes are read as a JSON object from --attrs (a file path, or "-" for
stdin). Omitting --id creates a new entity; passing --id revises the
existing one. --order of 0 appends at the tail, a negative value -p inserts
at position p, a positive value requests that exact sort key.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(rootOpts, cmd, args[0], id, order, attrsFile)
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "logical entity id (0 creates a new entity)")
	cmd.Flags().Float64Var(&order, "order", 0, "requested sort key")
	cmd.Flags().StringVar(&attrsFile, "attrs", "", `attributes JSON file ("-" for stdin)`)

	return cmd
}

func runSave(opts *RootOptions, cmd *cobra.Command, entityType string, id int64, order float64, attrsFile string) error {
	formatter := formatterFor(opts, cmd)

	attrs, err := readAttrs(attrsFile, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "read attributes", err)
	}

	sess, err := openSession(opts)
	if err != nil {
		return err
	}
	defer sess.close()

	agg, err := sess.engine.Save(cmd.Context(), entityType, &entity.State{
		ID:    id,
		Order: order,
		Attrs: attrs,
	}, opts.User, opts.System, opts.Tenant)
	if err != nil {
		return reportEngineError(formatter, err)
	}

	formatter.VerboseLog("saved %s #%d", entityType, agg.ID)
	return formatter.Success(agg)
}

// readAttrs loads the attribute JSON object, if any.
func readAttrs(path string, stdin io.Reader) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}

	var src io.Reader
	if path == "-" {
		src = stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		src = f
	}

	var attrs map[string]any
	dec := json.NewDecoder(src)
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	return attrs, nil
}
