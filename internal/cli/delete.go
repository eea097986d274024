package cli

import (
	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Mark an entity as deleted",
		Long: "Mark an entity as deleted. The deletion is a new revision; " +
			"prior revisions stay in history and the entity can be undeleted.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			formatter := formatterFor(rootOpts, cmd)
			sess, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer sess.close()

			agg, err := sess.engine.SetDeleteFlag(cmd.Context(), args[0], id,
				rootOpts.User, rootOpts.System, rootOpts.Tenant)
			if err != nil {
				return reportEngineError(formatter, err)
			}
			return formatter.Success(agg)
		},
	}
}

// NewUndeleteCommand creates the undelete command.
func NewUndeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "undelete <type> <id>",
		Short:         "Clear the delete mark of an entity",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			formatter := formatterFor(rootOpts, cmd)
			sess, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer sess.close()

			agg, err := sess.engine.RemoveDeleteFlag(cmd.Context(), args[0], id,
				rootOpts.User, rootOpts.System, rootOpts.Tenant)
			if err != nil {
				return reportEngineError(formatter, err)
			}
			return formatter.Success(agg)
		},
	}
}
