package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratadb/strata/internal/entity"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:           "get <type> <id>",
		Short:         "Fetch one entity with its history",
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

			var agg *entity.Entity
			if audit {
				agg, err = sess.engine.AuditEntityByID(cmd.Context(), args[0], id, rootOpts.Tenant)
			} else {
				agg, err = sess.engine.GetEntityByID(cmd.Context(), args[0], id, rootOpts.Tenant)
			}
			if err != nil {
				return reportEngineError(formatter, err)
			}
			if agg.IsEmpty() {
				msg := fmt.Sprintf("no %s with id %d", args[0], id)
				formatter.Error("NOT_FOUND", msg)
				return WrapExitError(ExitFailure, msg, nil)
			}
			return formatter.Success(agg)
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "include logically deleted revisions")
	return cmd
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "history <type> <id>",
		Short:         "List the superseded revisions of one entity",
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

			hist, err := sess.engine.GetEntityHistoryByID(cmd.Context(), args[0], id, rootOpts.Tenant)
			if err != nil {
				return reportEngineError(formatter, err)
			}
			return formatter.Success(hist)
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:           "list <type>",
		Short:         "List current entities of a type in sort order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := formatterFor(rootOpts, cmd)
			sess, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer sess.close()

			var all []*entity.Entity
			if audit {
				all, err = sess.engine.AuditAllCurrent(cmd.Context(), args[0], rootOpts.Tenant)
			} else {
				all, err = sess.engine.GetAllCurrent(cmd.Context(), args[0], rootOpts.Tenant)
			}
			if err != nil {
				return reportEngineError(formatter, err)
			}
			return formatter.Success(all)
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "include logically deleted entities")
	return cmd
}

// NewAtCommand creates the at command.
func NewAtCommand(rootOpts *RootOptions) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:           "at <type> <timestamp>",
		Short:         "List the revisions active at an instant",
		Long:          "List, per entity, the revision that was active at the given RFC 3339 instant.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseTimestamp(args[1])
			if err != nil {
				return err
			}
			formatter := formatterFor(rootOpts, cmd)
			sess, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer sess.close()

			var all []*entity.Entity
			if audit {
				all, err = sess.engine.AuditAllAtDate(cmd.Context(), args[0], date, rootOpts.Tenant)
			} else {
				all, err = sess.engine.GetAllAtDate(cmd.Context(), args[0], date, rootOpts.Tenant)
			}
			if err != nil {
				return reportEngineError(formatter, err)
			}
			return formatter.Success(all)
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "include logically deleted revisions")
	return cmd
}

// NewBetweenCommand creates the between command.
func NewBetweenCommand(rootOpts *RootOptions) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:           "between <type> <start> <end>",
		Short:         "List the revisions active inside a time window",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseTimestamp(args[1])
			if err != nil {
				return err
			}
			end, err := parseTimestamp(args[2])
			if err != nil {
				return err
			}
			formatter := formatterFor(rootOpts, cmd)
			sess, err := openSession(rootOpts)
			if err != nil {
				return err
			}
			defer sess.close()

			var all []*entity.Entity
			if audit {
				all, err = sess.engine.AuditAllBetweenDates(cmd.Context(), args[0], start, end, rootOpts.Tenant)
			} else {
				all, err = sess.engine.GetAllBetweenDates(cmd.Context(), args[0], start, end, rootOpts.Tenant)
			}
			if err != nil {
				return reportEngineError(formatter, err)
			}
			return formatter.Success(all)
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "include logically deleted revisions")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, WrapExitError(ExitCommandError, fmt.Sprintf("invalid entity id %q", s), nil)
	}
	return id, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError,
			fmt.Sprintf("invalid timestamp %q, expected RFC 3339", s), err)
	}
	return t, nil
}
