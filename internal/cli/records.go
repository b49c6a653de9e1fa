package cli

import (
	"github.com/spf13/cobra"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Long: `Fetch and decode one record by id.

Example:
  ledgerflow get 0190a1b2-0000-7000-8000-000000000001 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				rec, err := a.engine.Store().Get(cmd.Context(), args[0])
				if err != nil {
					return fail(f, "get failed", err)
				}
				return f.Success(NewRecordView(rec))
			})
		},
	}
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all records, newest first",
		Long: `List every record reachable from the index, newest first (ties by id).
Records that cannot be fetched or decoded are skipped and logged.

Example:
  ledgerflow list --ledger sqlite --ledger-path ./ledger.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return withApp(cmd.Context(), rootOpts, cmd.ErrOrStderr(), func(a *app) error {
				recs, err := a.engine.Store().List(cmd.Context())
				if err != nil {
					return fail(f, "list failed", err)
				}
				views := make(RecordList, len(recs))
				for i, r := range recs {
					views[i] = NewRecordView(r)
				}
				return f.Success(views)
			})
		},
	}
}
