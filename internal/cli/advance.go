package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerflow/internal/engine"
)

// AdvanceOptions holds flags for the advance command.
type AdvanceOptions struct {
	*RootOptions
	Caller string
	All    bool
}

// NewAdvanceCommand creates the advance command.
func NewAdvanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AdvanceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "advance [id]",
		Short: "Run the computation for a Processing record",
		Long: `Run the compute backend for a record in Processing and persist the
outcome: Completed with artifacts on success, Failed otherwise. Only the
record's owner may advance it, and a finished record cannot be advanced
again.

With --all, every Processing record owned by --as is advanced, oldest first.

Exit codes:
  0 - Record(s) advanced to Completed
  1 - Unauthorized, already terminal, not found, or computation failed
  2 - Command error (bad config, ledger unreachable)

Example:
  ledgerflow advance --as 0xA 0190a1b2-0000-7000-8000-000000000001
  ledgerflow advance --as 0xA --all`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.All == (len(args) == 1) {
				return NewExitError(ExitCommandError, "specify exactly one of <id> or --all")
			}
			if opts.All {
				return runAdvanceAll(opts, cmd)
			}
			return runAdvance(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Caller, "as", "", "caller identity (required)")
	cmd.Flags().BoolVar(&opts.All, "all", false, "advance every Processing record owned by the caller")
	_ = cmd.MarkFlagRequired("as")

	return cmd
}

func runAdvance(opts *AdvanceOptions, id string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		rec, err := a.engine.Advance(cmd.Context(), opts.Caller, id)
		if err != nil {
			if engine.IsComputeFailed(err) {
				f.VerboseLog("record %s marked %s", rec.ID, rec.Status)
			}
			return fail(f, "advance failed", err)
		}
		return f.Success(NewRecordView(rec))
	})
}

// AdvanceResult is one row of an --all run.
type AdvanceResult struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r AdvanceResult) String() string {
	if r.Error != "" {
		return fmt.Sprintf("✗ %s  %s  %s", r.ID, r.Status, r.Error)
	}
	return fmt.Sprintf("✓ %s  %s", r.ID, r.Status)
}

// AdvanceResults renders one line per record in text mode.
type AdvanceResults []AdvanceResult

func (rs AdvanceResults) String() string {
	if len(rs) == 0 {
		return "No Processing records."
	}
	var out string
	for i, r := range rs {
		if i > 0 {
			out += "\n"
		}
		out += r.String()
	}
	return out
}

func runAdvanceAll(opts *AdvanceOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		outcomes, err := a.engine.AdvanceAll(cmd.Context(), opts.Caller)
		if err != nil {
			return fail(f, "advance failed", err)
		}

		results := make(AdvanceResults, 0, len(outcomes))
		failed := 0
		for _, o := range outcomes {
			r := AdvanceResult{ID: o.ID, Status: o.Record.Status.String()}
			if o.Err != nil {
				r.Error = errorCode(o.Err)
				failed++
			}
			results = append(results, r)
		}

		if err := f.Success(results); err != nil {
			return err
		}
		if failed > 0 {
			return NewExitError(ExitFailure, fmt.Sprintf("%d of %d records failed", failed, len(outcomes)))
		}
		return nil
	})
}
