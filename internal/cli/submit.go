package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	*RootOptions
	Owner       string
	Payload     string
	PayloadFile string
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a new analysis record in Processing",
		Long: `Create a new analysis record owned by --owner. The payload is stored as
opaque bytes, taken from --payload or read from --payload-file.

Example:
  ledgerflow submit --owner 0xA --payload-file ./input.bin
  ledgerflow submit --owner 0xA --payload P --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner identity (required)")
	cmd.Flags().StringVar(&opts.Payload, "payload", "", "payload as a literal string")
	cmd.Flags().StringVar(&opts.PayloadFile, "payload-file", "", "read payload from file")
	_ = cmd.MarkFlagRequired("owner")
	cmd.MarkFlagsMutuallyExclusive("payload", "payload-file")
	cmd.MarkFlagsOneRequired("payload", "payload-file")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	payload := []byte(opts.Payload)
	if opts.PayloadFile != "" {
		data, err := os.ReadFile(opts.PayloadFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read payload file", err)
		}
		payload = data
	}

	return withApp(cmd.Context(), opts.RootOptions, cmd.ErrOrStderr(), func(a *app) error {
		rec, err := a.engine.Submit(cmd.Context(), opts.Owner, payload)
		if err != nil {
			return fail(f, "submit failed", err)
		}
		f.VerboseLog("submitted %s (%d payload bytes)", rec.ID, len(rec.Payload))
		return f.Success(NewRecordView(rec))
	})
}
