package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ledgerflow/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Update bool
	Golden string
}

// ScenarioResult is the result of running a single scenario.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// ScenarioSummary summarizes a scenario run.
type ScenarioSummary struct {
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// NewScenarioCommand creates the scenario command.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario <file>...",
		Short: "Run workflow scenarios against an in-memory ledger",
		Long: `Run YAML workflow scenarios. Each scenario runs against a fresh in-memory
ledger with deterministic ids and clock; the ledger configuration is
ignored.

With --golden, each scenario's snapshot is compared to
<golden-dir>/<name>.golden; --update rewrites the golden files.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error

Example:
  ledgerflow scenario ./scenarios/*.yaml
  ledgerflow scenario --golden ./testdata/golden --update ./scenarios/lifecycle.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "directory of golden snapshots to compare against")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "rewrite golden snapshots instead of comparing")

	return cmd
}

func runScenarios(opts *ScenarioOptions, files []string, cmd *cobra.Command) error {
	if opts.Update && opts.Golden == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	w := cmd.OutOrStdout()
	summary := ScenarioSummary{Scenarios: []ScenarioResult{}}
	for _, file := range files {
		r := runScenario(opts, file, cmd)
		summary.Total++
		if r.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
		summary.Scenarios = append(summary.Scenarios, r)

		if opts.Format != "json" {
			if r.Pass {
				fmt.Fprintf(w, "✓ %s\n", r.Name)
			} else {
				fmt.Fprintf(w, "✗ %s\n", r.Name)
				for _, e := range r.Errors {
					fmt.Fprintf(w, "  %s\n", e)
				}
			}
		}
	}

	if opts.Format == "json" {
		f := newFormatter(opts.RootOptions, w, cmd.ErrOrStderr())
		if err := f.Success(summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(w, "\n%d scenarios: %d passed, %d failed\n", summary.Total, summary.Passed, summary.Failed)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", summary.Failed))
	}
	return nil
}

// runScenario executes a single scenario file.
func runScenario(opts *ScenarioOptions, file string, cmd *cobra.Command) ScenarioResult {
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{
			Name:   filepath.Base(file),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
	}

	result, err := harness.Run(cmd.Context(), scenario)
	if err != nil {
		return ScenarioResult{
			Name:   scenario.Name,
			Errors: []string{fmt.Sprintf("execution failed: %v", err)},
		}
	}

	r := ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
	if opts.Golden == "" {
		return r
	}

	path := filepath.Join(opts.Golden, scenario.Name+".golden")
	if opts.Update {
		if err := writeGolden(path, scenario.Name, result); err != nil {
			r.Pass = false
			r.Errors = append(r.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return r
	}

	match, err := compareGolden(path, scenario.Name, result)
	switch {
	case err != nil:
		r.Pass = false
		r.Errors = append(r.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case !match:
		r.Pass = false
		r.Errors = append(r.Errors, fmt.Sprintf("snapshot differs from %s", path))
	}
	return r
}
