package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	GoldenDir string // directory of {scenario}.golden traces
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario-path>...",
		Short: "Run waterfall scenarios",
		Long: `Run YAML waterfall scenarios against a simulated clock.

Each scenario declares a waterfall, a load and timed steps (responses, ticks,
pauses), then the expected outcome. With --golden the full execution trace is
also compared with a golden file. Scenarios are self-contained; neither the
database nor the specs directory is used.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  waterfall test ./scenarios
  waterfall test ./scenarios --golden ./scenarios/golden
  waterfall test ./scenarios --golden ./scenarios/golden --update
  waterfall test ./scenarios --filter "pause_*" --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.GoldenDir, "golden", "", "directory of golden trace files")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenario files by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden")
	}

	files, err := harness.FindScenarios(paths)
	if err != nil {
		return WrapExitError(ExitCommandError, "finding scenarios", err)
	}
	files, err = filterScenarioFiles(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --filter", err)
	}

	w := cmd.OutOrStdout()
	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(w, &harness.SuiteResult{Scenarios: []harness.ScenarioOutcome{}})
		}
		fmt.Fprintln(w, "No scenarios found.")
		return nil
	}

	result, err := harness.RunSuite(files, harness.SuiteOptions{
		GoldenDir: opts.GoldenDir,
		Update:    opts.Update,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "running scenarios", err)
	}

	if opts.Format == "json" {
		return outputTestJSON(w, result)
	}
	return outputTestText(w, result)
}

// filterScenarioFiles keeps files whose base name, without extension,
// matches pattern. An empty pattern keeps everything.
func filterScenarioFiles(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		matched, err := filepath.Match(pattern, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

// outputTestJSON outputs the suite result as JSON.
func outputTestJSON(w io.Writer, result *harness.SuiteResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the suite result as text.
func outputTestText(w io.Writer, result *harness.SuiteResult) error {
	for _, s := range result.Scenarios {
		name := s.Scenario
		if name == "" {
			name = filepath.Base(s.Path)
		}
		switch {
		case s.Pass && s.GoldenUpdated:
			fmt.Fprintf(w, "✓ %s (golden updated)\n", name)
		case s.Pass:
			fmt.Fprintf(w, "✓ %s\n", name)
		default:
			fmt.Fprintf(w, "✗ %s\n", name)
			for _, e := range s.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
