package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/waterfall/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool                       `json:"valid"`
	Waterfalls int                        `json:"waterfalls"`
	Errors     []compiler.ValidationError `json:"errors,omitempty"`
	Warnings   []compiler.OverlapWarning  `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [specs-dir]",
		Short: "Validate waterfall definitions",
		Long: `Validate CUE waterfall definitions without touching the database.

Checks syntax and schema, then tier semantics: ranks, response windows and
carrier lists. Every problem is reported at once. Lanes served by more than
one waterfall and carriers repeated across tiers are reported as warnings.

The specs directory defaults to --specs.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Specs
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadWaterfalls(specsDir, LoadModeCollectAll)

	// Handle load errors (directory not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputValidateError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr.Pos),
			})
			continue
		}
		validationErrors = append(validationErrors, compiler.ValidationError{
			Field:   "load",
			Message: err.Error(),
			Code:    ErrCodeGeneric,
		})
	}

	for _, w := range loadResult.Waterfalls {
		formatter.VerboseLog("Validating waterfall: %s (%d tiers)", w.ID, len(w.Tiers))
	}
	validationErrors = append(validationErrors, compiler.ValidateAll(loadResult.Waterfalls)...)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	warnings := compiler.AnalyzeOverlaps(loadResult.Waterfalls)
	return outputValidateSuccess(formatter, len(loadResult.Waterfalls), warnings)
}

// lineOf extracts the line number from a CUE position.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int, warnings []compiler.OverlapWarning) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Waterfalls: count, Warnings: warnings})
	}

	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = fmt.Sprintf("[%s] %s", w.Level, w.Message)
	}
	return formatter.SuccessWithWarnings(fmt.Sprintf("✓ All specs valid (%d waterfalls)", count), lines)
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Unreadable specs are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
