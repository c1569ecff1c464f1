package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Name     string                     `json:"name"`
	Clips    int                        `json:"clips"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <timeline>",
		Short: "Validate a timeline without compiling it",
		Long: `Validate a timeline definition.

Reports unknown clip references, duplicate names, bad easings and other
definition errors, plus a warning for every dependency cycle. Cycles do
not fail validation: the clips on them simply never play.

Exit codes:
  0 - Timeline is valid (warnings allowed)
  1 - Validation errors
  2 - Command error (file not found, parse error)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	def, err := LoadDefinition(path)
	if err != nil {
		code, message := loadErrorCode(err)
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	result := ValidateDefinition(def)
	formatter.VerboseLog("Validated timeline %q: %d clip(s), %d error(s), %d warning(s)",
		result.Name, result.Clips, len(result.Errors), len(result.Warnings))

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateDefinition runs definition validation and, for a valid
// definition, static cycle analysis.
func ValidateDefinition(def *ir.Definition) ValidationResult {
	result := ValidationResult{
		Name:   def.Name,
		Clips:  countClips(def),
		Errors: compiler.Validate(def),
	}
	result.Valid = len(result.Errors) == 0
	if result.Valid {
		result.Warnings = compiler.AnalyzeCycles(def)
	}
	return result
}

// countClips counts clips in def and every nested group.
func countClips(def *ir.Definition) int {
	n := len(def.Clips)
	for _, c := range def.Clips {
		if c.Group != nil {
			n += countClips(c.Group)
		}
	}
	return n
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Timeline %q is valid (%d clip(s))\n", result.Name, result.Clips)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s (%s)\n", w.Message, strings.Join(w.Path, " → "))
	}
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.JSON() {
		if err := formatter.Encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		// Validation failures = exit code 1 (test/validation failure)
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

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
