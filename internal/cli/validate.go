package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/codecraft/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Templates int                        `json:"templates"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <rituals-dir>",
		Short: "Validate a directory of CUE ritual templates",
		Long: `Validate a directory of CUE ritual templates.

Every template is checked for a lower snake_case name, non-empty text and a
name that no other template (built-in or in the directory) already uses.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := compiler.LoadDir(dir)
	if err != nil {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		var compileErr *compiler.CompileError
		if errors.As(err, &compileErr) {
			return outputValidationErrors(formatter, []compiler.ValidationError{{
				Field:   compileErr.Field,
				Message: err.Error(),
				Code:    ErrCodeGeneric,
			}})
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)
	if len(loaded.Templates) == 0 {
		return outputValidateError(formatter, ErrCodeGeneric, fmt.Sprintf("no rituals found in %s", dir))
	}
	for _, t := range loaded.Templates {
		formatter.VerboseLog("Validating ritual: %s", t.Name)
	}

	builtin, err := compiler.Builtin()
	if err != nil {
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}
	// Built-ins go first so a clash is reported against the directory's template.
	templates := append(builtin.Templates(), loaded.Templates...)
	if errs := compiler.Validate(templates); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	return outputValidateSuccess(formatter, len(loaded.Templates))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, count int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Templates: count})
	}

	fmt.Fprintf(formatter.Writer, "✓ All rituals valid (%d template(s))\n", count)
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
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

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
