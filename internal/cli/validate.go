package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/requery/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Queries int                        `json:"queries"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <queries-dir>",
		Short: "Validate queries without planning them",
		Long: `Validate the queries of a CUE package without compiling plans.

Reports directives that cannot be built plus tree-wide problems such as
conflicting locales, price ordering without a price filter and facet
rules that can never apply. All errors are collected.`,
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
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadQueries(dir)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return outputValidateError(formatter, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	validationErrors := validateAll(loadResult, formatter)
	for _, err := range loadErrors {
		validationErrors = append(validationErrors, toValidationError(err))
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}
	return outputValidateSuccess(formatter, len(loadResult.Queries))
}

// validateAll runs the tree-wide checks on every compiled query. Line
// numbers point at the query's declaration.
func validateAll(loadResult *LoadResult, formatter *OutputFormatter) []compiler.ValidationError {
	var all []compiler.ValidationError
	for _, c := range loadResult.Queries {
		formatter.VerboseLog("Validating query: %s", c.Name)
		errs := compiler.Validate(c)
		if c.Pos.IsValid() {
			for i := range errs {
				errs[i].Line = c.Pos.Line()
			}
		}
		all = append(all, errs...)
	}
	return all
}

func toValidationError(err error) compiler.ValidationError {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		ve := compiler.ValidationError{Field: "load", Message: loadErr.Message, Code: loadErr.Code}
		if loadErr.Pos.IsValid() {
			ve.Line = loadErr.Pos.Line()
		}
		return ve
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, queries int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Queries: queries})
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d query(s) valid\n", queries)
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		if err := formatter.Respond(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
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

// ValidateQueriesDir validates all queries in a directory without output.
func ValidateQueriesDir(dir string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadQueries(dir)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	errs := validateAll(loadResult, silent)
	for _, err := range loadErrors {
		errs = append(errs, toValidationError(err))
	}
	return errs, nil
}
