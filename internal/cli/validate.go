package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replica/internal/scene"
	"github.com/roach88/replica/internal/schema"
)

// ValidationIssue is one problem found in a schema directory.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// ClassSummary describes one compiled component class.
type ClassSummary struct {
	Name       string `json:"name"`
	Hash       string `json:"hash"`
	Attributes int    `json:"attributes"`
	Network    int    `json:"network"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Files   int               `json:"files"`
	Classes []ClassSummary    `json:"classes,omitempty"`
	Errors  []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate component schemas",
		Long: `Compile the CUE component schemas of a directory and register them next
to the built-in classes.

Reports unknown attribute types, defaults that do not fit their type,
duplicate names and type hash collisions.

Exit codes:
  0 - All schemas valid
  1 - One or more schemas invalid
  2 - Command error (directory not found, no CUE files, etc.)

Examples:
  replica validate ./schema
  replica validate ./schema --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := schema.LoadDir(dir)
	if loadResult == nil {
		issue := issueFromError(loadErrors[0])
		_ = formatter.Error(ErrCodeNotFound, issue.Message, nil)
		// Load errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, issue.Message)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, dir)

	issues := make([]ValidationIssue, 0, len(loadErrors))
	for _, err := range loadErrors {
		issues = append(issues, issueFromError(err))
	}
	if len(issues) == 0 && len(loadResult.Classes) == 0 {
		issues = append(issues, ValidationIssue{
			Code:    ErrCodeSchema,
			Field:   "component",
			Message: "no component classes found",
		})
	}
	if len(issues) == 0 {
		if err := schema.Register(scene.DefaultRegistry(), loadResult.Classes); err != nil {
			issues = append(issues, issueFromError(err))
		}
	}

	result := ValidationResult{
		Valid:  len(issues) == 0,
		Files:  loadResult.FileCount,
		Errors: issues,
	}
	if result.Valid {
		for _, c := range loadResult.Classes {
			net := 0
			for _, a := range c.Attributes {
				if a.Net {
					net++
				}
			}
			formatter.VerboseLog("Class %s: %d attribute(s)", c.Name, len(c.Attributes))
			result.Classes = append(result.Classes, ClassSummary{
				Name:       c.Name,
				Hash:       c.Hash.String(),
				Attributes: len(c.Attributes),
				Network:    net,
			})
		}
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// issueFromError converts a schema error, keeping its source position.
func issueFromError(err error) ValidationIssue {
	var cErr *schema.CompileError
	if !errors.As(err, &cErr) {
		return ValidationIssue{Code: ErrCodeSchema, Message: err.Error()}
	}
	issue := ValidationIssue{
		Code:    ErrCodeSchema,
		Field:   cErr.Field,
		Message: cErr.Message,
	}
	if pos := cErr.Pos; pos.IsValid() {
		issue.File = pos.Filename()
		issue.Line = pos.Line()
		issue.Column = pos.Column()
	}
	return issue
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	for _, c := range result.Classes {
		fmt.Fprintf(formatter.Writer, "  %-20s %s  %d attribute(s), %d networked\n", c.Name, c.Hash, c.Attributes, c.Network)
	}
	fmt.Fprintf(formatter.Writer, "✓ All schemas valid (%d class(es) in %d file(s))\n", len(result.Classes), result.Files)
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := formatter.Respond(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", err.File, err.Line, err.Column)
		}
		if err.Field != "" {
			fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
		} else {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
		}
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
