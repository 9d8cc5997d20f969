package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/storygram/internal/compiler"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Worlds []string
}

// FileError is a validation error found in a specific file.
type FileError struct {
	File string `json:"file"`
	compiler.ValidationError
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool        `json:"valid"`
	Files       int         `json:"files"`
	Productions int         `json:"productions"`
	Errors      []FileError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <productions.json>...",
		Short: "Validate production and world documents",
		Long: `Validate productions files against the document schema and the
production rules: unique titles, a loadable left-hand side, resolvable
references, well-formed expressions and instruction parameters.

World files given with --world are checked against the schema and loaded.

Exit codes:
  0 - All documents valid
  1 - Validation errors found
  2 - Command error (unreadable file, etc.)

Examples:
  storygram validate productions.json
  storygram validate core.json quests.json --world world.json
  storygram validate productions.json --format json`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && len(opts.Worlds) == 0 {
				return NewExitError(ExitCommandError, "nothing to validate: give productions files or --world")
			}
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Worlds, "world", nil, "world document to validate (repeatable)")

	return cmd
}

func runValidate(opts *ValidateOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	sv, err := compiler.NewSchemaValidator()
	if err != nil {
		return formatter.Report(commandError(ErrCodeGeneric, "failed to build schema", err))
	}

	result := ValidationResult{}
	for _, path := range files {
		data, err := readInput(path)
		if err != nil {
			return formatter.Report(err)
		}
		docs, errs := compiler.CheckProductions(sv, path, data)
		formatter.VerboseLog("%s: %d production(s), %d error(s)", path, len(docs), len(errs))
		result.Files++
		result.Productions += len(docs)
		result.Errors = appendFileErrors(result.Errors, path, errs)
	}
	for _, path := range opts.Worlds {
		data, err := readInput(path)
		if err != nil {
			return formatter.Report(err)
		}
		w, errs := compiler.CheckWorld(sv, path, data)
		if w != nil {
			formatter.VerboseLog("%s: %d node(s)", path, w.Len())
		}
		result.Files++
		result.Errors = appendFileErrors(result.Errors, path, errs)
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, commandError(ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
	}
	if err != nil {
		return nil, commandError(ErrCodeInvalidInput, fmt.Sprintf("failed to read %s", path), err)
	}
	return data, nil
}

func appendFileErrors(dst []FileError, file string, errs []compiler.ValidationError) []FileError {
	for _, e := range errs {
		dst = append(dst, FileError{File: file, ValidationError: e})
	}
	return dst
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All documents valid (%d file(s), %d production(s))\n", result.Files, result.Productions)
	return nil
}

// outputValidationErrors outputs every validation error.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	// Validation failures = exit code 1 (test/validation failure)
	exitErr := outcomeError(result.Errors[0].Code, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.IsJSON() {
		if err := formatter.Failure(result, exitErr.ErrCode, result.Errors[0].Message); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "%s\n", e.File)
		fmt.Fprintf(formatter.Writer, "  %s\n\n", e.ValidationError.Error())
	}

	return exitErr
}
