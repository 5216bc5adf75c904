package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abitwise/express-api-test/pkg/cli/internal/output"
	"github.com/abitwise/express-api-test/pkg/scenario"
)

// ValidateResult is the outcome for one scenario file.
type ValidateResult struct {
	File      string   `json:"file"`
	Valid     bool     `json:"valid"`
	Scenarios []string `json:"scenarios,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidateOutput is the JSON output of the validate command.
type ValidateOutput struct {
	Valid bool             `json:"valid"`
	Files []ValidateResult `json:"files"`
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|glob>...",
		Short: "Validate scenario files",
		Long: `Validate loads every scenario file named by the arguments and checks it:
  - YAML or JSON syntax
  - the scenario JSON Schema (see 'handlerprobe schema')
  - timeouts, JSONPath expressions and jsonWhere conditions

Globs support ** for recursive matching. Quote them so the shell leaves them alone.`,
		Example: `  handlerprobe validate scenarios.yaml
  handlerprobe validate 'testdata/**/*.yaml'
  handlerprobe validate --json 'scenarios/*.{yaml,json}'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ValidateOutput{Valid: true, Files: []ValidateResult{}}
			for _, arg := range args {
				paths, err := scenario.Expand(arg)
				if err != nil {
					return err
				}
				if len(paths) == 0 {
					output.Warn(cmd.ErrOrStderr(), "no files match %s", arg)
					continue
				}
				for _, path := range paths {
					opts.logger.Debug("validating scenario file", "file", path)
					result := validateFile(path)
					out.Valid = out.Valid && result.Valid
					out.Files = append(out.Files, result)
				}
			}
			if len(out.Files) == 0 {
				return ErrNoScenarios
			}

			if opts.jsonOutput {
				if err := output.JSON(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			} else {
				printValidation(cmd.OutOrStdout(), out)
			}

			if !out.Valid {
				return ErrValidationFailed
			}
			return nil
		},
	}
}

func validateFile(path string) ValidateResult {
	result := ValidateResult{File: path}
	scenarios, err := scenario.LoadFile(path)
	if err != nil {
		var schemaErr *scenario.SchemaError
		if errors.As(err, &schemaErr) {
			for _, f := range schemaErr.Fields {
				result.Errors = append(result.Errors, f.String())
			}
		} else {
			result.Errors = []string{err.Error()}
		}
		return result
	}
	result.Valid = true
	for _, s := range scenarios {
		result.Scenarios = append(result.Scenarios, s.Name)
	}
	return result
}

func printValidation(w io.Writer, out ValidateOutput) {
	invalid := 0
	for _, f := range out.Files {
		if f.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", f.File, plural(len(f.Scenarios), "scenario"))
			continue
		}
		invalid++
		fmt.Fprintf(w, "✗ %s\n", f.File)
		for _, e := range f.Errors {
			fmt.Fprintf(w, "    %s\n", e)
		}
	}
	fmt.Fprintln(w)
	if invalid == 0 {
		fmt.Fprintf(w, "All %s valid.\n", plural(len(out.Files), "file"))
		return
	}
	fmt.Fprintf(w, "%d of %s invalid.\n", invalid, plural(len(out.Files), "file"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
