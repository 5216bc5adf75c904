package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abitwise/express-api-test/pkg/cli/internal/output"
	"github.com/abitwise/express-api-test/pkg/scenario"
)

func newInspectCmd(opts *globalOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "inspect <file|glob>...",
		Short: "Print scenarios as they will be applied",
		Long: `Inspect loads scenario files and prints the scenarios after environment
expansion, as YAML or, with --json, as JSON.`,
		Example: `  handlerprobe inspect scenarios.yaml
  API_USER=tobi handlerprobe inspect --name "get user" scenarios.yaml
  handlerprobe inspect --json 'testdata/**/*.yaml'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.logger.Debug("loading scenarios", "patterns", args)
			scenarios, err := scenario.Load(args...)
			if err != nil {
				return err
			}

			if name != "" {
				var matched []scenario.Scenario
				for _, s := range scenarios {
					if s.Name == name {
						matched = append(matched, s)
					}
				}
				if len(matched) == 0 {
					return fmt.Errorf("scenario %q: %w", name, ErrNoScenarios)
				}
				scenarios = matched
			}
			if len(scenarios) == 0 {
				return ErrNoScenarios
			}

			if opts.jsonOutput {
				return output.JSON(cmd.OutOrStdout(), scenarios)
			}
			return output.YAML(cmd.OutOrStdout(), scenarios)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Only print the scenario with this name")
	return cmd
}
