package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// QualityCmds returns the test, lint and integration-test commands.
func QualityCmds() []*cobra.Command {
	return []*cobra.Command{
		qualityCmd("test", "Run unit tests", "tests", test.Test),
		qualityCmd("lint", "Run linters", "linting", test.Lint),
		qualityCmd("integration-test", "Run tests against attached hardware", "integration tests", test.Integ),
	}
}

func qualityCmd(use, short, what string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run()
			if err != nil {
				return fmt.Errorf("%s failed: %w", what, err)
			}
			return nil
		},
	}
}
