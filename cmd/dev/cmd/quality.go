package cmd

import (
	"fmt"
	"log/slog"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// TestCmd runs the unit tests. Everything runs against mocks, no bus is needed.
func TestCmd() *cobra.Command {
	return qualityCmd("test", "Run unit tests", "tests", test.Test)
}

func LintCmd() *cobra.Command {
	return qualityCmd("lint", "Run linting", "linting", test.Lint)
}

// IntegrationTestCmd runs the tests tagged for real hardware attached to the host.
func IntegrationTestCmd() *cobra.Command {
	return qualityCmd("integration-test", "Run tests against an attached MPU9250", "integration testing", test.Integ)
}

func qualityCmd(use, short, what string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Debug("running " + what)
			if err := run(); err != nil {
				return fmt.Errorf("failed to run %s: %w", what, err)
			}
			return nil
		},
	}
}
