package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	validateArtifact string
	validateSkipAPI  bool
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check publish preconditions without changing anything",
		Long: `Check the publish preconditions without mutating local or remote state:

  1. Every selected artifact resolves on the local filesystem
  2. The SSH target accepts a connection and executes commands
  3. The Home Assistant API answers with the configured credentials

Artifact contents are not inspected; a well-formed publish of a broken
dashboard is still a successful publish.`,
		Example: `  hadeploy validate
  hadeploy validate --artifact dashboard
  hadeploy validate --skip-api`,
		RunE: validateRun,
	}

	cmd.Flags().StringVar(&validateArtifact, "artifact", "", "comma-separated list of artifacts to check")
	cmd.Flags().BoolVar(&validateSkipAPI, "skip-api", false, "skip the Home Assistant API check")

	return cmd
}

func validateRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if globalPublisher == nil {
		return fmt.Errorf("publisher not initialized")
	}

	var pinger interface {
		Ping(ctx context.Context) error
	}
	if !validateSkipAPI {
		api, err := requireAPI()
		if err != nil {
			return err
		}
		pinger = api
	}

	if err := globalPublisher.Preflight(context.Background(), splitNames(validateArtifact), pinger); err != nil {
		return err
	}

	fmt.Println("All checks passed")
	return nil
}
