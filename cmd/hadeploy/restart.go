package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRestartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart Home Assistant through its REST API",
		Long: `Restart the remote Home Assistant service through its REST API without
publishing anything. Credentials are read from the configured env file.`,
		Example: `  hadeploy restart`,
		RunE:    restartRun,
	}

	return cmd
}

func restartRun(cmd *cobra.Command, args []string) error {
	api, err := requireAPI()
	if err != nil {
		return err
	}

	if err := api.Restart(context.Background()); err != nil {
		return err
	}

	fmt.Println("Restart requested")
	return nil
}
