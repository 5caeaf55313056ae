package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	backupArtifact string
	backupList     bool
	backupLimit    int
)

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot remote artifact state without publishing",
		Long: `Snapshot the remote state of configured artifacts without publishing
anything. Each existing destination is copied aside to a timestamped
snapshot next to it. Destinations that do not exist yet are skipped.

Use --list to show previously recorded snapshots instead of taking new
ones.`,
		Example: `  hadeploy backup
  hadeploy backup --artifact dashboard
  hadeploy backup --list
  hadeploy backup --list --artifact plants-integration --limit 10`,
		RunE: backupRun,
	}

	cmd.Flags().StringVar(&backupArtifact, "artifact", "", "comma-separated list of artifacts to back up")
	cmd.Flags().BoolVar(&backupList, "list", false, "list recorded snapshots instead of taking new ones")
	cmd.Flags().IntVar(&backupLimit, "limit", 20, "maximum snapshots to list")

	return cmd
}

func backupRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if globalPublisher == nil {
		return fmt.Errorf("publisher not initialized")
	}

	if backupList {
		return backupListRun()
	}

	backups, err := globalPublisher.Backup(context.Background(), splitNames(backupArtifact))
	if err != nil {
		return err
	}

	if len(backups) == 0 {
		fmt.Println("Nothing to back up: no configured destination exists on the remote host")
		return nil
	}

	fmt.Printf("Took %d snapshot(s):\n", len(backups))
	for _, b := range backups {
		fmt.Printf("  %-20s %s\n", b.Artifact, b.SnapshotPath)
	}
	return nil
}

func backupListRun() error {
	// --list takes a single artifact name, not a comma list
	artifact := strings.TrimSpace(backupArtifact)
	if strings.Contains(artifact, ",") {
		return fmt.Errorf("--list accepts a single artifact name")
	}

	recs, err := globalStore.ListBackupRecords(artifact, backupLimit)
	if err != nil {
		return err
	}

	if len(recs) == 0 {
		fmt.Println("No snapshots recorded")
		return nil
	}

	fmt.Printf("%-20s %-19s %s\n", "Artifact", "Created", "Snapshot")
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range recs {
		fmt.Printf("%-20s %-19s %s\n",
			r.Artifact,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.SnapshotPath,
		)
	}
	return nil
}
