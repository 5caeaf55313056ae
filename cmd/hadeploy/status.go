package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	statusLimit  int
	statusFailed bool
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display recent publish runs",
		Long: `Display recent publish runs recorded in the local history database.
Shows the target, file counts, backups, restart outcome, and any error
message for failed runs.`,
		Example: `  hadeploy status
  hadeploy status --limit 5
  hadeploy status --failed`,
		RunE: statusRun,
	}

	cmd.Flags().IntVar(&statusLimit, "limit", 10, "maximum runs to show")
	cmd.Flags().BoolVar(&statusFailed, "failed", false, "show only failed runs")

	return cmd
}

func statusRun(cmd *cobra.Command, args []string) error {
	if globalStore == nil {
		return fmt.Errorf("store not initialized")
	}

	runs, err := globalStore.ListPublishRuns(statusLimit)
	if err != nil {
		return err
	}

	if statusFailed {
		filtered := runs[:0]
		for _, r := range runs {
			if r.Status == "failed" {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}

	if len(runs) == 0 {
		fmt.Println("No publish runs recorded")
		return nil
	}

	fmt.Println("Publish History")
	fmt.Println("===============")
	fmt.Println("")
	fmt.Printf("%-10s %-22s %-8s %7s %10s %8s %9s %-16s\n",
		"Run", "Target", "Status", "Files", "Size", "Backups", "Restarted", "Started")
	fmt.Println(strings.Repeat("-", 100))

	for _, r := range runs {
		restarted := "no"
		if r.Restarted {
			restarted = "yes"
		}
		fmt.Printf("%-10s %-22s %-8s %7d %10s %8d %9s %-16s\n",
			r.RunID,
			r.Target,
			r.Status,
			r.FilesUploaded,
			formatBytes(r.BytesUploaded),
			r.BackupsTaken,
			restarted,
			r.StartTime.Format("2006-01-02 15:04"),
		)
		if r.Status == "failed" && r.ErrorMessage != "" {
			fmt.Printf("           error: %s\n", r.ErrorMessage)
		}
	}

	fmt.Println("")
	return nil
}

// formatBytes formats a byte count into human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
