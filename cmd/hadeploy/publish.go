package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sproutops/hadeploy/internal/publisher"
	"github.com/sproutops/hadeploy/internal/watch"
)

var (
	publishArtifact   string
	publishDryRun     bool
	publishSkipBackup bool
	publishNoRestart  bool
	publishWatch      bool
	publishDebounce   time.Duration
)

func newPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish configured artifacts to the remote host",
		Long: `Publish configured artifacts to the remote Home Assistant host.

The publish command will:
  1. Resolve the local artifacts and fail if any is missing
  2. Connect to the target over SSH
  3. Snapshot each backup-enabled destination before overwriting it
  4. Upload files to a staging area and install them with elevated permissions
  5. Restart Home Assistant through its REST API

Execution is strictly sequential; the first failing step aborts the run and
everything after it, including the restart, is skipped.

Without --artifact, all configured artifacts are published.`,
		Example: `  hadeploy publish
  hadeploy publish --artifact dashboard
  hadeploy publish --artifact dashboard,plants-integration --skip-backup
  hadeploy publish --dry-run
  hadeploy publish --watch`,
		RunE: publishRun,
	}

	cmd.Flags().StringVar(&publishArtifact, "artifact", "", "comma-separated list of artifacts to publish")
	cmd.Flags().BoolVar(&publishDryRun, "dry-run", false, "show the publish plan without touching the remote host")
	cmd.Flags().BoolVar(&publishSkipBackup, "skip-backup", false, "skip remote snapshots before overwriting")
	cmd.Flags().BoolVar(&publishNoRestart, "no-restart", false, "skip the Home Assistant restart after publishing")
	cmd.Flags().BoolVar(&publishWatch, "watch", false, "republish whenever a local artifact changes")
	cmd.Flags().DurationVar(&publishDebounce, "debounce", 500*time.Millisecond, "settle time before a watched change triggers a publish")

	return cmd
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func publishRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}
	if globalPublisher == nil {
		return fmt.Errorf("publisher not initialized")
	}

	opts := publisher.Options{
		Artifacts:  splitNames(publishArtifact),
		SkipBackup: publishSkipBackup,
		NoRestart:  publishNoRestart,
	}

	if publishDryRun {
		return printPlan(opts)
	}

	// The restart step needs working credentials; fail before touching
	// the remote host rather than after the transfer.
	if globalCfg.API.Restart && !publishNoRestart {
		if _, err := requireAPI(); err != nil {
			return err
		}
	}

	if publishWatch {
		return publishWatchLoop(opts)
	}

	report, err := globalPublisher.Publish(context.Background(), opts)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func printPlan(opts publisher.Options) error {
	plan, err := globalPublisher.Plan(opts)
	if err != nil {
		return err
	}

	fmt.Printf("DRY RUN: publish to %s\n", plan.Target)
	fmt.Println()
	for i, step := range plan.Steps {
		if step.Artifact != "" {
			fmt.Printf("  %2d. %-10s %-20s %s\n", i+1, step.Kind, step.Artifact, step.Detail)
		} else {
			fmt.Printf("  %2d. %s\n", i+1, step.Kind)
		}
	}
	fmt.Println()
	fmt.Printf("Artifacts: %d\n", len(plan.Artifacts))
	fmt.Printf("Files:     %d\n", plan.TotalFiles)
	fmt.Printf("Bytes:     %s\n", formatBytes(plan.TotalBytes))
	return nil
}

func printReport(report *publisher.Report) {
	fmt.Println("\n=== PUBLISH SUMMARY ===")
	fmt.Printf("Run:       %s\n", report.RunID)
	fmt.Printf("Target:    %s\n", report.Target)
	fmt.Printf("Artifacts: %s\n", strings.Join(report.Artifacts, ", "))
	fmt.Printf("Files:     %d\n", report.FilesUploaded)
	fmt.Printf("Bytes:     %s\n", formatBytes(report.BytesUploaded))
	fmt.Printf("Restarted: %v\n", report.Restarted)
	fmt.Printf("Duration:  %s\n", report.EndTime.Sub(report.StartTime).Round(time.Millisecond))

	if len(report.Backups) > 0 {
		fmt.Println("Backups:")
		for _, b := range report.Backups {
			fmt.Printf("  - %s: %s\n", b.Artifact, b.SnapshotPath)
		}
	}
}

// publishWatchLoop publishes once up front, then republishes after each
// settled burst of local changes until interrupted.
func publishWatchLoop(opts publisher.Options) error {
	log := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	specs := globalCfg.Artifacts
	if names := opts.Artifacts; len(names) != 0 {
		specs = nil
		for _, name := range names {
			a, ok := globalCfg.FindArtifact(name)
			if !ok {
				return fmt.Errorf("artifact not configured: %q", name)
			}
			specs = append(specs, *a)
		}
	}
	paths := make([]string, 0, len(specs))
	for _, a := range specs {
		paths = append(paths, a.LocalPath)
	}

	w, err := watch.New(paths, publishDebounce, log)
	if err != nil {
		return err
	}
	defer w.Close()

	publish := func(ctx context.Context) {
		report, err := globalPublisher.Publish(ctx, opts)
		if err != nil {
			log.Error("publish failed", "error", err)
			return
		}
		printReport(report)
	}

	publish(ctx)
	log.Info("watching for changes", "paths", paths, "debounce", publishDebounce)

	if err := w.Run(ctx, publish); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
