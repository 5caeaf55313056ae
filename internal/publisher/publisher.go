// Package publisher orchestrates the publish sequence: resolve local
// artifacts, connect, back up, stage, install, restart. Execution is
// strictly sequential and fail-fast; everything after a failing step is
// skipped, including the restart call.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/sproutops/hadeploy/internal/artifact"
	"github.com/sproutops/hadeploy/internal/config"
	"github.com/sproutops/hadeploy/internal/remote"
	"github.com/sproutops/hadeploy/internal/safety"
	"github.com/sproutops/hadeploy/internal/store"
)

// Transport is one live connection to the target host. *remote.Client
// satisfies it; tests substitute fakes.
type Transport interface {
	remote.Runner
	NewUploader() (remote.Uploader, error)
	Close() error
}

// Dialer opens a connection to the target host.
type Dialer func() (Transport, error)

// Restarter issues the service-restart call after a successful transfer.
type Restarter interface {
	Restart(ctx context.Context) error
}

// Publisher executes publish runs against a single configured target.
type Publisher struct {
	cfg       *config.Config
	store     *store.Store
	dial      Dialer
	restarter Restarter
	logger    *slog.Logger

	// overridable for tests
	now      func() time.Time
	newRunID func() string
}

// New creates a Publisher. restarter may be nil when the restart step is
// disabled in config.
func New(cfg *config.Config, st *store.Store, dial Dialer, restarter Restarter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg:       cfg,
		store:     st,
		dial:      dial,
		restarter: restarter,
		logger:    logger,
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString()[:8] },
	}
}

// selectSpecs returns the requested subset of configured artifacts, or
// all of them when names is empty.
func (p *Publisher) selectSpecs(names []string) ([]config.Artifact, error) {
	var specs []config.Artifact
	if len(names) == 0 {
		specs = p.cfg.Artifacts
	} else {
		for _, name := range names {
			a, ok := p.cfg.FindArtifact(name)
			if !ok {
				return nil, fmt.Errorf("artifact not configured: %q", name)
			}
			specs = append(specs, *a)
		}
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("no artifacts configured")
	}
	return specs, nil
}

// selectArtifacts resolves the requested subset (or all configured
// artifacts) against the local filesystem. A missing or unreadable
// artifact fails here, before any remote mutation.
func (p *Publisher) selectArtifacts(names []string) ([]*artifact.Resolved, []config.Artifact, error) {
	specs, err := p.selectSpecs(names)
	if err != nil {
		return nil, nil, err
	}

	resolved := make([]*artifact.Resolved, 0, len(specs))
	for _, spec := range specs {
		r, err := artifact.Resolve(spec.Name, spec.LocalPath)
		if err != nil {
			return nil, nil, err
		}
		resolved = append(resolved, r)
	}
	return resolved, specs, nil
}

// Plan builds the ordered step list without touching the remote host.
func (p *Publisher) Plan(opts Options) (*Plan, error) {
	resolved, specs, err := p.selectArtifacts(opts.Artifacts)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		RunID:     p.newRunID(),
		Target:    p.cfg.Target.Addr(),
		Artifacts: resolved,
		Timestamp: p.now(),
	}

	for i, r := range resolved {
		spec := specs[i]
		dest, err := safety.CleanRemotePath(spec.RemotePath)
		if err != nil {
			return nil, fmt.Errorf("artifact %q: %w", spec.Name, err)
		}

		plan.Steps = append(plan.Steps, Step{
			Kind:     StepEnsureDir,
			Artifact: spec.Name,
			Detail:   path.Dir(dest),
		})

		if spec.Backup && !opts.SkipBackup {
			plan.Steps = append(plan.Steps, Step{
				Kind:     StepBackup,
				Artifact: spec.Name,
				Detail:   dest,
			})
		}

		for _, f := range r.Files {
			plan.Steps = append(plan.Steps, Step{
				Kind:     StepUpload,
				Artifact: spec.Name,
				Detail:   f.RelPath,
			})
			plan.TotalFiles++
			plan.TotalBytes += f.Size
		}

		plan.Steps = append(plan.Steps, Step{
			Kind:     StepInstall,
			Artifact: spec.Name,
			Detail:   dest,
		})
	}

	if p.cfg.API.Restart && !opts.NoRestart {
		plan.Restart = true
		plan.Steps = append(plan.Steps, Step{Kind: StepRestart})
	}

	return plan, nil
}

// Publish executes the full sequence. The run is recorded in the store
// regardless of outcome so interleaved or failed runs stay visible.
func (p *Publisher) Publish(ctx context.Context, opts Options) (*Report, error) {
	plan, err := p.Plan(opts)
	if err != nil {
		return nil, err
	}

	startTime := p.now()
	run := &store.PublishRun{
		RunID:         plan.RunID,
		Target:        plan.Target,
		StartTime:     startTime,
		ArtifactCount: len(plan.Artifacts),
		Status:        "running",
	}
	if err := p.store.CreatePublishRun(run); err != nil {
		return nil, fmt.Errorf("failed to create publish run: %w", err)
	}

	report := &Report{
		RunID:     plan.RunID,
		Target:    plan.Target,
		StartTime: startTime,
	}
	for _, r := range plan.Artifacts {
		report.Artifacts = append(report.Artifacts, r.Name)
	}

	fail := func(err error) (*Report, error) {
		run.Status = "failed"
		run.ErrorMessage = err.Error()
		run.EndTime = p.now()
		run.FilesUploaded = report.FilesUploaded
		run.BytesUploaded = report.BytesUploaded
		run.BackupsTaken = len(report.Backups)
		if uerr := p.store.UpdatePublishRun(run); uerr != nil {
			p.logger.Error("failed to update publish run record", "error", uerr)
		}
		return nil, err
	}

	p.logger.Info("starting publish",
		"run_id", plan.RunID,
		"target", plan.Target,
		"artifacts", report.Artifacts,
		"files", plan.TotalFiles,
		"bytes", plan.TotalBytes,
	)

	// Connect. An unreachable host fails here: no backup, no overwrite.
	conn, err := p.dial()
	if err != nil {
		return fail(fmt.Errorf("connect to %s: %w", plan.Target, err))
	}
	defer conn.Close()

	uploader, err := conn.NewUploader()
	if err != nil {
		return fail(err)
	}
	defer uploader.Close()

	home, err := uploader.Home()
	if err != nil {
		return fail(err)
	}
	stagingRoot := safety.RemoteJoin(home, p.cfg.Staging.RemoteDir, plan.RunID)

	for _, r := range plan.Artifacts {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if err := p.publishArtifact(ctx, conn, uploader, stagingRoot, r, run, report, opts); err != nil {
			return fail(err)
		}
	}

	// Staging cleanup is best-effort; leftovers are harmless and the
	// next run stages under a fresh run ID anyway.
	if _, err := conn.Run(ctx, remote.Command(false, "rm", "-rf", stagingRoot)); err != nil {
		p.logger.Warn("failed to remove staging directory", "path", stagingRoot, "error", err)
	}

	// Restart only after every transfer step succeeded.
	if plan.Restart && p.restarter != nil {
		if err := p.restarter.Restart(ctx); err != nil {
			return fail(fmt.Errorf("restart: %w", err))
		}
		report.Restarted = true
	}

	report.EndTime = p.now()
	run.Status = "success"
	run.EndTime = report.EndTime
	run.FilesUploaded = report.FilesUploaded
	run.BytesUploaded = report.BytesUploaded
	run.BackupsTaken = len(report.Backups)
	run.Restarted = report.Restarted
	if err := p.store.UpdatePublishRun(run); err != nil {
		p.logger.Error("failed to update publish run record", "error", err)
	}

	p.logger.Info("publish completed",
		"run_id", plan.RunID,
		"files_uploaded", report.FilesUploaded,
		"bytes_uploaded", report.BytesUploaded,
		"backups", len(report.Backups),
		"restarted", report.Restarted,
		"duration", report.EndTime.Sub(report.StartTime),
	)

	return report, nil
}

// publishArtifact runs the per-artifact sequence: ensure destination
// parent, optional backup, stage uploads, install.
func (p *Publisher) publishArtifact(
	ctx context.Context,
	conn Transport,
	uploader remote.Uploader,
	stagingRoot string,
	r *artifact.Resolved,
	run *store.PublishRun,
	report *Report,
	opts Options,
) error {
	spec, ok := p.cfg.FindArtifact(r.Name)
	if !ok {
		return fmt.Errorf("artifact not configured: %q", r.Name)
	}
	dest, err := safety.CleanRemotePath(spec.RemotePath)
	if err != nil {
		return fmt.Errorf("artifact %q: %w", r.Name, err)
	}
	sudo := p.cfg.Target.Sudo

	// mkdir -p is idempotent; an existing parent is not an error
	parent := path.Dir(dest)
	if _, err := conn.Run(ctx, remote.Command(sudo, "mkdir", "-p", parent)); err != nil {
		return fmt.Errorf("ensure directory %s: %w", parent, err)
	}

	if spec.Backup && !opts.SkipBackup {
		info, taken, err := p.backupRemote(ctx, conn, r.Name, dest)
		if err != nil {
			return err
		}
		if taken {
			report.Backups = append(report.Backups, info)
			rec := &store.BackupRecord{
				Artifact:     info.Artifact,
				RemotePath:   info.RemotePath,
				SnapshotPath: info.SnapshotPath,
				CreatedAt:    p.now(),
				PublishRunID: run.ID,
			}
			if err := p.store.AddBackupRecord(rec); err != nil {
				p.logger.Error("failed to record backup", "artifact", r.Name, "error", err)
			}
		}
	}

	// Stage uploads under the run's staging directory
	stagingDir := safety.RemoteJoin(stagingRoot, r.Name)
	if err := uploader.MkdirAll(stagingDir); err != nil {
		return err
	}

	for _, f := range r.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		staged, err := safety.RemoteRelJoin(stagingDir, f.RelPath)
		if err != nil {
			return fmt.Errorf("artifact %q: %w", r.Name, err)
		}
		if err := uploader.Upload(f.LocalPath, staged); err != nil {
			return fmt.Errorf("upload %s: %w", f.RelPath, err)
		}

		report.FilesUploaded++
		report.BytesUploaded += f.Size
		rec := &store.UploadRecord{
			Artifact:     r.Name,
			Path:         f.RelPath,
			Size:         f.Size,
			SHA256:       f.SHA256,
			UploadedAt:   p.now(),
			PublishRunID: run.ID,
		}
		if err := p.store.AddUploadRecord(rec); err != nil {
			p.logger.Error("failed to record upload", "artifact", r.Name, "path", f.RelPath, "error", err)
		}
	}

	// Install: last writer wins, no conflict detection
	switch r.Kind {
	case artifact.KindFile:
		staged := safety.RemoteJoin(stagingDir, r.Files[0].RelPath)
		if _, err := conn.Run(ctx, remote.Command(sudo, "cp", staged, dest)); err != nil {
			return fmt.Errorf("install %s: %w", dest, err)
		}
	case artifact.KindTree:
		// Fully replace prior contents of the destination directory
		if _, err := conn.Run(ctx, remote.Command(sudo, "rm", "-rf", dest)); err != nil {
			return fmt.Errorf("clear %s: %w", dest, err)
		}
		if _, err := conn.Run(ctx, remote.Command(sudo, "cp", "-a", stagingDir, dest)); err != nil {
			return fmt.Errorf("install %s: %w", dest, err)
		}
	default:
		return fmt.Errorf("artifact %q: unknown kind %q", r.Name, r.Kind)
	}

	p.logger.Info("artifact installed", "artifact", r.Name, "dest", dest, "files", len(r.Files))
	return nil
}

// Backup takes snapshots of the configured artifacts' remote state without
// publishing anything. Local artifact presence is not required here; only
// the remote state matters.
func (p *Publisher) Backup(ctx context.Context, names []string) ([]BackupInfo, error) {
	specs, err := p.selectSpecs(names)
	if err != nil {
		return nil, err
	}

	conn, err := p.dial()
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", p.cfg.Target.Addr(), err)
	}
	defer conn.Close()

	var backups []BackupInfo
	for _, spec := range specs {
		dest, err := safety.CleanRemotePath(spec.RemotePath)
		if err != nil {
			return backups, fmt.Errorf("artifact %q: %w", spec.Name, err)
		}
		info, taken, err := p.backupRemote(ctx, conn, spec.Name, dest)
		if err != nil {
			return backups, err
		}
		if !taken {
			continue
		}
		backups = append(backups, info)
		rec := &store.BackupRecord{
			Artifact:     info.Artifact,
			RemotePath:   info.RemotePath,
			SnapshotPath: info.SnapshotPath,
			CreatedAt:    p.now(),
		}
		if err := p.store.AddBackupRecord(rec); err != nil {
			p.logger.Error("failed to record backup", "artifact", spec.Name, "error", err)
		}
	}

	return backups, nil
}

// Preflight checks the publish preconditions without mutating anything:
// local artifacts resolve, the SSH target answers, and (when a restarter
// is configured) the API responds to a ping. Artifact payloads are not
// inspected.
func (p *Publisher) Preflight(ctx context.Context, names []string, pinger interface {
	Ping(ctx context.Context) error
}) error {
	if _, _, err := p.selectArtifacts(names); err != nil {
		return err
	}

	conn, err := p.dial()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", p.cfg.Target.Addr(), err)
	}
	defer conn.Close()

	if _, err := conn.Run(ctx, "true"); err != nil {
		return fmt.Errorf("remote execution check: %w", err)
	}

	if pinger != nil {
		if err := pinger.Ping(ctx); err != nil {
			return fmt.Errorf("api check: %w", err)
		}
	}

	return nil
}
