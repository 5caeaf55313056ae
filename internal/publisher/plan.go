package publisher

import (
	"time"

	"github.com/sproutops/hadeploy/internal/artifact"
)

// StepKind identifies one step in the publish sequence
type StepKind string

const (
	StepEnsureDir StepKind = "ensure-dir"
	StepBackup    StepKind = "backup"
	StepUpload    StepKind = "upload"
	StepInstall   StepKind = "install"
	StepRestart   StepKind = "restart"
)

// Step is a single planned operation. Steps execute strictly in order and
// the sequence aborts at the first failure.
type Step struct {
	Kind     StepKind
	Artifact string // empty for the restart step
	Detail   string // human-readable, e.g. the destination path
}

// Plan is the ordered step list for one publish, produced without touching
// the remote host.
type Plan struct {
	RunID      string
	Target     string
	Steps      []Step
	Artifacts  []*artifact.Resolved
	TotalFiles int
	TotalBytes int64
	Restart    bool
	Timestamp  time.Time
}

// BackupInfo describes one snapshot taken during a run
type BackupInfo struct {
	Artifact     string
	RemotePath   string
	SnapshotPath string
}

// Report is the result of a publish run
type Report struct {
	RunID         string
	Target        string
	StartTime     time.Time
	EndTime       time.Time
	Artifacts     []string
	FilesUploaded int
	BytesUploaded int64
	Backups       []BackupInfo
	Restarted     bool
}

// Options controls a publish run
type Options struct {
	// Artifacts selects a subset by name; empty means all configured.
	Artifacts  []string
	SkipBackup bool
	NoRestart  bool
}
