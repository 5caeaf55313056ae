package store

import "time"

// PublishRun records one publish execution against a target
type PublishRun struct {
	ID            int64
	RunID         string // uuid, also names the remote staging directory
	Target        string // host:port
	StartTime     time.Time
	EndTime       time.Time
	ArtifactCount int
	FilesUploaded int
	BytesUploaded int64
	BackupsTaken  int
	Restarted     bool
	Status        string // "running", "success", "failed"
	ErrorMessage  string
}

// UploadRecord tracks one file placed on the remote host
type UploadRecord struct {
	ID           int64
	Artifact     string
	Path         string // relative to the artifact root
	Size         int64
	SHA256       string
	UploadedAt   time.Time
	PublishRunID int64
}

// BackupRecord tracks a remote snapshot taken before an overwrite.
// Snapshots are never pruned or restored automatically; this table is the
// operator's index for manual restores.
type BackupRecord struct {
	ID           int64
	Artifact     string
	RemotePath   string // the path that was about to be overwritten
	SnapshotPath string // where the prior state was copied
	CreatedAt    time.Time
	PublishRunID int64
}
