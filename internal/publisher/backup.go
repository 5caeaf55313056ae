package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sproutops/hadeploy/internal/remote"
)

// snapshotTimeFormat embeds the creation time in the snapshot name so an
// operator can tell backups apart at a glance.
const snapshotTimeFormat = "20060102-150405"

// SnapshotName derives the snapshot path for a destination about to be
// overwritten.
func SnapshotName(dest string, t time.Time) string {
	return dest + ".bak-" + t.Format(snapshotTimeFormat)
}

// remoteExists probes for a path on the remote host. The probe command
// always exits zero so transport failures stay distinguishable from a
// missing path.
func remoteExists(ctx context.Context, r remote.Runner, path string) (bool, error) {
	cmd := fmt.Sprintf("[ -e %s ] && echo yes || echo no", remote.Quote(path))
	out, err := r.Run(ctx, cmd)
	if err != nil {
		return false, fmt.Errorf("probe %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)) == "yes", nil
}

// uniqueSnapshotPath returns a snapshot path that does not exist on the
// remote host. Two publishes within the same second get distinct names via
// a numeric suffix.
func uniqueSnapshotPath(ctx context.Context, r remote.Runner, dest string, t time.Time) (string, error) {
	base := SnapshotName(dest, t)
	candidate := base
	for n := 2; ; n++ {
		exists, err := remoteExists(ctx, r, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// backupRemote copies the existing destination aside before the overwrite.
// Returns ok=false when there is nothing to back up. A failed copy aborts
// the caller's sequence before any data loss.
func (p *Publisher) backupRemote(ctx context.Context, r remote.Runner, artifactName, dest string) (BackupInfo, bool, error) {
	exists, err := remoteExists(ctx, r, dest)
	if err != nil {
		return BackupInfo{}, false, err
	}
	if !exists {
		p.logger.Debug("no prior state to back up", "artifact", artifactName, "path", dest)
		return BackupInfo{}, false, nil
	}

	snap, err := uniqueSnapshotPath(ctx, r, dest, p.now())
	if err != nil {
		return BackupInfo{}, false, err
	}

	cmd := remote.Command(p.cfg.Target.Sudo, "cp", "-a", dest, snap)
	if _, err := r.Run(ctx, cmd); err != nil {
		return BackupInfo{}, false, fmt.Errorf("backup %s: %w", dest, err)
	}

	p.logger.Info("backup taken", "artifact", artifactName, "snapshot", snap)
	return BackupInfo{
		Artifact:     artifactName,
		RemotePath:   dest,
		SnapshotPath: snap,
	}, true, nil
}
