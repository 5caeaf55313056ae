package publisher

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestSnapshotName(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 5, 0, time.UTC)
	got := SnapshotName("/config/dashboards/plants.yaml", ts)
	want := "/config/dashboards/plants.yaml.bak-20250601-120005"
	if got != want {
		t.Errorf("SnapshotName() = %q, want %q", got, want)
	}
}

// probeRunner answers existence probes from a set and rejects everything else.
type probeRunner struct {
	exists map[string]bool
}

func (r *probeRunner) Run(ctx context.Context, cmd string) ([]byte, error) {
	if !strings.HasPrefix(cmd, "[ -e ") {
		return nil, fmt.Errorf("unexpected command %q", cmd)
	}
	path := strings.TrimPrefix(cmd, "[ -e ")
	path = strings.TrimSuffix(path, " ] && echo yes || echo no")
	if r.exists[path] {
		return []byte("yes\n"), nil
	}
	return []byte("no\n"), nil
}

func TestUniqueSnapshotPath(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	base := "/config/x.yaml.bak-20250601-120000"

	tests := []struct {
		name   string
		exists []string
		want   string
	}{
		{
			name: "base name free",
			want: base,
		},
		{
			name:   "one collision",
			exists: []string{base},
			want:   base + "-2",
		},
		{
			name:   "two collisions",
			exists: []string{base, base + "-2"},
			want:   base + "-3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &probeRunner{exists: make(map[string]bool)}
			for _, p := range tt.exists {
				runner.exists[p] = true
			}
			got, err := uniqueSnapshotPath(context.Background(), runner, "/config/x.yaml", ts)
			if err != nil {
				t.Fatalf("uniqueSnapshotPath() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("uniqueSnapshotPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

type errRunner struct{}

func (errRunner) Run(ctx context.Context, cmd string) ([]byte, error) {
	return nil, fmt.Errorf("connection lost")
}

func TestRemoteExistsTransportError(t *testing.T) {
	if _, err := remoteExists(context.Background(), errRunner{}, "/config/x"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Two backups of the same destination within the same second must produce
// distinct snapshot names.
func TestSuccessiveBackupsDoNotCollide(t *testing.T) {
	pub, host, _ := newTestSetup(t)
	host.exists["/config/dashboards/plants.yaml"] = true

	first, err := pub.Backup(context.Background(), []string{"dashboard"})
	if err != nil {
		t.Fatalf("first Backup() failed: %v", err)
	}
	second, err := pub.Backup(context.Background(), []string{"dashboard"})
	if err != nil {
		t.Fatalf("second Backup() failed: %v", err)
	}

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("backups = %d, %d, want 1 each", len(first), len(second))
	}
	if first[0].SnapshotPath == second[0].SnapshotPath {
		t.Errorf("snapshot paths collide: %q", first[0].SnapshotPath)
	}
	if !strings.HasSuffix(second[0].SnapshotPath, "-2") {
		t.Errorf("second snapshot = %q, want numeric suffix", second[0].SnapshotPath)
	}
}
