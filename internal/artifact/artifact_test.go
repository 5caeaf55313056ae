package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plants.yaml")
	content := []byte("title: Plants\nviews: []\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := Resolve("dashboard", path)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if r.Kind != KindFile {
		t.Errorf("Kind = %q, want %q", r.Kind, KindFile)
	}
	if len(r.Files) != 1 {
		t.Fatalf("len(Files) = %d, want 1", len(r.Files))
	}

	f := r.Files[0]
	if f.RelPath != "plants.yaml" {
		t.Errorf("RelPath = %q, want %q", f.RelPath, "plants.yaml")
	}
	if f.Size != int64(len(content)) {
		t.Errorf("Size = %d, want %d", f.Size, len(content))
	}

	sum := sha256.Sum256(content)
	if want := hex.EncodeToString(sum[:]); f.SHA256 != want {
		t.Errorf("SHA256 = %q, want %q", f.SHA256, want)
	}
	if r.TotalSize != f.Size {
		t.Errorf("TotalSize = %d, want %d", r.TotalSize, f.Size)
	}
}

func TestResolveTree(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "plants")
	files := map[string]string{
		"__init__.py":        "DOMAIN = 'plants'\n",
		"sensor.py":          "# sensors\n",
		"manifest.json":      `{"domain": "plants"}`,
		"helpers/convert.py": "# helpers\n",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	r, err := Resolve("plants-integration", root)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	if r.Kind != KindTree {
		t.Errorf("Kind = %q, want %q", r.Kind, KindTree)
	}
	if len(r.Files) != len(files) {
		t.Fatalf("len(Files) = %d, want %d", len(r.Files), len(files))
	}

	// Files are sorted by relative path
	wantOrder := []string{"__init__.py", "helpers/convert.py", "manifest.json", "sensor.py"}
	for i, want := range wantOrder {
		if r.Files[i].RelPath != want {
			t.Errorf("Files[%d].RelPath = %q, want %q", i, r.Files[i].RelPath, want)
		}
	}

	var total int64
	for _, content := range files {
		total += int64(len(content))
	}
	if r.TotalSize != total {
		t.Errorf("TotalSize = %d, want %d", r.TotalSize, total)
	}
}

func TestResolveMissing(t *testing.T) {
	_, err := Resolve("dashboard", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing artifact, got nil")
	}
}

func TestResolveEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if _, err := Resolve("empty", dir); err == nil {
		t.Fatal("expected error for empty directory, got nil")
	}
}
