// Package artifact resolves configured artifacts against the local
// filesystem. An artifact is either a single file (a dashboard document)
// or a directory tree (a custom integration). No payload inspection
// happens here: the artifact's content is trusted as-is.
package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Kind distinguishes single-file artifacts from directory trees.
type Kind string

const (
	KindFile Kind = "file"
	KindTree Kind = "tree"
)

// File is one local file belonging to an artifact.
type File struct {
	// RelPath is the slash-separated path relative to the artifact root.
	// For single-file artifacts it is the base name.
	RelPath   string
	LocalPath string
	Size      int64
	SHA256    string
}

// Resolved is an artifact checked against the local filesystem.
type Resolved struct {
	Name      string
	Kind      Kind
	Root      string // absolute local path
	Files     []File
	TotalSize int64
}

// Resolve stats the artifact path and enumerates its files. A missing or
// unreadable artifact is an error; the publish sequence must stop before
// touching the remote side.
func Resolve(name, localPath string) (*Resolved, error) {
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return nil, fmt.Errorf("resolving artifact path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("artifact %q not readable at %s: %w", name, localPath, err)
	}

	r := &Resolved{Name: name, Root: abs}

	if !info.IsDir() {
		f, err := describeFile(abs, filepath.Base(abs), info.Size())
		if err != nil {
			return nil, fmt.Errorf("artifact %q: %w", name, err)
		}
		r.Kind = KindFile
		r.Files = []File{f}
		r.TotalSize = f.Size
		return r, nil
	}

	r.Kind = KindTree
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		f, err := describeFile(path, filepath.ToSlash(rel), fi.Size())
		if err != nil {
			return err
		}
		r.Files = append(r.Files, f)
		r.TotalSize += f.Size
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("artifact %q: walking %s: %w", name, localPath, err)
	}

	if len(r.Files) == 0 {
		return nil, fmt.Errorf("artifact %q: directory %s contains no files", name, localPath)
	}

	// Deterministic order for plans, logs, and upload manifests
	sort.Slice(r.Files, func(i, j int) bool { return r.Files[i].RelPath < r.Files[j].RelPath })

	return r, nil
}

func describeFile(path, rel string, size int64) (File, error) {
	sum, err := checksumFile(path)
	if err != nil {
		return File{}, fmt.Errorf("checksum %s: %w", rel, err)
	}
	return File{
		RelPath:   rel,
		LocalPath: path,
		Size:      size,
		SHA256:    sum,
	}, nil
}

// checksumFile computes the SHA256 hex digest of a file.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
