package safety

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// CleanRelativePath validates and normalizes a relative local path.
// Absolute paths and parent traversal segments are rejected.
func CleanRelativePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is empty")
	}

	clean := filepath.Clean(filepath.FromSlash(p))
	if clean == "." {
		return "", fmt.Errorf("path resolves to current directory")
	}
	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("absolute paths are not allowed: %q", p)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("parent traversal is not allowed: %q", p)
	}
	return clean, nil
}

// EnsureUnderRoot verifies candidate resolves under root and returns
// an absolute normalized path.
func EnsureUnderRoot(root, candidate string) (string, error) {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	candAbs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("resolve candidate: %w", err)
	}

	rel, err := filepath.Rel(rootAbs, candAbs)
	if err != nil {
		return "", fmt.Errorf("compare paths: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root: %q", candidate)
	}
	return candAbs, nil
}

// RemoteJoin joins path elements for the remote host. Remote paths are
// always POSIX slash-separated regardless of the local OS separator.
func RemoteJoin(elem ...string) string {
	parts := make([]string, len(elem))
	for i, e := range elem {
		parts[i] = filepath.ToSlash(e)
	}
	return path.Join(parts...)
}

// CleanRemotePath validates a remote destination path. Destinations must
// be absolute so a misconfigured artifact cannot land relative to the
// remote user's working directory.
func CleanRemotePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("remote path is empty")
	}
	clean := path.Clean(filepath.ToSlash(p))
	if !strings.HasPrefix(clean, "/") {
		return "", fmt.Errorf("remote path must be absolute: %q", p)
	}
	if clean == "/" {
		return "", fmt.Errorf("remote path resolves to filesystem root")
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", fmt.Errorf("parent traversal is not allowed: %q", p)
		}
	}
	return clean, nil
}

// RemoteRelJoin joins a validated relative path under a remote root and
// verifies the result stays inside it.
func RemoteRelJoin(root, rel string) (string, error) {
	cleanRel, err := CleanRelativePath(rel)
	if err != nil {
		return "", err
	}
	rootClean := path.Clean(filepath.ToSlash(root))
	joined := RemoteJoin(rootClean, filepath.ToSlash(cleanRel))
	if !strings.HasPrefix(joined, rootClean+"/") {
		return "", fmt.Errorf("path escapes staging root: %q", rel)
	}
	return joined, nil
}
