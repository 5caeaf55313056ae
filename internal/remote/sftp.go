package remote

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
)

// Uploader transfers local files to the remote staging area.
type Uploader interface {
	MkdirAll(remotePath string) error
	Upload(localPath, remotePath string) error
	Home() (string, error)
	Close() error
}

// SFTPUploader implements Uploader over an SFTP subsystem channel.
type SFTPUploader struct {
	client *sftp.Client
}

// NewUploader opens an SFTP channel on the established SSH connection.
func (c *Client) NewUploader() (Uploader, error) {
	client, err := sftp.NewClient(c.ssh)
	if err != nil {
		return nil, fmt.Errorf("open sftp channel: %w", err)
	}
	return &SFTPUploader{client: client}, nil
}

// Home returns the remote user's home directory, which anchors the
// staging area. Staging never requires elevated permissions.
func (u *SFTPUploader) Home() (string, error) {
	wd, err := u.client.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve remote home: %w", err)
	}
	return wd, nil
}

// MkdirAll creates remotePath and any missing parents. Creating an
// existing directory is not an error.
func (u *SFTPUploader) MkdirAll(remotePath string) error {
	if err := u.client.MkdirAll(remotePath); err != nil {
		return fmt.Errorf("mkdir %s: %w", remotePath, err)
	}
	return nil
}

// Upload copies a single local file to remotePath, creating the parent
// directory if needed. The destination is truncated if it exists.
func (u *SFTPUploader) Upload(localPath, remotePath string) error {
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer src.Close()

	if dir := path.Dir(remotePath); dir != "" && dir != "." && dir != "/" {
		if err := u.client.MkdirAll(dir); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	dst, err := u.client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("create %s: %w", remotePath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", remotePath, err)
	}
	return nil
}

// Close shuts down the SFTP channel.
func (u *SFTPUploader) Close() error {
	return u.client.Close()
}
