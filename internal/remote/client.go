// Package remote provides the SSH transport to the Home Assistant host:
// command execution for the privileged install steps and SFTP upload for
// staging artifact files.
package remote

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Options configures the SSH connection.
type Options struct {
	Addr           string // host:port
	User           string
	KeyPath        string
	KnownHostsPath string
	StrictHostKey  bool
	Timeout        time.Duration
}

// Client wraps an established SSH connection.
type Client struct {
	ssh  *ssh.Client
	addr string
}

// Dial establishes an SSH connection using key-file auth, falling back to
// the SSH agent when one is available. With StrictHostKey the known_hosts
// file must exist and match; otherwise host keys are not verified.
func Dial(opts Options) (*Client, error) {
	var auths []ssh.AuthMethod

	if opts.KeyPath != "" {
		signer, err := loadSigner(opts.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load key: %w", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			ag := agent.NewClient(conn)
			auths = append(auths, ssh.PublicKeysCallback(ag.Signers))
		}
	}

	if len(auths) == 0 {
		return nil, fmt.Errorf("no SSH auth available: set target.key_path or run an SSH agent")
	}

	var hostKeyCB ssh.HostKeyCallback
	if opts.StrictHostKey {
		if _, err := os.Stat(opts.KnownHostsPath); err != nil {
			return nil, fmt.Errorf("known_hosts file not found at %s and strict_host_key is enabled", opts.KnownHostsPath)
		}
		cb, err := knownhosts.New(opts.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
		hostKeyCB = cb
	} else {
		hostKeyCB = ssh.InsecureIgnoreHostKey()
	}

	cfg := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         opts.Timeout,
	}

	// Explicit net.Dialer so the TCP connect honors the timeout too
	d := net.Dialer{Timeout: opts.Timeout}
	conn, err := d.Dial("tcp", opts.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", opts.Addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, opts.Addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", opts.Addr, err)
	}

	return &Client{ssh: ssh.NewClient(c, chans, reqs), addr: opts.Addr}, nil
}

// Addr returns the dialed host:port.
func (c *Client) Addr() string {
	return c.addr
}

// Close tears down the SSH connection.
func (c *Client) Close() error {
	return c.ssh.Close()
}

// loadSigner loads an unencrypted private key from path.
func loadSigner(path string) (ssh.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ssh.ParsePrivateKey(b)
	if err == nil {
		return s, nil
	}
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) {
		return nil, fmt.Errorf("private key %s is encrypted; use an SSH agent for encrypted keys", path)
	}
	return nil, err
}
