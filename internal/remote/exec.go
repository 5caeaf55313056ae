package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// Runner executes commands on the remote host. The publisher depends on
// this interface so its sequencing can be tested without a live host.
type Runner interface {
	Run(ctx context.Context, cmd string) ([]byte, error)
}

// Run executes cmd in a fresh session and returns its combined output.
// A non-zero exit status is an error carrying the command output, so the
// operator sees exactly what the failing step printed.
func (c *Client) Run(ctx context.Context, cmd string) ([]byte, error) {
	type result struct {
		out []byte
		err error
	}

	ch := make(chan result, 1)
	go func() {
		sess, err := c.ssh.NewSession()
		if err != nil {
			ch <- result{nil, fmt.Errorf("open session: %w", err)}
			return
		}
		defer sess.Close()
		out, err := sess.CombinedOutput(cmd)
		ch <- result{out, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			var ee *ssh.ExitError
			if errors.As(r.err, &ee) {
				return r.out, fmt.Errorf("remote command %q exited %d: %s",
					cmd, ee.ExitStatus(), bytes.TrimSpace(r.out))
			}
			return r.out, r.err
		}
		return r.out, nil
	case <-ctx.Done():
		// The session is abandoned; the SSH connection itself stays usable
		// until the caller closes it.
		return nil, ctx.Err()
	}
}

// Command builds a remote command line from argv, quoting each argument
// and prefixing sudo when elevated permissions are configured.
func Command(sudo bool, argv ...string) string {
	quoted := make([]string, 0, len(argv)+1)
	if sudo {
		quoted = append(quoted, "sudo")
	}
	for _, a := range argv {
		quoted = append(quoted, Quote(a))
	}
	return strings.Join(quoted, " ")
}

// Quote minimally quotes an argument for POSIX shells. Common safe
// characters stay unquoted; everything else is single-quoted with the
// standard `'\''` escape for embedded single quotes.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, func(r rune) bool {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	}) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}
