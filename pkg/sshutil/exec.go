package sshutil

import (
	"bytes"
	"context"
	"strings"

	"github.com/mkoppen/gpuwatch/internal/errors"
)

// Output runs cmd on the remote host and returns its stdout. The context
// bounds execution: on cancellation or deadline the session is torn down and
// a timeout error is returned, so a hung remote command cannot wedge a probe
// slot.
func (c *Client) Output(ctx context.Context, cmd string) (string, error) {
	session, err := c.NewSession()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConnect,
			"Cannot open SSH session on "+c.Host,
			"The connection may have dropped; it will be retried next cycle")
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(cmd)
	}()

	select {
	case <-ctx.Done():
		// Closing the session unblocks the Run goroutine; its result is
		// discarded via the buffered channel.
		session.Close()
		return "", errors.WrapWithCode(ctx.Err(), errors.ErrTimeout,
			"Command timed out on "+c.Host,
			"Raise ssh.command_timeout if the host is just slow")
	case err := <-done:
		if err != nil {
			msg := "Command failed on " + c.Host
			if s := strings.TrimSpace(stderr.String()); s != "" {
				msg += ": " + firstLine(s)
			}
			return "", errors.WrapWithCode(err, errors.ErrExec,
				msg,
				"Check that nvidia-smi is installed and on the PATH")
		}
		return stdout.String(), nil
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
