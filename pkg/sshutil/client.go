// Package sshutil wraps golang.org/x/crypto/ssh with fleet-oriented
// connection handling: context-aware dialing, jump host tunneling, agent and
// key file auth, and error classification.
package sshutil

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/mkoppen/gpuwatch/internal/config"
	"github.com/mkoppen/gpuwatch/internal/errors"
)

// DefaultPort is used when a host has no explicit port.
const DefaultPort = "22"

// Options controls connection establishment.
type Options struct {
	// ConnectTimeout bounds each hop (jump and target separately).
	ConnectTimeout time.Duration

	// StrictHostKey verifies host keys against ~/.ssh/known_hosts. When
	// false, host keys are accepted blindly, which is the usual posture
	// for monitoring a private fleet.
	StrictHostKey bool
}

// Client is an established SSH connection to one target, possibly tunneled
// through a jump host. Close tears down both hops.
type Client struct {
	*ssh.Client

	// Host is the target as configured, without port.
	Host string

	// Address is the dialed host:port.
	Address string

	jump *ssh.Client
}

// Dial connects to the target described by t. When t.JumpHost is set, the
// connection is tunneled: jump failures are reported against the jump host
// so the operator knows which machine to fix.
func Dial(ctx context.Context, t config.Target, opts Options) (*Client, error) {
	addr := ensurePort(t.Host)

	clientConfig, err := buildClientConfig(t.User, t.KeyPath, opts)
	if err != nil {
		return nil, err
	}

	if t.JumpHost == "" {
		sshClient, err := dialDirect(ctx, addr, clientConfig, opts.ConnectTimeout)
		if err != nil {
			return nil, classifyDialError(err, t.Host)
		}
		return &Client{Client: sshClient, Host: t.Host, Address: addr}, nil
	}

	jumpUser, jumpHost := splitUserHost(t.JumpHost, t.User)
	jumpAddr := ensurePort(jumpHost)

	jumpConfig, err := buildClientConfig(jumpUser, t.KeyPath, opts)
	if err != nil {
		return nil, err
	}

	jumpClient, err := dialDirect(ctx, jumpAddr, jumpConfig, opts.ConnectTimeout)
	if err != nil {
		return nil, classifyDialError(err, jumpHost)
	}

	sshClient, err := dialThrough(ctx, jumpClient, addr, clientConfig, opts.ConnectTimeout)
	if err != nil {
		jumpClient.Close()
		return nil, classifyDialError(err, t.Host)
	}

	return &Client{Client: sshClient, Host: t.Host, Address: addr, jump: jumpClient}, nil
}

// Close shuts down the target connection, then the jump connection.
func (c *Client) Close() error {
	err := c.Client.Close()
	if c.jump != nil {
		if jerr := c.jump.Close(); err == nil {
			err = jerr
		}
	}
	return err
}

func dialDirect(ctx context.Context, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := handshake(ctx, conn, addr, cfg, timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

func dialThrough(ctx context.Context, jump *ssh.Client, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	conn, err := jump.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := handshake(ctx, conn, addr, cfg, timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return client, nil
}

// handshake runs the SSH handshake with its own deadline; ssh.ClientConfig's
// Timeout only covers the TCP dial, not key exchange.
func handshake(ctx context.Context, conn net.Conn, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	return ssh.NewClient(sshConn, chans, reqs), nil
}

func buildClientConfig(user, keyPath string, opts Options) (*ssh.ClientConfig, error) {
	auths := authMethods(keyPath)
	if len(auths) == 0 {
		return nil, errors.New(errors.ErrAuth,
			"No usable SSH credentials",
			"Ensure the key at "+keyPath+" exists, or start an ssh-agent")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() // #nosec G106 -- private fleet default
	if opts.StrictHostKey {
		cb, err := knownHostsCallback()
		if err != nil {
			return nil, err
		}
		hostKeyCallback = cb
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.ConnectTimeout,
	}, nil
}

// authMethods returns key file auth plus ssh-agent when available. The key
// file is read lazily at handshake time so permission errors surface as auth
// failures for the specific host rather than at startup.
func authMethods(keyPath string) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if keyPath != "" {
		methods = append(methods, ssh.PublicKeysCallback(func() ([]ssh.Signer, error) {
			key, err := os.ReadFile(keyPath)
			if err != nil {
				return nil, fmt.Errorf("reading key %s: %w", keyPath, err)
			}
			signer, err := ssh.ParsePrivateKey(key)
			if err != nil {
				return nil, fmt.Errorf("parsing key %s: %w", keyPath, err)
			}
			return []ssh.Signer{signer}, nil
		}))
	}

	if signers := agentSigners(); signers != nil {
		methods = append(methods, ssh.PublicKeysCallback(signers))
	}

	return methods
}

var (
	agentOnce   sync.Once
	agentClient agent.Agent
)

// agentSigners connects to the ssh-agent once per process and shares the
// client across all targets.
func agentSigners() func() ([]ssh.Signer, error) {
	agentOnce.Do(func() {
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return
		}
		conn, err := net.Dial("unix", sock)
		if err != nil {
			return
		}
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}
	return agentClient.Signers
}

func knownHostsCallback() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot locate home directory for known_hosts",
			"Set ssh.strict_host_key to false or set $HOME")
	}
	cb, err := knownhosts.New(home + "/.ssh/known_hosts")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot read ~/.ssh/known_hosts",
			"Set ssh.strict_host_key to false if host key checking is not needed")
	}
	return cb, nil
}

// classifyDialError maps raw dial failures onto the probe error taxonomy.
// host names which machine failed, which matters when a jump is involved.
func classifyDialError(err error, host string) error {
	switch {
	case isAuthError(err):
		return errors.WrapWithCode(err, errors.ErrAuth,
			"Authentication failed for "+host,
			"Check the username and that your key is authorized on the host")
	case isTimeoutError(err):
		return errors.WrapWithCode(err, errors.ErrTimeout,
			"Connection to "+host+" timed out",
			"Check the host is reachable, or raise ssh.connect_timeout")
	default:
		return errors.WrapWithCode(err, errors.ErrConnect,
			"Cannot connect to "+host,
			"Check the hostname and that sshd is running")
	}
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain") ||
		strings.Contains(msg, "permission denied")
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(err.Error(), "i/o timeout") ||
		strings.Contains(err.Error(), "timed out")
}

// ensurePort appends the default SSH port when the host has none.
func ensurePort(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, DefaultPort)
}

// splitUserHost parses "user@host" specs, falling back to def when no user
// is given.
func splitUserHost(spec, def string) (user, host string) {
	if i := strings.IndexByte(spec, '@'); i >= 0 {
		return spec[:i], spec[i+1:]
	}
	return def, spec
}
