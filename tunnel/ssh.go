package tunnel

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"netboot/config"
	ncerr "netboot/internal/errors"
	"netboot/util"
)

// SSHConfig holds everything needed to dial an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string
	PromptPass    bool
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string
	ConnTimeout   time.Duration
}

// FromConfig extracts the gateway settings from cfg.
func FromConfig(cfg *config.Config) *SSHConfig {
	return &SSHConfig{
		User:          cfg.TunnelUser,
		Host:          cfg.TunnelHost,
		Port:          cfg.TunnelPort,
		KeyPath:       cfg.SSHKeyPath,
		PromptPass:    cfg.SSHPassword,
		UseAgent:      cfg.UseSSHAgent,
		StrictHostKey: cfg.StrictHostKey,
		KnownHosts:    cfg.KnownHostsPath,
		ConnTimeout:   cfg.Timeout,
	}
}

// SSHTunnel implements [Tunnel] by opening an SSH connection and
// forwarding traffic with ssh.Client.DialContext.
type SSHTunnel struct {
	config *SSHConfig
	client *ssh.Client
	logger *util.Logger
	mu     sync.RWMutex
	alive  bool
	closed bool
}

// NewSSHTunnel creates a tunnel that is ready to [Connect].
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = config.DefaultSSHPort
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = config.DefaultConnTimeout
	}
	return &SSHTunnel{config: cfg, logger: logger}
}

// Addr returns the gateway's host:port.
func (t *SSHTunnel) Addr() string {
	return util.FormatAddr(t.config.Host, t.config.Port)
}

// Connect dials the SSH gateway and completes the handshake.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	authMethods, err := BuildAuthMethods(t.config)
	if err != nil {
		return ncerr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}

	hkCallback, err := hostKeyCallback(t.config)
	if err != nil {
		return ncerr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}

	sshCfg := &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         t.config.ConnTimeout,
	}

	addr := t.Addr()
	t.logger.Debug("SSH: dialing %s as %s", addr, t.config.User)

	// Use a context-aware TCP dial so callers can cancel.
	dialer := net.Dialer{Timeout: t.config.ConnTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ncerr.Wrap("dial", addr, err)
	}

	sshConn, chans, reqs, err := t.handshake(ctx, tcpConn, addr, sshCfg)
	if err != nil {
		return err
	}

	client := ssh.NewClient(sshConn, chans, reqs)

	t.mu.Lock()
	t.client = client
	t.alive = true
	t.closed = false
	t.mu.Unlock()

	go t.monitor(client)

	return nil
}

// handshake runs the SSH handshake on conn.  ClientConfig.Timeout only
// covers the TCP dial, so the handshake gets its own deadline, and
// cancelling ctx closes conn to unblock it.
func (t *SSHTunnel) handshake(ctx context.Context, conn net.Conn, addr string, cfg *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	if t.config.ConnTimeout > 0 {
		conn.SetDeadline(time.Now().Add(t.config.ConnTimeout)) //nolint:errcheck
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if !stop() {
		// ctx fired while the handshake was running.
		if err == nil {
			sshConn.Close()
		}
		conn.Close()
		return nil, nil, nil, ncerr.WrapSSH("handshake", t.config.Host, t.config.Port, ctx.Err())
	}
	if err != nil {
		conn.Close()
		return nil, nil, nil, t.classifyHandshake(err)
	}

	conn.SetDeadline(time.Time{}) //nolint:errcheck
	return sshConn, chans, reqs, nil
}

// classifyHandshake separates credential and host-key rejections, which
// no retry can fix, from transient handshake failures.
func (t *SSHTunnel) classifyHandshake(err error) error {
	var keyErr *knownhosts.KeyError
	switch {
	case ncerr.As(err, &keyErr), strings.Contains(err.Error(), "knownhosts: key"):
		return ncerr.WrapSSH("hostkey", t.config.Host, t.config.Port,
			fmt.Errorf("%w: %v", ncerr.ErrHostKeyMismatch, err))
	case strings.Contains(err.Error(), "unable to authenticate"):
		return ncerr.WrapSSH("auth", t.config.Host, t.config.Port,
			fmt.Errorf("%w: %v", ncerr.ErrAuthFailed, err))
	default:
		return ncerr.WrapSSH("handshake", t.config.Host, t.config.Port, err)
	}
}

// Dial forwards a connection through the tunnel.
func (t *SSHTunnel) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	t.mu.RLock()
	client := t.client
	alive := t.alive
	closed := t.closed
	t.mu.RUnlock()

	if closed {
		return nil, ncerr.ErrTunnelClosed
	}
	if !alive || client == nil {
		return nil, ncerr.ErrNotConnected
	}

	t.logger.Debug("tunnel: dialing %s %s", network, address)
	conn, err := client.DialContext(ctx, network, address)
	if err != nil {
		return nil, ncerr.WrapSSH("channel", t.config.Host, t.config.Port,
			fmt.Errorf("forward to %s: %w", address, err))
	}
	return conn, nil
}

// Close shuts down the SSH connection.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alive = false
	t.closed = true
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}

// IsAlive reports whether the tunnel is still connected.
func (t *SSHTunnel) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alive
}

// monitor blocks until the SSH connection closes and flips the alive flag.
func (t *SSHTunnel) monitor(client *ssh.Client) {
	err := client.Wait()

	t.mu.Lock()
	if t.client == client || t.client == nil {
		t.alive = false
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("SSH tunnel closed: %v", err)
	} else {
		t.logger.Debug("SSH tunnel closed")
	}
}
