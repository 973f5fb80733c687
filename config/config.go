// Package config defines the runtime configuration for netboot and
// provides helpers for parsing tunnel specifications.
package config

import (
	"regexp"
	"strconv"
	"time"

	ncerr "netboot/internal/errors"
)

// Capabilities records which optional subsystems were compiled into the
// binary.  It is resolved once, at process start, by the capability
// package and never changes afterwards.
type Capabilities struct {
	Networking bool
}

// String lists the enabled capabilities, e.g. "networking".
func (c Capabilities) String() string {
	if c.Networking {
		return "networking"
	}
	return "none"
}

// Config holds every tuneable for a single netboot run.
type Config struct {
	Capabilities Capabilities

	// ── Connection ───────────────────────────────────────────────────
	Host      string
	Port      int
	LocalPort int // source-port binding (0 = ephemeral)
	UDP       bool
	NoDNS     bool
	Timeout   time.Duration // per-attempt dial timeout

	// ── Retry (owned by the connection facility) ────────────────────
	Retries    int           // total attempts, including the first
	RetryDelay time.Duration // delay before the second attempt

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
	LogJSON bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Timeout:    DefaultConnTimeout,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		Verbose:    DefaultVerbosity,
	}
}

// Network returns "udp" or "tcp".
func (c *Config) Network() string {
	if c.UDP {
		return "udp"
	}
	return "tcp"
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   spec,
			Message: "invalid tunnel spec",
			Hint:    "expected [user@]host[:port]",
		}
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, &ncerr.ConfigError{
				Field:   "tunnel",
				Value:   spec,
				Message: "invalid tunnel port " + strconv.Quote(m[3]),
			}
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec, if set, into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return err
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *errors.ConfigError.
func (c *Config) Validate() error {
	if !c.Capabilities.Networking {
		return &ncerr.ConfigError{
			Field:   "capability",
			Message: "networking capability is not compiled in",
			Hint:    "rebuild with -tags networking",
		}
	}

	if c.Host == "" {
		return &ncerr.ConfigError{
			Field:   "host",
			Message: "destination host is required",
			Hint:    "pass <host> <port>, set NETBOOT_HOST, or use --config",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		var v interface{}
		if c.Port != 0 {
			v = c.Port
		}
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   v,
			Message: "destination port must be in range 1-65535",
		}
	}
	if c.LocalPort < 0 || c.LocalPort > 65535 {
		return &ncerr.ConfigError{
			Field:   "local-port",
			Value:   c.LocalPort,
			Message: "out of range 0-65535",
		}
	}
	if c.Timeout < 0 {
		return &ncerr.ConfigError{Field: "timeout", Value: c.Timeout, Message: "must not be negative"}
	}
	if c.Retries < 1 {
		return &ncerr.ConfigError{
			Field:   "retries",
			Value:   c.Retries,
			Message: "at least one attempt is required",
		}
	}
	if c.RetryDelay < 0 {
		return &ncerr.ConfigError{Field: "retry-delay", Value: c.RetryDelay, Message: "must not be negative"}
	}
	if c.RetryDelay == 0 && c.Retries > 1 {
		return &ncerr.ConfigError{
			Field:   "retry-delay",
			Value:   c.RetryDelay,
			Message: "must be positive when retrying",
			Hint:    "use a short delay such as --retry-delay 10ms",
		}
	}

	if c.UDP && c.TunnelEnabled {
		return &ncerr.ConfigError{
			Field:   "udp",
			Message: "UDP is not supported through SSH tunnels",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}
	if c.TunnelEnabled && c.LocalPort != 0 {
		return &ncerr.ConfigError{
			Field:   "local-port",
			Value:   c.LocalPort,
			Message: "source-port binding is not possible through an SSH tunnel",
		}
	}
	if c.Verbose < 0 {
		return &ncerr.ConfigError{Field: "verbose", Value: c.Verbose, Message: "must not be negative"}
	}

	return nil
}
