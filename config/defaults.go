package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultConnTimeout is the per-attempt TCP/SSH connection timeout.
	DefaultConnTimeout = 30 * time.Second

	// DefaultRetries is the total number of connection attempts.  One
	// attempt means no retry.
	DefaultRetries = 1

	// DefaultRetryDelay is the wait before the second attempt; later
	// waits grow exponentially.
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay caps the exponential backoff between attempts.
	DefaultMaxRetryDelay = 60 * time.Second

	// DefaultVerbosity prints info and warnings but not the debug trace.
	DefaultVerbosity = 1

	// EnvPrefix prefixes every environment variable netboot reads.
	EnvPrefix = "NETBOOT_"
)
