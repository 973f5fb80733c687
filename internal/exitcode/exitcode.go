// Package exitcode maps the outcome of a netboot run to a process exit
// status.  These codes are the contract with init systems and scripts
// that launch netboot.
package exitcode

import (
	"context"

	ncerr "netboot/internal/errors"
)

const (
	// Success means the connection was established.
	Success = 0

	// ConnectionFailed means the connection facility reported a failure.
	ConnectionFailed = 1

	// InvalidConfig means flags, environment or config file were rejected
	// before any connection attempt.
	InvalidConfig = 2

	// Interrupted means the run was cancelled by SIGINT or SIGTERM.
	Interrupted = 130
)

// FromError returns the exit status for the error returned by a run.
func FromError(err error) int {
	switch {
	case err == nil:
		return Success
	case ncerr.IsConfig(err):
		return InvalidConfig
	case ncerr.Is(err, context.Canceled):
		return Interrupted
	default:
		return ConnectionFailed
	}
}
