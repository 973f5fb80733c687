// Package core implements the connection facility: a Connector that
// makes the single outbound connection attempt the bootstrap asks for.
package core

import (
	"context"
	"time"

	"netboot/config"
	ncerr "netboot/internal/errors"
	"netboot/internal/metrics"
	"netboot/internal/retry"
	"netboot/internal/transport"
	"netboot/util"
)

// Connector dials a remote address under its own retry policy.  The
// resulting connection is only proof of reachability and is closed
// before Establish returns.
type Connector struct {
	Dialer  transport.Dialer
	Network string
	Address string
	Retry   *retry.Backoff
	Logger  *util.Logger
	Metrics *metrics.Collector // optional
}

// Establish dials the remote address.  The dialer is closed when
// Establish returns.
func (c *Connector) Establish(ctx context.Context) error {
	defer c.Dialer.Close()

	policy := c.Retry
	if policy == nil {
		policy = retry.Once()
	}
	if policy.OnRetry == nil && policy.MaxAttempts != 1 {
		p := *policy
		p.OnRetry = func(attempt int, err error, wait time.Duration) {
			c.Logger.Warn("attempt %d failed: %v (retrying in %s)", attempt, err, wait.Round(time.Millisecond))
		}
		policy = &p
	}

	return policy.Do(ctx, func(attempt int) error {
		c.Logger.Verbose("connecting to %s (%s), attempt %d", c.Address, c.Network, attempt)
		c.Metrics.AttemptStarted()

		start := time.Now()
		conn, err := c.Dialer.Dial(ctx, c.Network, c.Address)
		if err != nil {
			c.Metrics.AttemptFailed(err)
			return classify(ctx, ncerr.Wrap("dial", c.Address, err))
		}
		c.Metrics.Connected(time.Since(start))

		c.Logger.Verbose("connected to %s", conn.RemoteAddr())
		if cerr := conn.Close(); cerr != nil {
			c.Logger.Debug("closing connection to %s: %v", c.Address, cerr)
		}
		return nil
	})
}

// classify marks failures that another attempt cannot fix.
func classify(ctx context.Context, err error) error {
	var sshErr *ncerr.SSHError
	switch {
	case ctx.Err() != nil:
		return retry.Permanent(err)
	case ncerr.As(err, &sshErr) && sshErr.Fatal():
		return retry.Permanent(err)
	case ncerr.IsConfig(err):
		return retry.Permanent(err)
	}
	return err
}

// backoffFor derives the retry policy from cfg.
func backoffFor(cfg *config.Config) *retry.Backoff {
	if cfg.Retries <= 1 {
		return retry.Once()
	}
	return &retry.Backoff{
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     config.DefaultMaxRetryDelay,
		Multiplier:   2.0,
		MaxAttempts:  cfg.Retries,
		Jitter:       true,
	}
}
