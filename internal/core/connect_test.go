package core

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerr "netboot/internal/errors"
	"netboot/internal/metrics"
	"netboot/internal/retry"
	"netboot/internal/transport"
	"netboot/util"
)

// stubDialer fails the first failures dials with err, then succeeds
// through a net.Pipe.
type stubDialer struct {
	failures int
	err      error
	dials    atomic.Int32
	closed   atomic.Bool
}

func (d *stubDialer) Dial(_ context.Context, _, _ string) (net.Conn, error) {
	n := int(d.dials.Add(1))
	if n <= d.failures {
		return nil, d.err
	}
	client, server := net.Pipe()
	server.Close()
	return client, nil
}

func (d *stubDialer) Close() error {
	d.closed.Store(true)
	return nil
}

func fastRetry(attempts int) *retry.Backoff {
	return &retry.Backoff{InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: attempts}
}

func TestEstablish_TCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
		close(accepted)
	}()

	var buf bytes.Buffer
	logger := util.NewLogger(2)
	logger.SetOutput(&buf)
	logger.SetTimestamps(false)

	c := &Connector{
		Dialer:  &transport.TCPDialer{Timeout: 2 * time.Second},
		Network: "tcp",
		Address: ln.Addr().String(),
		Logger:  logger,
	}
	require.NoError(t, c.Establish(context.Background()))

	select {
	case <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("server never saw the connection")
	}
	assert.Contains(t, buf.String(), "connected to "+ln.Addr().String())
}

func TestEstablish_SingleAttemptByDefault(t *testing.T) {
	refused := errors.New("connection refused")
	d := &stubDialer{failures: 5, err: refused}
	c := &Connector{Dialer: d, Network: "tcp", Address: "10.0.0.1:80", Logger: util.NewLogger(0)}

	err := c.Establish(context.Background())

	var ne *ncerr.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "dial", ne.Op)
	assert.Equal(t, "10.0.0.1:80", ne.Addr)
	assert.ErrorIs(t, err, refused)
	assert.EqualValues(t, 1, d.dials.Load())
	assert.True(t, d.closed.Load(), "dialer is closed on return")
}

func TestEstablish_RetriesThenSucceeds(t *testing.T) {
	var buf bytes.Buffer
	logger := util.NewLogger(1)
	logger.SetOutput(&buf)

	d := &stubDialer{failures: 2, err: errors.New("connection refused")}
	stats := metrics.New()
	c := &Connector{Dialer: d, Network: "tcp", Address: "10.0.0.1:80", Retry: fastRetry(5), Logger: logger, Metrics: stats}

	require.NoError(t, c.Establish(context.Background()))
	assert.EqualValues(t, 3, d.dials.Load())
	assert.EqualValues(t, 3, stats.Attempts())
	assert.EqualValues(t, 2, stats.Failures())
	assert.True(t, stats.Snapshot().Connected)
	assert.Contains(t, buf.String(), "attempt 1 failed")
	assert.Contains(t, buf.String(), "attempt 2 failed")
}

func TestEstablish_GivesUp(t *testing.T) {
	d := &stubDialer{failures: 10, err: errors.New("connection refused")}
	c := &Connector{Dialer: d, Network: "tcp", Address: "10.0.0.1:80", Retry: fastRetry(3), Logger: util.NewLogger(0)}

	err := c.Establish(context.Background())
	assert.ErrorContains(t, err, "giving up after 3 attempts")
	assert.EqualValues(t, 3, d.dials.Load())
}

func TestEstablish_FatalSSHErrorNotRetried(t *testing.T) {
	tests := []struct {
		op    string
		calls int32
	}{
		{"auth", 1},
		{"hostkey", 1},
		{"handshake", 3},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			sshErr := ncerr.WrapSSH(tt.op, "bastion", 22, errors.New("boom"))
			d := &stubDialer{failures: 10, err: sshErr}
			c := &Connector{Dialer: d, Network: "tcp", Address: "10.0.0.1:80", Retry: fastRetry(3), Logger: util.NewLogger(0)}

			err := c.Establish(context.Background())
			var got *ncerr.SSHError
			require.ErrorAs(t, err, &got)
			assert.Equal(t, tt.calls, d.dials.Load())
		})
	}
}

func TestEstablish_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &Connector{
		Dialer:  &transport.TCPDialer{Timeout: time.Second},
		Network: "tcp",
		Address: "127.0.0.1:1",
		Retry:   fastRetry(5),
		Logger:  util.NewLogger(0),
	}
	err := c.Establish(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffFor(t *testing.T) {
	cfg := configFor(t, "127.0.0.1", 80)
	assert.Equal(t, 1, backoffFor(cfg).MaxAttempts)

	cfg.Retries = 4
	cfg.RetryDelay = 250 * time.Millisecond
	b := backoffFor(cfg)
	assert.Equal(t, 4, b.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, b.InitialDelay)
	assert.True(t, b.Jitter)
}
