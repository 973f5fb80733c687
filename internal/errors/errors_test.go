package errors

import (
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "example.com:80", Err: io.EOF, Retryable: true},
			want: "dial example.com:80: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "dial", Addr: "10.0.0.1:443", Err: fmt.Errorf("connection refused")},
			want: "dial 10.0.0.1:443: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "dial", Addr: "x", Err: io.EOF}
	assert.True(t, Is(err, io.EOF))
}

func TestSSHError(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := WrapSSH("handshake", "bastion.example.com", 22, inner)

	assert.Equal(t, "ssh handshake bastion.example.com:22: connection refused", err.Error())
	assert.True(t, Is(err, inner))
	assert.False(t, err.Fatal())

	assert.True(t, WrapSSH("auth", "h", 22, inner).Fatal())
	assert.True(t, WrapSSH("hostkey", "h", 22, inner).Fatal())
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "port",
				Value:   99999,
				Message: "out of range 1-65535",
				Hint:    "use a port between 1 and 65535",
			},
			want: "config: --port=99999: out of range 1-65535\n  hint: use a port between 1 and 65535",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "host",
				Message: "required",
			},
			want: "config: --host: required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUsage(t *testing.T) {
	assert.NoError(t, Usage(nil))

	inner := fmt.Errorf("unknown flag: --bogus")
	err := Usage(inner)
	require.Error(t, err)
	assert.Equal(t, "usage: unknown flag: --bogus", err.Error())
	assert.True(t, Is(err, inner))
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("dial", "10.0.0.1:22", inner)

	assert.Equal(t, "dial", err.Op)
	assert.Equal(t, "10.0.0.1:22", err.Addr)
	assert.False(t, err.Retryable)
	assert.True(t, Is(err, inner))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF}, false},
		{"wrapped retryable", fmt.Errorf("connect: %w", &NetworkError{Err: io.EOF, Retryable: true}), true},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsConfig(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"config", &ConfigError{Field: "host", Message: "required"}, true},
		{"wrapped config", fmt.Errorf("load: %w", &ConfigError{Field: "port"}), true},
		{"usage", Usage(fmt.Errorf("bad flag")), true},
		{"network", Wrap("dial", "x", io.EOF), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConfig(tt.err))
		})
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &net.DNSError{IsTemporary: true},
	}
	assert.True(t, classifyRetryable(opErr), "temporary OpError should be retryable")
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrTunnelClosed, ErrNotConnected, ErrTimeout,
		ErrAuthFailed, ErrHostKeyMismatch,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, Is(a, b), "sentinel %d and %d should not match", i, j)
			}
		}
	}
}
