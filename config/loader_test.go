package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ncerr "netboot/internal/errors"
)

func TestLoadFromEnv_Connection(t *testing.T) {
	t.Setenv("NETBOOT_HOST", "test.example.com")
	t.Setenv("NETBOOT_PORT", "8080")
	t.Setenv("NETBOOT_LOCAL_PORT", "40000")
	t.Setenv("NETBOOT_TIMEOUT", "10")
	t.Setenv("NETBOOT_RETRIES", "4")
	t.Setenv("NETBOOT_RETRY_DELAY", "150ms")

	cfg := Default()
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "test.example.com", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 40000, cfg.LocalPort)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.Retries)
	assert.Equal(t, 150*time.Millisecond, cfg.RetryDelay)
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true}, {"true", true}, {"yes", true}, {"TRUE", true}, {"Yes", true},
		{"0", false}, {"false", false}, {"no", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("NETBOOT_UDP", tt.value)
			t.Setenv("NETBOOT_NO_DNS", tt.value)
			t.Setenv("NETBOOT_LOG_JSON", tt.value)

			cfg := &Config{UDP: !tt.want, NoDNS: !tt.want, LogJSON: !tt.want}
			require.NoError(t, LoadFromEnv(cfg))

			assert.Equal(t, tt.want, cfg.UDP)
			assert.Equal(t, tt.want, cfg.NoDNS)
			assert.Equal(t, tt.want, cfg.LogJSON)
		})
	}
}

func TestLoadFromEnv_SSHFields(t *testing.T) {
	t.Setenv("NETBOOT_TUNNEL", "admin@bastion:2222")
	t.Setenv("NETBOOT_SSH_KEY", "/home/user/.ssh/id_rsa")
	t.Setenv("NETBOOT_SSH_PASSWORD", "true")
	t.Setenv("NETBOOT_SSH_AGENT", "1")
	t.Setenv("NETBOOT_STRICT_HOSTKEY", "yes")
	t.Setenv("NETBOOT_KNOWN_HOSTS", "/tmp/known_hosts")

	cfg := &Config{}
	require.NoError(t, LoadFromEnv(cfg))

	assert.Equal(t, "admin@bastion:2222", cfg.TunnelSpec)
	assert.Equal(t, "/home/user/.ssh/id_rsa", cfg.SSHKeyPath)
	assert.True(t, cfg.SSHPassword)
	assert.True(t, cfg.UseSSHAgent)
	assert.True(t, cfg.StrictHostKey)
	assert.Equal(t, "/tmp/known_hosts", cfg.KnownHostsPath)
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("NETBOOT_VERBOSE", "3")
	cfg := &Config{}
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, 3, cfg.Verbose)
}

func TestLoadFromEnv_EmptyDoesNotOverride(t *testing.T) {
	t.Setenv("NETBOOT_HOST", "")
	t.Setenv("NETBOOT_PORT", "")
	cfg := &Config{Host: "keep.example.com", Port: 443}
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, "keep.example.com", cfg.Host)
	assert.Equal(t, 443, cfg.Port)
}

func TestLoadFromEnv_Malformed(t *testing.T) {
	tests := []struct {
		key, value, field string
	}{
		{"NETBOOT_PORT", "http", "port"},
		{"NETBOOT_UDP", "maybe", "udp"},
		{"NETBOOT_TIMEOUT", "5s", "timeout"},
		{"NETBOOT_RETRY_DELAY", "soon", "retry-delay"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			err := LoadFromEnv(&Config{})

			var ce *ncerr.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, tt.value, ce.Value)
			assert.Contains(t, ce.Message, "$"+tt.key)
		})
	}
}
