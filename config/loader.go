package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"

	ncerr "netboot/internal/errors"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the NETBOOT_ prefix.  Boolean values
// accept "1", "true", "yes" and "0", "false", "no" (case-insensitive).

// EnvConfigFile names the variable that points at a config file when
// --config is not given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  Call it after the config file
// and before applying CLI flags so that flags take precedence.
func LoadFromEnv(cfg *Config) error {
	e := envReader{}

	if v := os.Getenv(EnvPrefix + "HOST"); v != "" {
		cfg.Host = v
	}
	e.int("PORT", &cfg.Port)
	e.int("LOCAL_PORT", &cfg.LocalPort)
	e.bool("UDP", &cfg.UDP)
	e.bool("NO_DNS", &cfg.NoDNS)
	e.seconds("TIMEOUT", &cfg.Timeout)
	e.int("RETRIES", &cfg.Retries)
	e.duration("RETRY_DELAY", &cfg.RetryDelay)

	// SSH tunnel
	if v := os.Getenv(EnvPrefix + "TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv(EnvPrefix + "SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	e.bool("SSH_PASSWORD", &cfg.SSHPassword)
	e.bool("SSH_AGENT", &cfg.UseSSHAgent)
	e.bool("STRICT_HOSTKEY", &cfg.StrictHostKey)
	if v := os.Getenv(EnvPrefix + "KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	e.int("VERBOSE", &cfg.Verbose)
	e.bool("LOG_JSON", &cfg.LogJSON)

	return e.err
}

// ── helpers ──────────────────────────────────────────────────────────

// envReader records the first malformed variable and skips the rest.
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	return v, v != ""
}

func (e *envReader) fail(key, value, msg string) {
	e.err = &ncerr.ConfigError{
		Field:   strings.ToLower(strings.ReplaceAll(key, "_", "-")),
		Value:   value,
		Message: msg + " (from $" + EnvPrefix + key + ")",
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, "not an integer")
		return
	}
	*dst = n
}

func (e *envReader) bool(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes":
		*dst = true
	case "0", "false", "no":
		*dst = false
	default:
		e.fail(key, v, "not a boolean")
	}
}

func (e *envReader) seconds(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, "not a number of seconds")
		return
	}
	*dst = secondsDuration(n)
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, "not a duration")
		return
	}
	*dst = d
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
