package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	ncerr "netboot/internal/errors"
)

// fileConfig mirrors Config for on-disk files.  Pointer fields stay nil
// when a key is absent so only keys present in the file override.
type fileConfig struct {
	Host       *string     `toml:"host" yaml:"host"`
	Port       *int        `toml:"port" yaml:"port"`
	LocalPort  *int        `toml:"local_port" yaml:"local_port"`
	UDP        *bool       `toml:"udp" yaml:"udp"`
	NoDNS      *bool       `toml:"no_dns" yaml:"no_dns"`
	Timeout    *string     `toml:"timeout" yaml:"timeout"`
	Retries    *int        `toml:"retries" yaml:"retries"`
	RetryDelay *string     `toml:"retry_delay" yaml:"retry_delay"`
	Verbose    *int        `toml:"verbose" yaml:"verbose"`
	LogJSON    *bool       `toml:"log_json" yaml:"log_json"`
	Tunnel     *tunnelFile `toml:"tunnel" yaml:"tunnel"`
}

type tunnelFile struct {
	Spec          *string `toml:"spec" yaml:"spec"`
	SSHKey        *string `toml:"ssh_key" yaml:"ssh_key"`
	Password      *bool   `toml:"password" yaml:"password"`
	Agent         *bool   `toml:"agent" yaml:"agent"`
	StrictHostKey *bool   `toml:"strict_hostkey" yaml:"strict_hostkey"`
	KnownHosts    *string `toml:"known_hosts" yaml:"known_hosts"`
}

// LoadFile overlays the TOML (.toml) or YAML (.yaml, .yml) file at path
// onto cfg.  Unknown keys are rejected so typos do not pass silently.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileError(path, err.Error())
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &raw)
		if err != nil {
			return fileError(path, err.Error())
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fileError(path, "unknown key "+undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return fileError(path, err.Error())
		}
	default:
		return &ncerr.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "unsupported config format " + quoteExt(ext),
			Hint:    "use a .toml, .yaml or .yml file",
		}
	}

	return raw.apply(cfg, path)
}

func (f *fileConfig) apply(cfg *Config, path string) error {
	setString(&cfg.Host, f.Host)
	setInt(&cfg.Port, f.Port)
	setInt(&cfg.LocalPort, f.LocalPort)
	setBool(&cfg.UDP, f.UDP)
	setBool(&cfg.NoDNS, f.NoDNS)
	setInt(&cfg.Retries, f.Retries)
	setInt(&cfg.Verbose, f.Verbose)
	setBool(&cfg.LogJSON, f.LogJSON)

	if err := setDuration(&cfg.Timeout, f.Timeout, "timeout", path); err != nil {
		return err
	}
	if err := setDuration(&cfg.RetryDelay, f.RetryDelay, "retry_delay", path); err != nil {
		return err
	}

	if t := f.Tunnel; t != nil {
		setString(&cfg.TunnelSpec, t.Spec)
		setString(&cfg.SSHKeyPath, t.SSHKey)
		setBool(&cfg.SSHPassword, t.Password)
		setBool(&cfg.UseSSHAgent, t.Agent)
		setBool(&cfg.StrictHostKey, t.StrictHostKey)
		setString(&cfg.KnownHostsPath, t.KnownHosts)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func fileError(path, msg string) error {
	return &ncerr.ConfigError{Field: "config", Value: path, Message: msg}
}

func quoteExt(s string) string {
	if s == "" {
		return "(no extension)"
	}
	return `"` + s + `"`
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, key, path string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*v))
	if err != nil {
		return fileError(path, "parse "+key+": "+err.Error())
	}
	*dst = d
	return nil
}
