// Package cmd wires up the CLI flags, layers the configuration and
// hands the result to the bootstrap controller.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	flag "github.com/spf13/pflag"

	"netboot/config"
	"netboot/internal/bootstrap"
	"netboot/internal/core"
	ncerr "netboot/internal/errors"
	"netboot/util"
)

// version is overridable at link time:
//
//	go build -tags networking -ldflags "-X netboot/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Output streams; tests replace them.
var ( //nolint:gochecknoglobals
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// options holds the values that only steer the CLI itself.
type options struct {
	configPath  string
	timeoutSec  int
	dryRun      bool
	showVersion bool
	showHelp    bool
}

// Execute parses args, builds the configuration and runs the bootstrap
// once.  caps is the capability set the binary was built with.
func Execute(ctx context.Context, caps config.Capabilities, args []string) error {
	var opts options
	cli := config.Default()
	fs := newFlagSet(cli, &opts)

	if err := fs.Parse(args); err != nil {
		return ncerr.Usage(err)
	}
	if opts.showHelp {
		printUsage(fs)
		return nil
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "netboot %s (%s)\n", version, caps)
		return nil
	}

	cfg, err := layer(fs, cli, &opts)
	if err != nil {
		return err
	}
	cfg.Capabilities = caps

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}
	if cfg.Host == "" && len(fs.Args()) == 0 {
		printUsage(fs)
		return ncerr.Usage(fmt.Errorf("no destination: pass <host> <port>, set %sHOST, or use --config", config.EnvPrefix))
	}

	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)
	logger.SetJSON(cfg.LogJSON)
	logger = logger.With("run", uuid.NewString())

	conn, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}

	if opts.dryRun {
		printPlan(cfg, conn)
		return nil
	}

	ctrl, err := bootstrap.New(cfg.Capabilities, logger, conn)
	if err != nil {
		return err
	}
	err = ctrl.Run(ctx)
	logger.Debug("run summary: %s", conn.Metrics.Snapshot())
	return err
}

func newFlagSet(cfg *config.Config, opts *options) *flag.FlagSet {
	fs := flag.NewFlagSet("netboot", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&opts.configPath, "config", "", "Config file (.toml, .yaml, .yml)")

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.UDP, "udp", "u", cfg.UDP, "UDP mode")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")
	fs.IntVarP(&cfg.LocalPort, "local-port", "p", cfg.LocalPort, "Local source port")
	fs.IntVarP(&opts.timeoutSec, "timeout", "w", int(cfg.Timeout/time.Second), "Connect timeout in seconds")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Connection attempts, including the first")
	fs.DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "Delay before the second attempt")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", "", "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", "", "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", false, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", false, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", false, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", "", "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (-v verbose, -vv debug)")
	fs.BoolVar(&cfg.LogJSON, "log-json", false, "Log JSON objects instead of console lines")

	fs.BoolVar(&opts.dryRun, "dry-run", false, "Validate and print the plan without connecting")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	return fs
}

// layer builds the effective configuration: defaults, then the config
// file, then NETBOOT_* variables, then every flag the user actually set.
func layer(fs *flag.FlagSet, cli *config.Config, opts *options) (*config.Config, error) {
	cfg := config.Default()

	path := opts.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "udp":
			cfg.UDP = cli.UDP
		case "no-dns":
			cfg.NoDNS = cli.NoDNS
		case "local-port":
			cfg.LocalPort = cli.LocalPort
		case "timeout":
			cfg.Timeout = time.Duration(opts.timeoutSec) * time.Second
		case "retries":
			cfg.Retries = cli.Retries
		case "retry-delay":
			cfg.RetryDelay = cli.RetryDelay
		case "tunnel":
			cfg.TunnelSpec = cli.TunnelSpec
		case "ssh-key":
			cfg.SSHKeyPath = cli.SSHKeyPath
		case "ssh-password":
			cfg.SSHPassword = cli.SSHPassword
		case "ssh-agent":
			cfg.UseSSHAgent = cli.UseSSHAgent
		case "strict-hostkey":
			cfg.StrictHostKey = cli.StrictHostKey
		case "known-hosts":
			cfg.KnownHostsPath = cli.KnownHostsPath
		case "verbose":
			cfg.Verbose = cli.Verbose
		case "log-json":
			cfg.LogJSON = cli.LogJSON
		}
	})
	return cfg, nil
}

// parsePositional accepts either nothing (host and port come from the
// file or environment) or exactly "host port".
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
		return nil
	case 2:
	case 1:
		return ncerr.Usage(fmt.Errorf("port required after host %q", remaining[0]))
	default:
		return ncerr.Usage(fmt.Errorf("too many arguments: %q", remaining[2:]))
	}

	cfg.Host = remaining[0]
	port, err := strconv.Atoi(remaining[1])
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "port",
			Value:   remaining[1],
			Message: "not a number",
		}
	}
	cfg.Port = port
	return nil
}

func printPlan(cfg *config.Config, conn *core.Connector) {
	fmt.Fprintf(stdout, "capabilities: %s\n", cfg.Capabilities)
	fmt.Fprintf(stdout, "network:      %s\n", conn.Network)
	fmt.Fprintf(stdout, "address:      %s\n", conn.Address)
	if cfg.TunnelEnabled {
		fmt.Fprintf(stdout, "tunnel:       %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	fmt.Fprintf(stdout, "timeout:      %s\n", cfg.Timeout)
	fmt.Fprintf(stdout, "attempts:     %d\n", conn.Retry.MaxAttempts)
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(stderr, `netboot %s

Emits a debug trace, then makes one connection attempt to host:port.

Usage:
  netboot [options] <host> <port>
  netboot --config netboot.toml

Options:
`, version)
	fs.SetOutput(stderr)
	fs.PrintDefaults()
	fs.SetOutput(io.Discard)
	fmt.Fprintf(stderr, `
Environment:
  NETBOOT_CONFIG, NETBOOT_HOST, NETBOOT_PORT, NETBOOT_TIMEOUT, ...

Examples:
  netboot -vv example.com 80                  Trace, then TCP connect
  netboot -u 10.0.0.53 53                     UDP connect
  netboot --retries 5 db.internal 5432        Up to five attempts
  netboot -T admin@bastion db-internal 5432   Through an SSH gateway
`)
}
