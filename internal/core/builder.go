package core

import (
	"netboot/config"
	"netboot/internal/metrics"
	"netboot/internal/transport"
	"netboot/tunnel"
	"netboot/util"
)

// Build constructs the Connector described by cfg.  cfg is expected to
// have passed Validate; Build only rejects what Validate cannot see.
func Build(cfg *config.Config, logger *util.Logger) (*Connector, error) {
	address, err := util.ResolveAddr(cfg.Host, cfg.Port, cfg.NoDNS)
	if err != nil {
		return nil, err
	}

	stats := metrics.New()
	return &Connector{
		Dialer:  buildDialer(cfg, logger, stats),
		Network: cfg.Network(),
		Address: address,
		Retry:   backoffFor(cfg),
		Logger:  logger,
		Metrics: stats,
	}, nil
}

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger, stats *metrics.Collector) transport.Dialer {
	if cfg.TunnelEnabled {
		d := transport.NewSSHDialer(tunnel.FromConfig(cfg), logger)
		d.Metrics = stats
		return d
	}

	if cfg.UDP {
		return &transport.UDPDialer{
			Timeout:   cfg.Timeout,
			LocalPort: cfg.LocalPort,
		}
	}

	return &transport.TCPDialer{
		Timeout:   cfg.Timeout,
		LocalPort: cfg.LocalPort,
	}
}
