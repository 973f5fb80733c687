package transport

import (
	"context"
	"net"
	"time"
)

// TCPDialer is the connection facility's direct path: one net.Dialer per
// attempt, bounded by Timeout and by the attempt's context.  Each call
// to Dial is independent, so retries need no state here.
type TCPDialer struct {
	Timeout   time.Duration // per-attempt connect timeout (-w); 0 leaves only ctx
	LocalPort int           // source port (-p); 0 lets the kernel pick
}

// Dial connects to address over TCP.  With LocalPort set, the socket is
// bound to that port on every local interface before connecting.
func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	if d.LocalPort > 0 {
		dialer.LocalAddr = &net.TCPAddr{Port: d.LocalPort}
	}
	return dialer.DialContext(ctx, network, address)
}

// Close holds nothing to release; Connector calls it for every dialer.
func (d *TCPDialer) Close() error { return nil }
