package transport

import (
	"context"
	"net"
	"time"
)

// UDPDialer "connects" a UDP socket to a fixed peer.  No packets are
// exchanged, so success only means the address resolved and a local
// socket was bound.
type UDPDialer struct {
	Timeout   time.Duration
	LocalPort int // source port (-p); 0 lets the kernel pick
}

// Dial binds a UDP socket and sets its default peer to address.
func (d *UDPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	if d.LocalPort > 0 {
		dialer.LocalAddr = &net.UDPAddr{Port: d.LocalPort}
	}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op for stateless UDP dialers.
func (d *UDPDialer) Close() error { return nil }
