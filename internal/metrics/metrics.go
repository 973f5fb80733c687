// Package metrics counts what the connection facility did during a
// single netboot run: attempts, failures, tunnel reconnects and how
// long the successful dial took.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks connection statistics for one run.
type Collector struct {
	attempts         atomic.Int64
	failures         atomic.Int64
	tunnelReconnects atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	connected    bool
	connectTime  time.Duration
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Attempts ─────────────────────────────────────────────────────────

// AttemptStarted counts one dial attempt.
func (c *Collector) AttemptStarted() {
	if c == nil {
		return
	}
	c.attempts.Add(1)
}

// AttemptFailed counts a failed attempt and keeps its message.
func (c *Collector) AttemptFailed(err error) {
	if c == nil || err == nil {
		return
	}
	c.failures.Add(1)
	c.mu.Lock()
	c.lastErrorMsg = err.Error()
	c.mu.Unlock()
}

// Connected records a successful dial that took d.
func (c *Collector) Connected(d time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.connected = true
	c.connectTime = d
	c.mu.Unlock()
}

// Attempts returns the number of dial attempts.
func (c *Collector) Attempts() int64 {
	if c == nil {
		return 0
	}
	return c.attempts.Load()
}

// Failures returns the number of failed attempts.
func (c *Collector) Failures() int64 {
	if c == nil {
		return 0
	}
	return c.failures.Load()
}

// ── Tunnel ───────────────────────────────────────────────────────────

// TunnelReconnect records that a dropped SSH tunnel was re-established.
func (c *Collector) TunnelReconnect() {
	if c == nil {
		return
	}
	c.tunnelReconnects.Add(1)
}

// TunnelReconnects returns the tunnel reconnection count.
func (c *Collector) TunnelReconnects() int64 {
	if c == nil {
		return 0
	}
	return c.tunnelReconnects.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of the run.
type Snapshot struct {
	Elapsed          time.Duration
	Attempts         int64
	Failures         int64
	TunnelReconnects int64
	Connected        bool
	ConnectTime      time.Duration
	LastError        string
}

// Snapshot returns a copy of the current counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		Elapsed:          time.Since(c.startTime),
		Attempts:         c.attempts.Load(),
		Failures:         c.failures.Load(),
		TunnelReconnects: c.tunnelReconnects.Load(),
		Connected:        c.connected,
		ConnectTime:      c.connectTime,
		LastError:        c.lastErrorMsg,
	}
}

// String renders the snapshot as key=value pairs for a log line.
func (s Snapshot) String() string {
	out := fmt.Sprintf("connected=%t attempts=%d failures=%d tunnel_reconnects=%d elapsed=%s",
		s.Connected, s.Attempts, s.Failures, s.TunnelReconnects, s.Elapsed.Round(time.Millisecond))
	if s.Connected {
		out += fmt.Sprintf(" connect_time=%s", s.ConnectTime.Round(time.Microsecond))
	}
	if s.LastError != "" {
		out += fmt.Sprintf(" last_error=%q", s.LastError)
	}
	return out
}
