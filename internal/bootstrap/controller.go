// Package bootstrap is the process start sequence of netboot: one debug
// trace announcing the connection, then exactly one call into the
// connection facility, whose outcome is handed back unchanged.
//
// The controller adds no policy of its own.  Retries, timeouts and
// cancellation belong to the Connector; formatting and sinks belong to
// the Tracer.  Whether a controller can exist at all is decided at
// build time by the capability package.
package bootstrap

import (
	"context"
	"fmt"

	"netboot/config"
	ncerr "netboot/internal/errors"
)

// TraceMessage is the debug trace emitted before connecting.
const TraceMessage = "Connecting to network."

// ErrAlreadyRun is returned when Run is called on a finished controller.
var ErrAlreadyRun = ncerr.New("bootstrap already ran")

// Tracer records the bootstrap's debug trace.  *util.Logger satisfies it.
type Tracer interface {
	Debug(format string, args ...interface{})
}

// Connector establishes the process's network connection.  Any retry or
// timeout policy lives behind this call.
type Connector interface {
	Establish(ctx context.Context) error
}

// State is the controller's lifecycle position.
type State int

const (
	// NotStarted is the state before Run.
	NotStarted State = iota
	// Done is terminal, reached once the connection attempt resolves.
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not-started"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller sequences the trace and the connection attempt.  It is not
// safe for concurrent use; a process runs it once from main.
type Controller struct {
	tracer    Tracer
	connector Connector
	state     State
}

// New returns a controller for the resolved capability set.  A set
// without networking is rejected with a *errors.ConfigError.
func New(caps config.Capabilities, tracer Tracer, connector Connector) (*Controller, error) {
	if !caps.Networking {
		return nil, &ncerr.ConfigError{
			Field:   "capability",
			Message: "networking capability is not compiled in",
			Hint:    "rebuild with -tags networking",
		}
	}
	if tracer == nil || connector == nil {
		return nil, fmt.Errorf("bootstrap: tracer and connector are required")
	}
	return &Controller{tracer: tracer, connector: connector}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Run emits TraceMessage, then calls Establish once and returns its
// error as is.  The controller is Done afterwards whatever the outcome;
// a second Run returns ErrAlreadyRun without tracing or connecting.
func (c *Controller) Run(ctx context.Context) error {
	if c.state != NotStarted {
		return ErrAlreadyRun
	}
	defer func() { c.state = Done }()

	c.trace()
	return c.connector.Establish(ctx)
}

// trace emits the debug trace.  A panicking tracer is contained so a
// logging fault can never stop the connection attempt.
func (c *Controller) trace() {
	defer func() { _ = recover() }()
	c.tracer.Debug(TraceMessage)
}
