package server

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytplay/internal/commands"
	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Dispatcher turns inbound frames into command executions and routes the outcome.
type Dispatcher struct {
	registry *commands.Registry
	hub      *Hub
	onQuit   func()
	logger   *log.Logger

	// barrier is held for reading by mutations and for writing by quit, so no mutation broadcasts after the quit
	// notice.
	barrier sync.RWMutex
	closed  atomic.Bool
}

// NewDispatcher creates a dispatcher publishing through hub. onQuit runs once, after the quit notice is broadcast,
// and must not block on the session that issued quit.
func NewDispatcher(registry *commands.Registry, hub *Hub, onQuit func(), logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if onQuit == nil {
		onQuit = func() {}
	}
	return &Dispatcher{
		registry: registry,
		hub:      hub,
		onQuit:   onQuit,
		logger:   shared.WithLogger(logger, "component", "dispatcher"),
	}
}

// Closed reports whether quit has been executed.
func (d *Dispatcher) Closed() bool {
	return d.closed.Load()
}

// Dispatch decodes one frame from c and executes it.
func (d *Dispatcher) Dispatch(ctx context.Context, c Client, frame []byte) {
	if d.closed.Load() {
		c.ReportError(protocol.ErrShuttingDown)
		return
	}

	req, perr := protocol.DecodeRequest(frame)
	if perr != nil {
		d.logger.Debug("rejecting frame", "session", c.ID(), "code", perr.Code)
		c.ReportError(perr)
		return
	}

	d.Execute(ctx, c, req)
}

// Execute runs a decoded request on behalf of c.
//
// Query results are replied to c. Mutation results reach c through the broadcast. Failures go to c only.
func (d *Dispatcher) Execute(ctx context.Context, c Client, req protocol.Request) commands.Result {
	if d.closed.Load() {
		c.ReportError(protocol.ErrShuttingDown)
		return commands.Fail(protocol.ErrShuttingDown)
	}

	cmd, ok := d.registry.Resolve(req.Command)
	if !ok {
		c.ReportError(protocol.ErrCommandNotFound)
		return commands.Fail(protocol.ErrCommandNotFound)
	}

	if cmd.Terminal() {
		d.quit(c, cmd)
		return commands.OK(nil)
	}
	return d.run(ctx, c, cmd, req.Arguments)
}

// Toggle flips play/pause of the loaded song on behalf of c without reloading it. The change is broadcast like any
// other mutation.
func (d *Dispatcher) Toggle(ctx context.Context, c Client) commands.Result {
	cmd, ok := d.registry.Local(commands.ToggleCommand)
	if !ok {
		c.ReportError(protocol.ErrCommandNotFound)
		return commands.Fail(protocol.ErrCommandNotFound)
	}
	return d.run(ctx, c, cmd, nil)
}

func (d *Dispatcher) run(ctx context.Context, c Client, cmd *commands.Command, args protocol.Arguments) commands.Result {
	if cmd.Mutates() {
		d.barrier.RLock()
		defer d.barrier.RUnlock()

		if d.closed.Load() {
			c.ReportError(protocol.ErrShuttingDown)
			return commands.Fail(protocol.ErrShuttingDown)
		}
	}

	res := d.registry.Execute(ctx, cmd, args, func(env protocol.Envelope) {
		d.hub.Broadcast(env)
	})

	switch {
	case res.Failed():
		c.ReportError(res.Err)
	case !res.Published:
		c.Reply(cmd.Name, args, res.Results)
	}

	d.logger.Debug("executed", "session", c.ID(), "command", cmd.Name, "kind", cmd.Kind, "failed", res.Failed())
	return res
}

// quit broadcasts the quit notice once, after every in-flight mutation has been broadcast.
func (d *Dispatcher) quit(c Client, cmd *commands.Command) {
	d.barrier.Lock()
	first := d.closed.CompareAndSwap(false, true)
	if first {
		d.hub.Broadcast(protocol.Notice(cmd.Name))
	}
	d.barrier.Unlock()

	if first {
		d.logger.Warn("quit requested", "session", c.ID())
		d.onQuit()
	}
}
