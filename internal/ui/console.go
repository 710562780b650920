package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytplay/internal/commands"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/server"
	"github.com/desertthunder/ytplay/internal/shared"
)

// DefaultEventBuffer is the number of undelivered console events before the hub drops the console.
const DefaultEventBuffer = 64

// Executor runs requests on behalf of a client. [server.Dispatcher] implements it.
type Executor interface {
	Execute(ctx context.Context, c server.Client, req protocol.Request) commands.Result
	Toggle(ctx context.Context, c server.Client) commands.Result
}

// Console is the in-process client behind the prompt. It joins the hub like a websocket session,
// so it sees every broadcast, and turns each console line into protocol requests.
type Console struct {
	id       string
	executor Executor
	state    func() playback.State
	logger   *log.Logger

	mu     sync.Mutex
	closed bool
	events chan Msg
}

var (
	_ server.Client = (*Console)(nil)
	_ server.Member = (*Console)(nil)
)

// NewConsole creates a console executing through executor. state reads the current player state
// and is consulted by the bare p toggle.
func NewConsole(executor Executor, state func() playback.State, logger *log.Logger) *Console {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	id := "console-" + shared.GenerateID()
	return &Console{
		id:       id,
		executor: executor,
		state:    state,
		logger:   shared.WithLogger(logger, "session", id),
		events:   make(chan Msg, DefaultEventBuffer),
	}
}

func (c *Console) ID() string { return c.id }

// Deliver decodes a broadcast frame into an event. It reports false once the console is closed or its buffer is full.
func (c *Console) Deliver(frame []byte) bool {
	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.logger.Warn("undecodable frame", "error", err)
		return true
	}
	return c.push(envelopeMsg(env))
}

func (c *Console) Reply(command string, args protocol.Arguments, results protocol.Results) bool {
	return c.push(envelopeMsg(protocol.Reply(command, args, results)))
}

func (c *Console) ReportError(err *protocol.Error) bool {
	return c.push(envelopeMsg(protocol.Failure(err)))
}

// Close ends the event stream. The prompt exits after draining it.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}

func (c *Console) note(format string, args ...any) {
	c.push(noteMsg(fmt.Sprintf(format, args...)))
}

func (c *Console) push(msg Msg) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- msg:
		return true
	default:
		return false
	}
}

// Wait returns a command that blocks for the next console event.
func (c *Console) Wait() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-c.events
		if !ok {
			return closedMsg()
		}
		return msg
	}
}

// Run executes one console line. Protocol failures reach the event stream through ReportError;
// the returned error covers what the console decides locally.
func (c *Console) Run(ctx context.Context, line Line) error {
	switch {
	case line.Toggle():
		if c.state().Idle() {
			return shared.ErrNothingLoaded
		}
		c.logger.Debug("console request", "command", commands.ToggleCommand)
		c.executor.Toggle(ctx, c)
		return nil
	case line.Verb == LoadVerb || line.Verb == PlayVerb:
		return c.searchThen(ctx, line.Query, commands.PlayCommand)
	case line.Verb == AppendVerb:
		return c.searchThen(ctx, line.Query, commands.QueueCommand)
	case line.Verb == SeekVerb:
		c.execute(ctx, commands.SeekCommand, protocol.Arguments{"time": line.Seconds})
	case line.Verb == NextVerb:
		c.execute(ctx, commands.NextCommand, nil)
	case line.Verb == PreviousVerb:
		c.execute(ctx, commands.PreviousCommand, nil)
	case line.Verb == QuitVerb:
		c.note("Exiting")
		c.execute(ctx, commands.QuitCommand, nil)
	default:
		return fmt.Errorf("%w: invalid command %s", shared.ErrInvalidInput, line.Verb)
	}
	return nil
}

// searchThen runs search for query and issues command with the first result.
func (c *Console) searchThen(ctx context.Context, query, command string) error {
	c.note("Searching: %s", query)
	res := c.execute(ctx, commands.SearchCommand, protocol.Arguments{"query": query})
	if res.Failed() {
		return nil
	}

	tracks, err := commands.Tracks(res.Results)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, query)
	}

	first := tracks[0]
	if command == commands.QueueCommand {
		c.note("Queueing: %s", first.Label())
	} else {
		c.note("Loading: %s", first.Label())
	}
	c.execute(ctx, command, protocol.Arguments{"source": first.ID, "song": first.Label()})
	return nil
}

func (c *Console) execute(ctx context.Context, command string, args protocol.Arguments) commands.Result {
	c.logger.Debug("console request", "command", command)
	return c.executor.Execute(ctx, c, protocol.Request{Command: command, Arguments: args})
}
