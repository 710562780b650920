package commands

import (
	"context"
	"io"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/services"
	"github.com/desertthunder/ytplay/internal/shared"
)

type Kind int

const (
	Query Kind = iota
	Mutation
	Terminal
)

func (k Kind) String() string {
	switch k {
	case Query:
		return "query"
	case Mutation:
		return "mutation"
	case Terminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Result is the outcome of one command. Exactly one of Results or Err is meaningful.
//
// Published is set when the outcome was already delivered through the publish hook and must not also be replied.
type Result struct {
	Results   protocol.Results
	Err       *protocol.Error
	Published bool
}

// OK wraps a success payload.
func OK(results protocol.Results) Result {
	return Result{Results: results}
}

// Fail wraps a taxonomy error.
func Fail(err *protocol.Error) Result {
	return Result{Err: err}
}

// Failed reports whether the command failed.
func (r Result) Failed() bool {
	return r.Err != nil
}

type (
	validateFunc func(args protocol.Arguments) *protocol.Error
	queryFunc    func(ctx context.Context, args protocol.Arguments) (protocol.Results, error)
	mutateFunc   func(tx *playback.Tx, args protocol.Arguments) (protocol.Results, error)
)

// Command is one named entry of the registry.
type Command struct {
	Name  string
	Usage string
	Kind  Kind
	Local bool // only in-process clients may run it

	validate validateFunc
	query    queryFunc
	mutate   mutateFunc
}

// Mutates reports whether the command changes playback state.
func (c *Command) Mutates() bool {
	return c.Kind == Mutation
}

// Terminal reports whether the command ends the server.
func (c *Command) Terminal() bool {
	return c.Kind == Terminal
}

// Publisher delivers a success notification to every live session.
type Publisher func(protocol.Envelope)

// Deps are the collaborators handlers act on.
type Deps struct {
	Machine  *playback.Machine
	Searcher services.Searcher
	Logger   *log.Logger
}

// Registry resolves command names and runs them.
type Registry struct {
	machine  *playback.Machine
	searcher services.Searcher
	logger   *log.Logger
	commands map[string]*Command
}

// NewRegistry creates a registry holding the built-in command set.
func NewRegistry(deps Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	r := &Registry{
		machine:  deps.Machine,
		searcher: deps.Searcher,
		logger:   shared.WithLogger(logger, "component", "commands"),
		commands: make(map[string]*Command),
	}

	for _, c := range r.builtins() {
		r.commands[c.Name] = c
	}
	return r
}

// Resolve looks up a command by its wire name. Local commands are not found.
func (r *Registry) Resolve(name string) (*Command, bool) {
	c, ok := r.commands[name]
	if !ok || c.Local {
		return nil, false
	}
	return c, true
}

// Local looks up any command by name, including the ones only in-process clients may run.
func (r *Registry) Local(name string) (*Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// Commands returns every wire command sorted by name.
func (r *Registry) Commands() []*Command {
	out := make([]*Command, 0, len(r.commands))
	for _, c := range r.commands {
		if c.Local {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute validates args and runs c.
//
// A successful mutation calls publish exactly once with the notification envelope, while the playback gate is still
// held, and returns a Result with Published set. Failures never publish. Terminal commands do nothing here; ending the
// server is the caller's job.
func (r *Registry) Execute(ctx context.Context, c *Command, args protocol.Arguments, publish Publisher) Result {
	if c.validate != nil {
		if err := c.validate(args); err != nil {
			return Fail(err)
		}
	}

	switch c.Kind {
	case Query:
		results, err := c.query(ctx, args)
		if err != nil {
			r.logger.Warn("command failed", "command", c.Name, "error", err)
			return Fail(classify(err))
		}
		return OK(results)

	case Mutation:
		var results protocol.Results
		err := r.machine.Update(ctx, func(tx *playback.Tx) error {
			var err error
			results, err = c.mutate(tx, args)
			return err
		}, func(state playback.State) {
			if results == nil {
				results = protocol.Results{"state": state}
			}
			if publish != nil {
				publish(protocol.Reply(c.Name, args, results))
			}
		})
		if err != nil {
			r.logger.Warn("command failed", "command", c.Name, "error", err)
			return Fail(classify(err))
		}
		return Result{Results: results, Published: publish != nil}

	default:
		return OK(nil)
	}
}
