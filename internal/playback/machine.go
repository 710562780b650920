package playback

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/media"
	"github.com/desertthunder/ytplay/internal/shared"
)

// DefaultCommandTimeout bounds a single engine call when no timeout is configured.
const DefaultCommandTimeout = 10 * time.Second

type Options struct {
	CommandTimeout time.Duration
	Logger         *log.Logger
}

// Machine serializes playback mutations against one [media.Engine].
type Machine struct {
	gate    sync.Mutex
	engine  media.Engine
	timeout time.Duration
	logger  *log.Logger

	mu    sync.RWMutex
	state State
}

// New creates an Idle machine driving engine.
func New(engine media.Engine, opts Options) *Machine {
	timeout := opts.CommandTimeout
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Machine{
		engine:  engine,
		timeout: timeout,
		logger:  shared.WithLogger(logger, "component", "playback"),
		state:   State{Queue: []Entry{}},
	}
}

// Update runs fn with exclusive access to the player.
//
// When fn returns nil the state it produced is committed and commit, if non-nil, is called with it before the gate is
// released. When fn fails the prior state is kept and commit is not called.
func (m *Machine) Update(ctx context.Context, fn func(*Tx) error, commit func(State)) error {
	m.gate.Lock()
	defer m.gate.Unlock()

	if err := ctx.Err(); err != nil {
		return shared.Interrupted(ctx, err)
	}

	tx := &Tx{ctx: ctx, machine: m, state: m.Snapshot()}
	if err := fn(tx); err != nil {
		m.logger.Debug("mutation rejected", "error", err)
		return err
	}

	tx.state.Playing = m.engine.Playing()
	next := tx.state.Clone()

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	if commit != nil {
		commit(next.Clone())
	}
	return nil
}

// Snapshot returns a copy of the committed state without waiting for an in-flight mutation.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Clone()
}

// Close waits for any in-flight mutation and releases the engine.
func (m *Machine) Close() error {
	m.gate.Lock()
	defer m.gate.Unlock()
	return m.engine.Close()
}

// Tx is the view of the player given to an [Machine.Update] callback. It must not be retained.
type Tx struct {
	ctx     context.Context
	machine *Machine
	state   State
}

func (t *Tx) call(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(t.ctx, t.machine.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		if ctx.Err() != nil {
			return shared.Interrupted(ctx, err)
		}
		return err
	}
	return nil
}

// State returns the state as modified so far by this transaction.
func (t *Tx) State() State {
	return t.state.Clone()
}

// Playing reads the engine's playing flag.
func (t *Tx) Playing() bool {
	return t.machine.engine.Playing()
}

// Load replaces the queue with source and leaves it paused. Entries queued while Idle are kept behind the loaded
// entry and re-queued on the engine.
func (t *Tx) Load(source, song string) error {
	var pending []Entry
	if t.state.Idle() {
		pending = t.state.Queue
	}

	engine := t.machine.engine
	if err := t.call(func(ctx context.Context) error { return engine.Load(ctx, source, song) }); err != nil {
		return err
	}
	for _, e := range pending {
		if err := t.call(func(ctx context.Context) error { return engine.Queue(ctx, e.Source, e.Song) }); err != nil {
			return err
		}
	}

	t.state.Source = source
	t.state.Song = song
	t.state.Queue = append([]Entry{{Source: source, Song: song}}, pending...)
	t.state.Position = 0
	t.state.Playing = false
	return nil
}

func (t *Tx) Play() error {
	if t.state.Idle() {
		return shared.ErrNothingLoaded
	}
	if err := t.call(t.machine.engine.Play); err != nil {
		return err
	}
	t.state.Playing = true
	return nil
}

func (t *Tx) Pause() error {
	if t.state.Idle() {
		return shared.ErrNothingLoaded
	}
	if err := t.call(t.machine.engine.Pause); err != nil {
		return err
	}
	t.state.Playing = false
	return nil
}

// Toggle pauses when playing and plays otherwise, returning the new playing flag.
func (t *Tx) Toggle() (bool, error) {
	if t.Playing() {
		return false, t.Pause()
	}
	return true, t.Play()
}

// Reload loads source unconditionally and then flips the playing flag observed before the load, returning the new
// flag. Reloading a playing song therefore leaves it paused.
func (t *Tx) Reload(source, song string) (bool, error) {
	wasPlaying := t.Playing()
	if err := t.Load(source, song); err != nil {
		return false, err
	}
	if wasPlaying {
		return false, t.Pause()
	}
	return true, t.Play()
}

// Seek moves to an absolute position in seconds within the current entry.
func (t *Tx) Seek(seconds float64) error {
	if t.state.Idle() {
		return shared.ErrNothingLoaded
	}
	return t.call(func(ctx context.Context) error { return t.machine.engine.Seek(ctx, seconds) })
}

func (t *Tx) Next() error {
	return t.step(1)
}

func (t *Tx) Previous() error {
	return t.step(-1)
}

func (t *Tx) step(delta int) error {
	if t.state.Idle() {
		return shared.ErrNothingLoaded
	}

	target := t.state.Position + delta
	if target < 0 || target >= len(t.state.Queue) {
		return shared.ErrQueueExhausted
	}

	engine := t.machine.engine
	move := engine.Next
	if delta < 0 {
		move = engine.Previous
	}
	if err := t.call(move); err != nil {
		return err
	}

	entry := t.state.Queue[target]
	t.state.Position = target
	t.state.Source = entry.Source
	t.state.Song = entry.Song
	return nil
}

// Queue appends an entry. When Idle nothing is loaded; the entry waits behind the next loaded song.
func (t *Tx) Queue(source, song string) error {
	if err := t.call(func(ctx context.Context) error { return t.machine.engine.Queue(ctx, source, song) }); err != nil {
		return err
	}
	t.state.Queue = append(t.state.Queue, Entry{Source: source, Song: song})
	return nil
}
