package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/ytplay/internal/shared"
)

// Call records one command received by a [Memory] engine.
type Call struct {
	Name string
	Args []any
}

// Memory is an in-process [Engine] that keeps a playlist and a playing flag without decoding audio.
type Memory struct {
	mu       sync.Mutex
	playlist []string
	index    int
	playing  bool
	position float64
	closed   bool
	calls    []Call

	// Fail, when set, is consulted before every command; a non-nil return rejects the command.
	Fail func(name string) error
}

// NewMemory creates an idle [Memory] engine.
func NewMemory() *Memory {
	return &Memory{index: -1}
}

func (m *Memory) record(name string, args ...any) error {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Name: name, Args: args})
	closed := m.closed
	fail := m.Fail
	m.mu.Unlock()

	if closed {
		return shared.ErrEngineClosed
	}
	if fail != nil {
		if err := fail(name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Load(ctx context.Context, source, song string) error {
	if err := m.record("load", source, song); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playlist = []string{source}
	m.index = 0
	m.playing = false
	m.position = 0
	return nil
}

func (m *Memory) Play(ctx context.Context) error {
	if err := m.record("play"); err != nil {
		return err
	}
	m.mu.Lock()
	m.playing = true
	m.mu.Unlock()
	return nil
}

func (m *Memory) Pause(ctx context.Context) error {
	if err := m.record("pause"); err != nil {
		return err
	}
	m.mu.Lock()
	m.playing = false
	m.mu.Unlock()
	return nil
}

func (m *Memory) Seek(ctx context.Context, seconds float64) error {
	if err := m.record("seek", seconds); err != nil {
		return err
	}
	m.mu.Lock()
	m.position = seconds
	m.mu.Unlock()
	return nil
}

func (m *Memory) Next(ctx context.Context) error {
	return m.step("next", 1)
}

func (m *Memory) Previous(ctx context.Context) error {
	return m.step("previous", -1)
}

func (m *Memory) step(name string, delta int) error {
	if err := m.record(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	target := m.index + delta
	if target < 0 || target >= len(m.playlist) {
		return fmt.Errorf("%w: no playlist entry at %d", shared.ErrEngine, target)
	}
	m.index = target
	m.position = 0
	return nil
}

func (m *Memory) Queue(ctx context.Context, source, song string) error {
	if err := m.record("queue", source, song); err != nil {
		return err
	}
	m.mu.Lock()
	m.playlist = append(m.playlist, source)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Calls returns a copy of every command received so far.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// Current returns the source at the playlist cursor, or "" when nothing is loaded.
func (m *Memory) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index < 0 {
		return ""
	}
	return m.playlist[m.index]
}

// Position returns the last position passed to Seek.
func (m *Memory) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}
