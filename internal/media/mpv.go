package media

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/shared"
)

const (
	dialInterval = 50 * time.Millisecond
	dialTimeout  = 5 * time.Second
	closeTimeout = 3 * time.Second
)

// ipcRequest is one line written to the mpv IPC socket.
type ipcRequest struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id,omitempty"`
}

// ipcResponse is one line read from the mpv IPC socket: a command reply or an event.
type ipcResponse struct {
	RequestID int64  `json:"request_id,omitempty"`
	Error     string `json:"error"`
	Data      any    `json:"data,omitempty"`
	Event     string `json:"event,omitempty"`
	Name      string `json:"name,omitempty"`
}

// MPVOptions configures how the mpv subprocess is spawned.
type MPVOptions struct {
	// Path is the mpv executable, "mpv" when empty.
	Path string
	// SocketPath is the IPC socket; a temporary path is generated when empty.
	SocketPath string
	// SourceTemplate expands bare ids, see [ResolveSource].
	SourceTemplate string
	Logger         *log.Logger
}

// MPV drives an mpv process over its JSON IPC socket.
type MPV struct {
	template string
	logger   *log.Logger
	cmd      *exec.Cmd
	socket   string
	conn     net.Conn

	writeMu sync.Mutex
	enc     *json.Encoder

	mu      sync.Mutex
	pending map[int64]chan ipcResponse
	nextID  atomic.Int64

	paused atomic.Bool
	idle   atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// StartMPV spawns mpv in idle mode and connects to its IPC socket.
func StartMPV(ctx context.Context, opts MPVOptions) (*MPV, error) {
	bin := opts.Path
	if bin == "" {
		bin = "mpv"
	}
	socket := opts.SocketPath
	if socket == "" {
		socket = filepath.Join(os.TempDir(), "ytplay-"+shared.GenerateID()+".sock")
	}

	cmd := exec.Command(bin,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--input-ipc-server="+socket,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %v", shared.ErrEngine, bin, err)
	}

	conn, err := dialSocket(ctx, socket)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	m := newMPV(conn, opts)
	m.cmd = cmd
	m.socket = socket
	if err := m.observe(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

// DialMPV connects to an mpv instance that is already listening on socket.
func DialMPV(ctx context.Context, socket string, opts MPVOptions) (*MPV, error) {
	conn, err := dialSocket(ctx, socket)
	if err != nil {
		return nil, err
	}

	m := newMPV(conn, opts)
	if err := m.observe(ctx); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func dialSocket(ctx context.Context, socket string) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "unix", socket)
		if err == nil {
			return conn, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: mpv socket %s not reachable: %v", shared.ErrTimeout, socket, err)
		case <-time.After(dialInterval):
		}
	}
}

func newMPV(conn net.Conn, opts MPVOptions) *MPV {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	m := &MPV{
		template: opts.SourceTemplate,
		logger:   shared.WithLogger(logger, "component", "mpv"),
		conn:     conn,
		enc:      json.NewEncoder(conn),
		pending:  make(map[int64]chan ipcResponse),
		done:     make(chan struct{}),
	}
	m.paused.Store(true)
	m.idle.Store(true)

	go m.readLoop()
	return m
}

// observe subscribes to the properties that make up the playing flag.
func (m *MPV) observe(ctx context.Context) error {
	if _, err := m.request(ctx, "observe_property", 1, "pause"); err != nil {
		return err
	}
	_, err := m.request(ctx, "observe_property", 2, "idle-active")
	return err
}

func (m *MPV) readLoop() {
	defer m.shutdown(io.EOF)

	scanner := bufio.NewScanner(m.conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var resp ipcResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			m.logger.Warn("discarding malformed ipc line", "error", err)
			continue
		}

		if resp.Event != "" {
			m.handleEvent(resp)
			continue
		}

		m.mu.Lock()
		ch, ok := m.pending[resp.RequestID]
		delete(m.pending, resp.RequestID)
		m.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	if err := scanner.Err(); err != nil {
		m.logger.Debug("ipc read stopped", "error", err)
	}
}

func (m *MPV) handleEvent(resp ipcResponse) {
	if resp.Event != "property-change" {
		m.logger.Debug("mpv event", "event", resp.Event)
		return
	}

	flag, ok := resp.Data.(bool)
	if !ok {
		return
	}
	switch resp.Name {
	case "pause":
		m.paused.Store(flag)
	case "idle-active":
		m.idle.Store(flag)
	}
}

// request writes one command and waits for the matching reply.
func (m *MPV) request(ctx context.Context, args ...any) (any, error) {
	select {
	case <-m.done:
		return nil, shared.ErrEngineClosed
	default:
	}

	id := m.nextID.Add(1)
	ch := make(chan ipcResponse, 1)

	m.mu.Lock()
	m.pending[id] = ch
	m.mu.Unlock()

	forget := func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}

	m.writeMu.Lock()
	deadline, _ := ctx.Deadline()
	_ = m.conn.SetWriteDeadline(deadline)
	err := m.enc.Encode(ipcRequest{Command: args, RequestID: id})
	m.writeMu.Unlock()
	if err != nil {
		forget()
		return nil, fmt.Errorf("%w: write %v: %v", shared.ErrEngine, args[0], err)
	}

	select {
	case resp := <-ch:
		if resp.Error != "success" {
			return nil, fmt.Errorf("%w: %v: %s", shared.ErrEngine, args[0], resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		forget()
		return nil, shared.Interrupted(ctx, fmt.Errorf("%v: %w", args[0], ctx.Err()))
	case <-m.done:
		return nil, shared.ErrEngineClosed
	}
}

func (m *MPV) setPause(ctx context.Context, pause bool) error {
	if _, err := m.request(ctx, "set_property", "pause", pause); err != nil {
		return err
	}
	m.paused.Store(pause)
	return nil
}

// Load replaces the mpv playlist with source and pauses it.
func (m *MPV) Load(ctx context.Context, source, song string) error {
	if err := m.setPause(ctx, true); err != nil {
		return err
	}
	if _, err := m.request(ctx, "loadfile", ResolveSource(m.template, source), "replace"); err != nil {
		return err
	}
	m.idle.Store(false)
	m.logger.Debug("loaded", "source", source, "song", song)
	return nil
}

func (m *MPV) Play(ctx context.Context) error {
	return m.setPause(ctx, false)
}

func (m *MPV) Pause(ctx context.Context) error {
	return m.setPause(ctx, true)
}

func (m *MPV) Seek(ctx context.Context, seconds float64) error {
	_, err := m.request(ctx, "seek", seconds, "absolute")
	return err
}

func (m *MPV) Next(ctx context.Context) error {
	_, err := m.request(ctx, "playlist-next", "force")
	return err
}

func (m *MPV) Previous(ctx context.Context) error {
	_, err := m.request(ctx, "playlist-prev", "force")
	return err
}

// Queue appends source to the mpv playlist without interrupting playback.
func (m *MPV) Queue(ctx context.Context, source, song string) error {
	_, err := m.request(ctx, "loadfile", ResolveSource(m.template, source), "append")
	return err
}

// Playing reports the last observed pause and idle properties.
func (m *MPV) Playing() bool {
	return !m.paused.Load() && !m.idle.Load()
}

// Close asks mpv to quit, then tears down the socket and the subprocess.
func (m *MPV) Close() error {
	m.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if _, err := m.request(ctx, "quit"); err != nil && !errors.Is(err, shared.ErrEngineClosed) {
			m.logger.Debug("quit request failed", "error", err)
		}

		m.shutdown(shared.ErrEngineClosed)

		if m.cmd != nil {
			waited := make(chan error, 1)
			go func() { waited <- m.cmd.Wait() }()
			select {
			case <-waited:
			case <-ctx.Done():
				_ = m.cmd.Process.Kill()
				<-waited
			}
		}
		if m.socket != "" {
			_ = os.Remove(m.socket)
		}
	})

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeErr
}

func (m *MPV) shutdown(reason error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.done:
		return
	default:
	}
	close(m.done)

	if err := m.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		m.closeErr = err
	}
	m.logger.Debug("ipc connection closed", "reason", reason)
}
