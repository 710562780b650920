package server

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/shared"
)

const (
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultReadLimit  = 8192
	defaultSendBuffer = 64
)

// SessionOptions bounds one connection.
type SessionOptions struct {
	ReadLimit  int64
	SendBuffer int
	WriteWait  time.Duration
	// PongWait is how long the peer may stay silent; pings are sent at nine tenths of it.
	PongWait time.Duration
}

// SessionOptionsFrom reads the session limits out of the server configuration.
func SessionOptionsFrom(cfg shared.ServerConfig) SessionOptions {
	return SessionOptions{
		ReadLimit:  cfg.ReadLimit,
		SendBuffer: cfg.SendBuffer,
		WriteWait:  cfg.WriteWait.Duration,
		PongWait:   cfg.PongWait.Duration,
	}
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	return o
}

// Client is the issuer of a command.
type Client interface {
	ID() string
	Reply(command string, args protocol.Arguments, results protocol.Results) bool
	ReportError(err *protocol.Error) bool
}

// Session is one websocket connection.
type Session struct {
	id     string
	remote string
	conn   *websocket.Conn
	opts   SessionOptions
	logger *log.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	done   chan struct{}
}

// NewSession wraps an upgraded connection.
func NewSession(conn *websocket.Conn, opts SessionOptions, logger *log.Logger) *Session {
	opts = opts.withDefaults()
	if logger == nil {
		logger = log.New(io.Discard)
	}

	id := shared.GenerateID()
	return &Session{
		id:     id,
		remote: conn.RemoteAddr().String(),
		conn:   conn,
		opts:   opts,
		logger: shared.WithLogger(logger, "session", id),
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

// RemoteAddr returns the peer address.
func (s *Session) RemoteAddr() string {
	return s.remote
}

// Deliver implements [Member].
func (s *Session) Deliver(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// Close implements [Member]. The write pump flushes what is queued, sends a close frame and hangs up.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// Reply enqueues a success envelope.
func (s *Session) Reply(command string, args protocol.Arguments, results protocol.Results) bool {
	return s.enqueue(protocol.Reply(command, args, results))
}

// ReportError enqueues a failure envelope.
func (s *Session) ReportError(err *protocol.Error) bool {
	return s.enqueue(protocol.Failure(err))
}

func (s *Session) enqueue(env protocol.Envelope) bool {
	frame, err := protocol.Encode(env)
	if err != nil {
		s.logger.Error("failed to encode envelope", "error", err)
		return false
	}
	if !s.Deliver(frame) {
		s.logger.Warn("send queue unavailable, dropping envelope", "command", env.Command)
		return false
	}
	return true
}

// Done is closed once the write pump has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ReadPump reads text frames and hands each to handle, one at a time, until the connection fails.
func (s *Session) ReadPump(ctx context.Context, handle func(ctx context.Context, frame []byte)) {
	defer s.conn.Close()

	s.conn.SetReadLimit(s.opts.ReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	for {
		kind, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			s.logger.Debug("ignoring non-text frame", "type", kind)
			continue
		}

		handle(ctx, frame)
	}
}

// WritePump drains the send queue to the connection and keeps it alive with pings.
func (s *Session) WritePump() {
	ticker := time.NewTicker(s.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		close(s.done)
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Warn("websocket write error", "error", err)
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
