package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/ytplay/internal/commands"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
// Common middleware includes logging, recovery, CORS, etc.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the playback server.
// Implementations handle specific endpoints (health, status).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// DefaultShutdownTimeout bounds how long Shutdown waits for sessions to flush.
const DefaultShutdownTimeout = 5 * time.Second

// Server accepts websocket sessions and dispatches their commands against one playback machine.
type Server struct {
	cfg        shared.ServerConfig
	machine    *playback.Machine
	hub        *Hub
	dispatcher *Dispatcher
	router     *BasicRouter
	upgrader   websocket.Upgrader
	logger     *log.Logger

	http *http.Server

	// draining is set by Shutdown under mu; no session is added to sessions afterwards.
	mu       sync.Mutex
	draining bool
	sessions sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
	stop     chan struct{}
}

// New wires a server around registry and machine.
func New(cfg shared.ServerConfig, registry *commands.Registry, machine *playback.Machine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		machine: machine,
		hub:     NewHub(logger),
		router:  NewBasicRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: shared.WithLogger(logger, "component", "server"),
		ctx:    ctx,
		cancel: cancel,
		stop:   make(chan struct{}),
	}
	s.dispatcher = NewDispatcher(registry, s.hub, s.requestStop, logger)

	path := cfg.Path
	if path == "" {
		path = "/"
	}

	s.router.Use(Recover(s.logger), LogRequests(s.logger))
	s.router.Handler(NewHealthHandler(s.hub, machine))
	s.router.Handle(http.MethodGet, path, http.HandlerFunc(s.serveWS))

	return s
}

// Hub returns the live session set.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Dispatcher returns the dispatcher shared by every session.
func (s *Server) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Context is canceled when the server shuts down.
func (s *Server) Context() context.Context {
	return s.ctx
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Stopped is closed once quit has been requested.
func (s *Server) Stopped() <-chan struct{} {
	return s.stop
}

// Stop asks a running Serve to shut down, as quit does.
func (s *Server) Stop() {
	s.requestStop()
}

func (s *Server) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// track counts a new session handler unless Shutdown has started.
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draining {
		return false
	}
	s.sessions.Add(1)
	return true
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if s.dispatcher.Closed() || !s.track() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.sessions.Done()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "remote", r.RemoteAddr, "error", err)
		return
	}

	session := NewSession(conn, SessionOptionsFrom(s.cfg), s.logger)
	if !s.hub.Register(session) {
		_ = conn.Close()
		return
	}

	s.logger.Info("session connected", "session", session.ID(), "remote", session.RemoteAddr())

	go session.WritePump()
	session.ReadPump(s.ctx, func(ctx context.Context, frame []byte) {
		s.dispatcher.Dispatch(ctx, session, frame)
	})

	s.hub.Unregister(session)
	<-session.Done()
	s.logger.Info("session disconnected", "session", session.ID())
}

// ListenAndServe listens on the configured address and serves until ctx ends or a client issues quit, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts sessions on l until ctx ends or quit is requested.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("websocket server listening", "addr", l.Addr().String(), "routes", s.router.Routes())
		errs <- s.http.Serve(l)
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down", "reason", ctx.Err())
	case <-s.stop:
		s.logger.Info("shutting down", "reason", "quit")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown closes every session after its queued frames are flushed, stops accepting connections and waits for
// session handlers to exit or ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.requestStop()

	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	s.hub.Close()

	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}

	waited := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(waited)
	}()

	select {
	case <-waited:
	case <-ctx.Done():
		if err == nil {
			err = fmt.Errorf("%w: sessions still open", shared.ErrTimeout)
		}
	}

	s.cancel()
	return err
}
