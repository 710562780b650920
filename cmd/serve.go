package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/desertthunder/ytplay/internal/ui"
)

// defaultConsoleLog receives log output while the console owns the terminal.
const defaultConsoleLog = "./tmp/ytplay-console.log"

// Serve runs the websocket server until a client sends quit or the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := int(cmd.Int("port")); port != 0 {
		r.config.Server.Port = port
	}
	if engine := cmd.String("engine"); engine != "" {
		r.config.Player.Engine = engine
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if cmd.Bool("console") {
		return r.runConsole(ctx, "")
	}
	return r.serve(ctx)
}

// Console runs the server with the console attached. Extra arguments become an initial "p <words>" line.
func (r *Runner) Console(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}
	if engine := cmd.String("engine"); engine != "" {
		r.config.Player.Engine = engine
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	var initial string
	if words := strings.Join(cmd.Args().Slice(), " "); strings.TrimSpace(words) != "" {
		initial = "p " + words
	}
	return r.runConsole(ctx, initial)
}

func (r *Runner) serve(ctx context.Context) error {
	st, err := r.build(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	r.logger.Info("starting server", "addr", r.config.Server.Addr(), "engine", r.config.Player.Engine)
	if err := st.server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	r.logger.Info("server stopped")
	return nil
}

// runConsole serves in the background while the bubbletea console runs in the foreground.
//
// Leaving the console stops the server, and a quit from any client closes the console.
func (r *Runner) runConsole(ctx context.Context, initial string) error {
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = defaultConsoleLog
	}
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	st, err := r.build(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	l, err := net.Listen("tcp", r.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", r.config.Server.Addr(), err)
	}

	console := ui.NewConsole(st.server.Dispatcher(), st.machine.Snapshot, r.logger)
	if !st.server.Hub().Register(console) {
		l.Close()
		return fmt.Errorf("%w: server closed before the console joined", shared.ErrServiceUnavailable)
	}

	served := make(chan error, 1)
	go func() {
		served <- st.server.Serve(ctx, l)
	}()

	program := tea.NewProgram(ui.NewModel(ctx, console, initial), tea.WithContext(ctx))
	_, runErr := program.Run()

	st.server.Stop()
	serveErr := <-served

	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("error running console: %w", runErr)
	}
	if serveErr != nil {
		return fmt.Errorf("server error: %w", serveErr)
	}
	return nil
}
