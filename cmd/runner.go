package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytplay/internal/commands"
	"github.com/desertthunder/ytplay/internal/media"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/repositories"
	"github.com/desertthunder/ytplay/internal/server"
	"github.com/desertthunder/ytplay/internal/services"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	pinned     bool
	searcher   services.Searcher
	engine     media.Engine
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as is and the --config flag is ignored. Searcher and Engine replace the
// configured search provider and media engine.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Searcher   services.Searcher
	Engine     media.Engine
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	pinned := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		pinned:     pinned,
		searcher:   opts.Searcher,
		engine:     opts.Engine,
		httpClient: opts.HTTPClient,
		dialer:     opts.Dialer,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, consoleCommand, searchCommand, remoteCommand, setupCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by every later action.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig reads the configuration file at path when it exists and applies its log level.
//
// Callers validate after applying flag overrides.
func (r *Runner) loadConfig(path string) error {
	if !r.pinned {
		if path == "" {
			path = r.configPath
		}
		config, err := shared.LoadConfigOrDefault(path)
		if err != nil {
			return err
		}
		r.config = config
		r.configPath = path
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	return nil
}

// openSearcher builds the search provider chain: proxy client, optional sqlite cache, rate limit and timeout.
//
// The returned func releases the cache database.
func (r *Runner) openSearcher(useCache bool) (services.Searcher, func() error, error) {
	noop := func() error { return nil }
	if r.searcher != nil {
		return r.searcher, noop, nil
	}

	cfg := r.config.Search
	youtube := services.NewYouTubeService(cfg.ProxyURL, r.httpClient)
	opts := services.CachedSearcherOptions{
		CacheTTL:  cfg.CacheTTL.Duration,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.Burst,
		Timeout:   cfg.Timeout.Duration,
		Logger:    r.logger,
	}

	closer := noop
	if cfg.Cache && useCache {
		db, err := shared.OpenCache(r.config.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open search cache: %w", err)
		}
		opts.Cache = repositories.NewTrackCacheAdapter(
			repositories.NewTrackRepository(db),
			repositories.NewSearchRepository(db),
			services.ServiceName,
		)
		closer = db.Close
	}

	return services.NewCachedSearcher(youtube, opts), closer, nil
}

// openEngine starts the configured media engine.
func (r *Runner) openEngine(ctx context.Context) (media.Engine, error) {
	if r.engine != nil {
		return r.engine, nil
	}

	cfg := r.config.Player
	switch cfg.Engine {
	case "memory":
		return media.NewMemory(), nil
	case "mpv":
		return media.StartMPV(ctx, media.MPVOptions{
			Path:           cfg.MPVPath,
			SocketPath:     cfg.SocketPath,
			SourceTemplate: cfg.SourceTemplate,
			Logger:         r.logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown player.engine %q", shared.ErrInvalidConfig, cfg.Engine)
	}
}

// stack is one fully wired playback server.
type stack struct {
	machine  *playback.Machine
	registry *commands.Registry
	server   *server.Server
	closers  []func() error
}

// build wires the searcher, engine, machine, registry and server from the loaded configuration.
func (r *Runner) build(ctx context.Context) (*stack, error) {
	searcher, closeCache, err := r.openSearcher(true)
	if err != nil {
		return nil, err
	}

	engine, err := r.openEngine(ctx)
	if err != nil {
		closeCache()
		return nil, err
	}

	machine := playback.New(engine, playback.Options{
		CommandTimeout: r.config.Player.CommandTimeout.Duration,
		Logger:         r.logger,
	})
	registry := commands.NewRegistry(commands.Deps{
		Machine:  machine,
		Searcher: searcher,
		Logger:   r.logger,
	})

	return &stack{
		machine:  machine,
		registry: registry,
		server:   server.New(r.config.Server, registry, machine, r.logger),
		closers:  []func() error{closeCache, machine.Close},
	}, nil
}

// Close releases the engine and the cache, most recently opened first.
func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
