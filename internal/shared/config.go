package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Player   PlayerConfig   `toml:"player"`
	Search   SearchConfig   `toml:"search"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains websocket server settings.
type ServerConfig struct {
	Host       string   `toml:"host"`
	Port       int      `toml:"port"`
	Path       string   `toml:"path"`
	ReadLimit  int64    `toml:"read_limit"`  // Maximum inbound frame size in bytes
	SendBuffer int      `toml:"send_buffer"` // Per-session outbound queue length
	WriteWait  Duration `toml:"write_wait"`
	PongWait   Duration `toml:"pong_wait"`
}

// PlayerConfig selects and configures the media engine.
type PlayerConfig struct {
	Engine         string   `toml:"engine"` // "mpv" or "memory"
	MPVPath        string   `toml:"mpv_path"`
	SocketPath     string   `toml:"socket_path"`
	SourceTemplate string   `toml:"source_template"`
	CommandTimeout Duration `toml:"command_timeout"`
}

// SearchConfig contains search provider settings.
type SearchConfig struct {
	ProxyURL  string   `toml:"proxy_url"`
	Timeout   Duration `toml:"timeout"`
	RateLimit float64  `toml:"rate_limit"` // Requests per second against the proxy
	Burst     int      `toml:"burst"`
	Cache     bool     `toml:"cache"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"` // Log destination for the console; empty means ./tmp/ytplay-console.log
}

// Duration is a [time.Duration] that decodes from strings such as "10s" or "1m30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads the config at path when it exists and falls back to [DefaultConfig] otherwise.
func LoadConfigOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first setting that cannot be used to start the server.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("%w: server.path must start with /", ErrInvalidConfig)
	}
	if c.Server.Path == "/healthz" {
		return fmt.Errorf("%w: server.path /healthz is reserved for the health check", ErrInvalidConfig)
	}
	if c.Server.SendBuffer <= 0 {
		return fmt.Errorf("%w: server.send_buffer must be positive", ErrInvalidConfig)
	}

	switch c.Player.Engine {
	case "mpv":
		if c.Player.MPVPath == "" {
			return fmt.Errorf("%w: player.mpv_path is required for the mpv engine", ErrInvalidConfig)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown player.engine %q", ErrInvalidConfig, c.Player.Engine)
	}

	if c.Player.CommandTimeout.Duration <= 0 {
		return fmt.Errorf("%w: player.command_timeout must be positive", ErrInvalidConfig)
	}
	if c.Search.Timeout.Duration <= 0 {
		return fmt.Errorf("%w: search.timeout must be positive", ErrInvalidConfig)
	}
	if c.Search.RateLimit < 0 {
		return fmt.Errorf("%w: search.rate_limit cannot be negative", ErrInvalidConfig)
	}

	return nil
}
