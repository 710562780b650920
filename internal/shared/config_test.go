package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Server.Port != 8081 {
			t.Errorf("expected server port 8081, got %d", config.Server.Port)
		}

		if config.Server.Path != "/" {
			t.Errorf("expected server path /, got %s", config.Server.Path)
		}

		if config.Player.Engine != "mpv" {
			t.Errorf("expected mpv engine, got %s", config.Player.Engine)
		}

		if config.Player.CommandTimeout.Duration != 10*time.Second {
			t.Errorf("expected command timeout 10s, got %v", config.Player.CommandTimeout)
		}

		if config.Search.ProxyURL != "http://127.0.0.1:8080" {
			t.Errorf("expected search proxy URL http://127.0.0.1:8080, got %s", config.Search.ProxyURL)
		}

		if config.Database.Path != "./ytplay.db" {
			t.Errorf("expected database path ./ytplay.db, got %s", config.Database.Path)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate, got %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[server]
host = "0.0.0.0"
port = 9000

[player]
engine = "memory"
command_timeout = "2s"

[search]
proxy_url = "http://localhost:9090"
rate_limit = 1.5
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Server.Addr() != "0.0.0.0:9000" {
			t.Errorf("expected addr 0.0.0.0:9000, got %s", config.Server.Addr())
		}

		if config.Player.Engine != "memory" {
			t.Errorf("expected memory engine, got %s", config.Player.Engine)
		}

		if config.Player.CommandTimeout.Duration != 2*time.Second {
			t.Errorf("expected command timeout 2s, got %v", config.Player.CommandTimeout)
		}

		if config.Search.RateLimit != 1.5 {
			t.Errorf("expected rate limit 1.5, got %v", config.Search.RateLimit)
		}

		t.Run("keeps defaults for omitted keys", func(t *testing.T) {
			if config.Server.Path != "/" {
				t.Errorf("expected default path /, got %s", config.Server.Path)
			}
			if config.Search.Timeout.Duration != 15*time.Second {
				t.Errorf("expected default search timeout 15s, got %v", config.Search.Timeout)
			}
		})
	})

	t.Run("LoadConfig rejects bad durations", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[player]\ncommand_timeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Fatal("expected parse error for invalid duration")
		}
	})

	t.Run("LoadConfigOrDefault", func(t *testing.T) {
		config, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
		if err != nil {
			t.Fatalf("expected defaults for missing file, got %v", err)
		}
		if config.Server.Port != DefaultConfig().Server.Port {
			t.Errorf("expected default port")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
			{name: "relative path", mutate: func(c *Config) { c.Server.Path = "ws" }},
			{name: "health check path", mutate: func(c *Config) { c.Server.Path = "/healthz" }},
			{name: "zero send buffer", mutate: func(c *Config) { c.Server.SendBuffer = 0 }},
			{name: "unknown engine", mutate: func(c *Config) { c.Player.Engine = "vlc" }},
			{name: "mpv without binary", mutate: func(c *Config) { c.Player.MPVPath = "" }},
			{name: "zero command timeout", mutate: func(c *Config) { c.Player.CommandTimeout.Duration = 0 }},
			{name: "negative rate limit", mutate: func(c *Config) { c.Search.RateLimit = -1 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
