package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/ytplay/internal/media"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/protocol"
	"github.com/desertthunder/ytplay/internal/shared"
	tu "github.com/desertthunder/ytplay/internal/testing"
)

var daftPunk = []models.Track{
	{ID: "s9MszVE7aR4", Title: "Around the World", Artist: "Daft Punk", Album: "Homework", Duration: 429},
	{ID: "FGBhQbmPwH8", Title: "One More Time", Artist: "Daft Punk", Album: "Discovery", Duration: 320},
}

// proxyServer answers /api/search with one track and counts the requests it served.
func proxyServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"videoId":"s9MszVE7aR4","title":"Around the World","artists":[{"name":"Daft Punk"}],` +
			`"album":{"name":"Homework"},"duration_seconds":429}]`))
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Player.Engine = "memory"
	config.Search.RateLimit = 0
	config.Database.Path = filepath.Join(t.TempDir(), "cache.db")
	return config
}

func TestSearch(t *testing.T) {
	t.Run("prints the injected searcher's results as JSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		searcher := &tu.MockSearcher{Results: daftPunk}
		runner := NewRunner(RunnerOpts{
			Config:   testConfig(t),
			Searcher: searcher,
			Output:   output,
			Logger:   shared.NewLogger(quietLogger()),
		})

		if err := runApp(t, runner, "search", "--format", "json", "daft", "punk"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		var tracks []models.Track
		if err := json.Unmarshal(output.Bytes(), &tracks); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(tracks) != 2 || tracks[0].ID != "s9MszVE7aR4" {
			t.Errorf("unexpected tracks: %+v", tracks)
		}
		if queries := searcher.Queries(); len(queries) != 1 || queries[0] != "daft punk" {
			t.Errorf("expected the joined query, got %v", queries)
		}
	})

	t.Run("requires a query", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Searcher: &tu.MockSearcher{}, Output: &bytes.Buffer{}})

		if err := runApp(t, runner, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Searcher: &tu.MockSearcher{}, Output: &bytes.Buffer{}})

		if err := runApp(t, runner, "search", "--format", "xml", "daft"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("reports empty results in text", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Searcher: &tu.MockSearcher{}, Output: output})

		if err := runApp(t, runner, "search", "nothing"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if got := output.String(); got != "No results for \"nothing\"\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("writes markdown to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "results.md")
		runner := NewRunner(RunnerOpts{
			Config:   testConfig(t),
			Searcher: &tu.MockSearcher{Results: daftPunk},
			Output:   &bytes.Buffer{},
			Logger:   shared.NewLogger(quietLogger()),
		})

		if err := runApp(t, runner, "search", "-f", "md", "-o", path, "daft punk"); err != nil {
			t.Fatalf("search failed: %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, `# Results for "daft punk"`) {
			t.Errorf("expected markdown title, got %q", content)
		}
		if !strings.Contains(content, "Daft Punk - One More Time") {
			t.Errorf("expected both tracks, got %q", content)
		}
	})

	t.Run("proxy results are cached in sqlite", func(t *testing.T) {
		var hits atomic.Int32
		proxy := proxyServer(t, &hits)

		config := testConfig(t)
		config.Search.ProxyURL = proxy.URL

		for i := range 2 {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(quietLogger())})

			if err := runApp(t, runner, "search", "Daft Punk"); err != nil {
				t.Fatalf("search %d failed: %v", i, err)
			}
			if !strings.Contains(output.String(), "Around the World") {
				t.Errorf("search %d: unexpected output %q", i, output.String())
			}
		}

		if got := hits.Load(); got != 1 {
			t.Errorf("expected the proxy to be hit once, got %d", got)
		}
	})

	t.Run("--no-cache always asks the proxy", func(t *testing.T) {
		var hits atomic.Int32
		proxy := proxyServer(t, &hits)

		config := testConfig(t)
		config.Search.ProxyURL = proxy.URL

		for range 2 {
			runner := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: shared.NewLogger(quietLogger())})
			if err := runApp(t, runner, "search", "--no-cache", "daft punk"); err != nil {
				t.Fatalf("search failed: %v", err)
			}
		}

		if got := hits.Load(); got != 2 {
			t.Errorf("expected two proxy hits, got %d", got)
		}
	})
}

func TestCache(t *testing.T) {
	var hits atomic.Int32
	proxy := proxyServer(t, &hits)

	config := testConfig(t)
	config.Search.ProxyURL = proxy.URL

	seed := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: shared.NewLogger(quietLogger())})
	if err := runApp(t, seed, "search", "daft punk"); err != nil {
		t.Fatalf("seed search failed: %v", err)
	}

	t.Run("show prints cached tracks", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(quietLogger())})

		if err := runApp(t, runner, "cache", "show", "Daft", "Punk"); err != nil {
			t.Fatalf("cache show failed: %v", err)
		}
		if got := output.String(); !strings.Contains(got, "(1 tracks)") || !strings.Contains(got, "s9MszVE7aR4") {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("show reports unknown queries", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(quietLogger())})

		if err := runApp(t, runner, "cache", "show", "justice"); err != nil {
			t.Fatalf("cache show failed: %v", err)
		}
		if got := output.String(); got != "Nothing cached for \"justice\"\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("prune keeps fresh entries", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(quietLogger())})

		if err := runApp(t, runner, "cache", "prune", "--older-than", "1h"); err != nil {
			t.Fatalf("cache prune failed: %v", err)
		}
		if got := output.String(); !strings.Contains(got, "Removed 0 cached entries") {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("prune removes stale entries", func(t *testing.T) {
		time.Sleep(10 * time.Millisecond)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(quietLogger())})

		if err := runApp(t, runner, "cache", "prune", "--older-than", "1ms"); err != nil {
			t.Fatalf("cache prune failed: %v", err)
		}
		if got := output.String(); strings.Contains(got, "Removed 0 ") {
			t.Errorf("expected entries to be removed, got %q", got)
		}

		show := &bytes.Buffer{}
		runner = NewRunner(RunnerOpts{Config: config, Output: show, Logger: shared.NewLogger(quietLogger())})
		if err := runApp(t, runner, "cache", "show", "daft punk"); err != nil {
			t.Fatalf("cache show failed: %v", err)
		}
		if !strings.HasPrefix(show.String(), "Nothing cached") {
			t.Errorf("expected the entry to be gone, got %q", show.String())
		}
	})
}

func TestRemoteArguments(t *testing.T) {
	tc := []struct {
		name    string
		data    string
		pairs   []string
		want    protocol.Arguments
		wantErr bool
	}{
		{name: "nothing"},
		{name: "pairs", pairs: []string{"source=abc", "song=Daft Punk - One More Time"}, want: protocol.Arguments{"source": "abc", "song": "Daft Punk - One More Time"}},
		{name: "value containing equals", pairs: []string{"query=a=b"}, want: protocol.Arguments{"query": "a=b"}},
		{name: "json data", data: `{"time": 42}`, want: protocol.Arguments{"time": float64(42)}},
		{name: "json array", data: `[1, 2]`, wantErr: true},
		{name: "json null", data: `null`, wantErr: true},
		{name: "both", data: `{}`, pairs: []string{"a=b"}, wantErr: true},
		{name: "missing equals", pairs: []string{"source"}, wantErr: true},
		{name: "empty key", pairs: []string{"=abc"}, wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRemoteArguments(tt.data, tt.pairs)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s: expected %v, got %v", k, v, got[k])
				}
			}
		})
	}
}

func TestRemoteURL(t *testing.T) {
	tc := []struct {
		name string
		cfg  shared.ServerConfig
		want string
	}{
		{name: "loopback", cfg: shared.ServerConfig{Host: "127.0.0.1", Port: 8081, Path: "/"}, want: "ws://127.0.0.1:8081/"},
		{name: "wildcard", cfg: shared.ServerConfig{Host: "0.0.0.0", Port: 9000, Path: "/ws"}, want: "ws://127.0.0.1:9000/ws"},
		{name: "empty host and path", cfg: shared.ServerConfig{Port: 9000}, want: "ws://127.0.0.1:9000/"},
		{name: "ipv6", cfg: shared.ServerConfig{Host: "::1", Port: 9000, Path: "/"}, want: "ws://[::1]:9000/"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := remoteURL(tt.cfg); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

// liveServer wires a full stack with the memory engine behind an httptest server and returns its websocket URL.
func liveServer(t *testing.T, searcher *tu.MockSearcher) string {
	t.Helper()
	runner := NewRunner(RunnerOpts{
		Config:   testConfig(t),
		Searcher: searcher,
		Engine:   media.NewMemory(),
		Logger:   shared.NewLogger(quietLogger()),
	})

	st, err := runner.build(context.Background())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	ts := httptest.NewServer(st.server)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		st.server.Shutdown(ctx)
		ts.Close()
		st.Close()
	})

	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
}

func TestRemote(t *testing.T) {
	url := liveServer(t, &tu.MockSearcher{Results: daftPunk})

	remote := func(output *bytes.Buffer, args ...string) error {
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: output, Logger: shared.NewLogger(quietLogger())})
		return runApp(t, runner, append([]string{"remote", "--url", url}, args...)...)
	}

	t.Run("prints the search reply", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := remote(output, "search", "query=daft punk"); err != nil {
			t.Fatalf("remote failed: %v", err)
		}

		var env protocol.Envelope
		if err := json.Unmarshal(bytes.TrimSpace(output.Bytes()), &env); err != nil {
			t.Fatalf("expected one envelope, got %q: %v", output.String(), err)
		}
		if env.Command != "search" || env.IsError() {
			t.Errorf("unexpected envelope %+v", env)
		}
		if !strings.Contains(output.String(), "Around the World") {
			t.Errorf("expected tracks in output, got %q", output.String())
		}
	})

	t.Run("play prints the reply", func(t *testing.T) {
		output := &bytes.Buffer{}
		if err := remote(output, "--pretty", "play", "source=s9MszVE7aR4", "song=Daft Punk - Around the World"); err != nil {
			t.Fatalf("play failed: %v", err)
		}
		if !strings.Contains(output.String(), "song Daft Punk - Around the World is now playing") {
			t.Errorf("expected the play result, got %q", output.String())
		}
	})

	t.Run("protocol errors are returned", func(t *testing.T) {
		err := remote(&bytes.Buffer{}, "play", "source=abc")
		if !errors.Is(err, protocol.ErrNoSongProvided) {
			t.Errorf("expected ErrNoSongProvided, got %v", err)
		}
	})

	t.Run("unknown commands", func(t *testing.T) {
		err := remote(&bytes.Buffer{}, "rewind")
		if !errors.Is(err, protocol.ErrCommandNotFound) {
			t.Errorf("expected ErrCommandNotFound, got %v", err)
		}
	})

	t.Run("requires a command", func(t *testing.T) {
		if err := remote(&bytes.Buffer{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: testConfig(t), Output: &bytes.Buffer{}, Logger: shared.NewLogger(quietLogger())})
		err := runApp(t, runner, "remote", "--url", "ws://127.0.0.1:1/", "next")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServe(t *testing.T) {
	config := testConfig(t)
	config.Server.Port = freePort(t)

	runner := NewRunner(RunnerOpts{
		Config:   config,
		Searcher: &tu.MockSearcher{Results: daftPunk},
		Engine:   media.NewMemory(),
		Output:   &bytes.Buffer{},
		Logger:   shared.NewLogger(quietLogger()),
	})

	served := make(chan error, 1)
	go func() {
		served <- runApp(t, runner, "serve")
	}()

	client := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: shared.NewLogger(quietLogger())})

	deadline := time.Now().Add(5 * time.Second)
	for {
		err := runApp(t, client, "remote", "search", "query=daft punk")
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never became reachable: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if err := runApp(t, client, "remote", "quit"); err != nil {
		t.Fatalf("quit failed: %v", err)
	}

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after quit")
	}
}

func TestCacheWarm(t *testing.T) {
	var hits atomic.Int32
	proxy := proxyServer(t, &hits)

	config := testConfig(t)
	config.Search.ProxyURL = proxy.URL

	queries := filepath.Join(t.TempDir(), "queries.txt")
	if err := os.WriteFile(queries, []byte("# warm these\ndaft punk\njustice\nDaft Punk\n"), 0644); err != nil {
		t.Fatalf("failed to write queries: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "out")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(quietLogger())})
	if err := runApp(t, runner, "cache", "warm", "--dir", dir, "-f", "csv", queries); err != nil {
		t.Fatalf("cache warm failed: %v", err)
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("expected one proxy hit per distinct query, got %d", got)
	}
	if !strings.Contains(output.String(), "Searched 2 queries (0 failed)") {
		t.Errorf("unexpected output %q", output.String())
	}
	tu.AssertFileExists(t, filepath.Join(dir, "manifest.json"))
	tu.AssertFileExists(t, filepath.Join(dir, "001_daft_punk.csv"))

	again := NewRunner(RunnerOpts{Config: config, Output: &bytes.Buffer{}, Logger: shared.NewLogger(quietLogger())})
	if err := runApp(t, again, "search", "justice"); err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected the warmed query to be cached, got %d hits", got)
	}

	if err := runApp(t, again, "cache", "warm"); !errors.Is(err, shared.ErrMissingArgument) {
		t.Errorf("expected ErrMissingArgument, got %v", err)
	}
}
