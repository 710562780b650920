// package testing contains shared testing utilities
package testing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/protocol"
)

// MockSearcher is a test double for [services.Searcher]
type MockSearcher struct {
	mu      sync.Mutex
	queries []string

	Results []models.Track
	Err     error
	// Gate, when non-nil, blocks every search until it is closed or the context ends.
	Gate chan struct{}
}

func (m *MockSearcher) Search(ctx context.Context, query string) ([]models.Track, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Results, m.Err
}

func (m *MockSearcher) Name() string { return "mock" }

// Queries returns every query received so far.
func (m *MockSearcher) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

// RecordingClient captures every envelope sent to a session, whether replied directly or delivered as a broadcast
// frame.
type RecordingClient struct {
	mu        sync.Mutex
	id        string
	envelopes []protocol.Envelope
	closed    bool
}

func NewRecordingClient(id string) *RecordingClient {
	return &RecordingClient{id: id}
}

func (c *RecordingClient) ID() string { return c.id }

func (c *RecordingClient) Send(env protocol.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.envelopes = append(c.envelopes, env)
	return true
}

// Deliver decodes frame and records it.
func (c *RecordingClient) Deliver(frame []byte) bool {
	var env protocol.Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return false
	}
	return c.Send(env)
}

func (c *RecordingClient) Reply(command string, args protocol.Arguments, results protocol.Results) bool {
	return c.Send(protocol.Reply(command, args, results))
}

func (c *RecordingClient) ReportError(err *protocol.Error) bool {
	return c.Send(protocol.Failure(err))
}

// Close makes every later Send fail, like a torn-down connection.
func (c *RecordingClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Closed reports whether Close was called.
func (c *RecordingClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *RecordingClient) Envelopes() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Envelope(nil), c.envelopes...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
