package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ytplay/internal/commands"
	"github.com/desertthunder/ytplay/internal/media"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/protocol"
	tu "github.com/desertthunder/ytplay/internal/testing"
)

type dispatchFixture struct {
	engine     *media.Memory
	machine    *playback.Machine
	searcher   *tu.MockSearcher
	hub        *Hub
	dispatcher *Dispatcher
	quits      atomic.Int32
}

func newDispatchFixture() *dispatchFixture {
	f := &dispatchFixture{engine: media.NewMemory(), searcher: &tu.MockSearcher{}}
	f.machine = playback.New(f.engine, playback.Options{})
	registry := commands.NewRegistry(commands.Deps{Machine: f.machine, Searcher: f.searcher})
	f.hub = NewHub(nil)
	f.dispatcher = NewDispatcher(registry, f.hub, func() { f.quits.Add(1) }, nil)
	return f
}

func (f *dispatchFixture) connect(ids ...string) []*tu.RecordingClient {
	clients := make([]*tu.RecordingClient, 0, len(ids))
	for _, id := range ids {
		c := tu.NewRecordingClient(id)
		f.hub.Register(c)
		clients = append(clients, c)
	}
	return clients
}

func (f *dispatchFixture) send(c Client, frame string) {
	f.dispatcher.Dispatch(context.Background(), c, []byte(frame))
}

func TestDispatcherProtocolErrors(t *testing.T) {
	tc := []struct {
		name  string
		frame string
		want  *protocol.Error
	}{
		{name: "not json", frame: `hello`, want: protocol.ErrUnknown},
		{name: "no command", frame: `{"arguments":{}}`, want: protocol.ErrCommandNotFound},
		{name: "unknown command", frame: `{"command":"dance"}`, want: protocol.ErrCommandNotFound},
		{name: "bad arguments", frame: `{"command":"seek","arguments":"30"}`, want: protocol.ErrInvalidArguments},
		{name: "missing query", frame: `{"command":"search","arguments":{}}`, want: protocol.ErrNoQueryProvided},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture()
			clients := f.connect("issuer", "other")

			f.send(clients[0], tt.frame)

			got := clients[0].Envelopes()
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Err)
			assert.Empty(t, clients[1].Envelopes(), "errors are never broadcast")
		})
	}
}

func TestDispatcherSearch(t *testing.T) {
	f := newDispatchFixture()
	f.searcher.Results = []models.Track{{ID: "abc", Title: "Song"}}
	clients := f.connect("issuer", "other")

	f.send(clients[0], `{"command":"search","arguments":{"query":"song"}}`)

	got := clients[0].Envelopes()
	require.Len(t, got, 1)
	assert.Equal(t, "search", got[0].Command)
	assert.Equal(t, protocol.Arguments{"query": "song"}, got[0].Arguments)

	tracks, err := commands.Tracks(got[0].Results)
	require.NoError(t, err)
	assert.Equal(t, f.searcher.Results, tracks)
	assert.Empty(t, clients[1].Envelopes(), "query results go to the issuer only")
}

func TestDispatcherPlay(t *testing.T) {
	t.Run("broadcast to every session, issuer exactly once", func(t *testing.T) {
		f := newDispatchFixture()
		clients := f.connect("issuer", "a", "b")

		f.send(clients[0], `{"command":"play","arguments":{"source":"A","song":"S"}}`)

		for _, c := range clients {
			got := c.Envelopes()
			require.Len(t, got, 1, "session %s", c.ID())
			assert.Equal(t, "play", got[0].Command)
			assert.Equal(t, protocol.Arguments{"source": "A", "song": "S"}, got[0].Arguments)
			assert.Equal(t, "song S is now playing", got[0].Results["success"])
		}
	})

	t.Run("missing song", func(t *testing.T) {
		f := newDispatchFixture()
		clients := f.connect("issuer", "other")

		f.send(clients[0], `{"command":"play","arguments":{"source":"A"}}`)

		got := clients[0].Envelopes()
		require.Len(t, got, 1)
		assert.Equal(t, protocol.ErrNoSongProvided, got[0].Err)
		assert.Empty(t, clients[1].Envelopes())
		assert.Empty(t, f.engine.Calls())
	})

	t.Run("dead session does not block the others", func(t *testing.T) {
		f := newDispatchFixture()
		clients := f.connect("issuer", "dead", "live")
		clients[1].Close()

		f.send(clients[0], `{"command":"play","arguments":{"source":"A","song":"S"}}`)

		assert.Len(t, clients[0].Envelopes(), 1)
		assert.Len(t, clients[2].Envelopes(), 1)
		assert.Equal(t, 2, f.hub.Count())
	})

	t.Run("late joiners only see later broadcasts", func(t *testing.T) {
		f := newDispatchFixture()
		early := f.connect("early")[0]

		f.send(early, `{"command":"play","arguments":{"source":"A","song":"S"}}`)
		late := f.connect("late")[0]
		f.send(early, `{"command":"seek","arguments":{"time":3}}`)

		assert.Len(t, early.Envelopes(), 2)
		got := late.Envelopes()
		require.Len(t, got, 1)
		assert.Equal(t, "seek", got[0].Command)
		assert.Contains(t, got[0].Results, "state")
	})
}

func TestDispatcherMutationFailures(t *testing.T) {
	f := newDispatchFixture()
	clients := f.connect("issuer", "other")

	f.send(clients[0], `{"command":"next"}`)
	f.send(clients[0], `{"command":"seek","arguments":{"time":10}}`)

	got := clients[0].Envelopes()
	require.Len(t, got, 2)
	assert.Equal(t, protocol.ErrNothingLoaded, got[0].Err)
	assert.Equal(t, protocol.ErrNothingLoaded, got[1].Err)
	assert.Empty(t, clients[1].Envelopes())
}

func TestDispatcherQuit(t *testing.T) {
	f := newDispatchFixture()
	clients := f.connect("issuer", "other")

	f.send(clients[0], `{"command":"quit"}`)

	for _, c := range clients {
		got := c.Envelopes()
		require.Len(t, got, 1)
		assert.Equal(t, protocol.Notice("quit"), got[0])
	}
	assert.EqualValues(t, 1, f.quits.Load())
	assert.True(t, f.dispatcher.Closed())

	f.send(clients[1], `{"command":"play","arguments":{"source":"A","song":"S"}}`)
	f.send(clients[1], `{"command":"quit"}`)

	got := clients[1].Envelopes()
	require.Len(t, got, 3)
	assert.Equal(t, protocol.ErrShuttingDown, got[1].Err)
	assert.Equal(t, protocol.ErrShuttingDown, got[2].Err)
	assert.Empty(t, f.engine.Calls(), "nothing executes after quit")
	assert.EqualValues(t, 1, f.quits.Load())
}

func TestDispatcherQuitWaitsForMutations(t *testing.T) {
	f := newDispatchFixture()
	observer := f.connect("observer")[0]
	issuer := f.connect("issuer")[0]

	entered := make(chan struct{})
	release := make(chan struct{})
	f.engine.Fail = func(name string) error {
		if name == "load" {
			close(entered)
			<-release
		}
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.send(issuer, `{"command":"play","arguments":{"source":"A","song":"S"}}`)
	}()
	<-entered
	go func() {
		defer wg.Done()
		f.send(issuer, `{"command":"quit"}`)
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	seen := observer.Envelopes()
	require.Len(t, seen, 2)
	assert.Equal(t, commands.PlayCommand, seen[0].Command)
	assert.Equal(t, protocol.Notice("quit"), seen[1])

	res := f.dispatcher.Execute(context.Background(), issuer, protocol.Request{Command: "next"})
	assert.Equal(t, protocol.ErrShuttingDown, res.Err)
	assert.Len(t, observer.Envelopes(), 2, "nothing is broadcast after the quit notice")
}

func TestDispatcherToggle(t *testing.T) {
	f := newDispatchFixture()
	console, remote := f.connect("console")[0], f.connect("remote")[0]

	f.send(remote, `{"command":"play","arguments":{"source":"A","song":"S"}}`)
	f.send(remote, `{"command":"seek","arguments":{"time":42}}`)

	res := f.dispatcher.Toggle(context.Background(), console)
	require.False(t, res.Failed())
	assert.True(t, res.Published)
	assert.False(t, f.machine.Snapshot().Playing)
	assert.Equal(t, 42.0, f.engine.Position())

	got := remote.Envelopes()
	require.Len(t, got, 3)
	assert.Equal(t, commands.ToggleCommand, got[2].Command)
	assert.Equal(t, "song S is now paused", got[2].Results["success"])

	f.send(remote, `{"command":"toggle"}`)
	got = remote.Envelopes()
	require.Len(t, got, 4)
	assert.Equal(t, protocol.ErrCommandNotFound, got[3].Err, "toggle is not a wire command")
}

func TestDispatcherConcurrentMutations(t *testing.T) {
	f := newDispatchFixture()
	observer := f.connect("observer")[0]

	const issuers = 12
	clients := make([]*tu.RecordingClient, issuers)
	for i := range clients {
		clients[i] = f.connect(fmt.Sprintf("issuer-%d", i))[0]
	}

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *tu.RecordingClient) {
			defer wg.Done()
			f.send(c, `{"command":"play","arguments":{"source":"A","song":"S"}}`)
		}(c)
	}
	wg.Wait()

	seen := observer.Envelopes()
	require.Len(t, seen, issuers, "one broadcast per successful mutation")
	for i, env := range seen {
		want := "song S is now playing"
		if i%2 == 1 {
			want = "song S is now paused"
		}
		assert.Equal(t, want, env.Results["success"], "broadcast %d out of order", i)
	}

	for _, c := range clients {
		assert.Equal(t, seen, c.Envelopes(), "every session observes the same sequence")
	}
}

func TestDispatcherExecute(t *testing.T) {
	f := newDispatchFixture()
	console := f.connect("console")[0]

	res := f.dispatcher.Execute(context.Background(), console, protocol.Request{Command: "queue", Arguments: protocol.Arguments{"song": "T"}})
	require.False(t, res.Failed())
	assert.True(t, res.Published)
	require.Len(t, console.Envelopes(), 1)

	res = f.dispatcher.Execute(context.Background(), console, protocol.Request{Command: "nope"})
	assert.Equal(t, protocol.ErrCommandNotFound, res.Err)
}
