package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/protocol"
)

// Wire names of the built-in commands.
const (
	SearchCommand   = "search"
	PlayCommand     = "play"
	SeekCommand     = "seek"
	PreviousCommand = "previous"
	NextCommand     = "next"
	QueueCommand    = "queue"
	QuitCommand     = "quit"
)

// ToggleCommand flips play/pause of the loaded song without reloading it. It is not reachable by name from the wire;
// the console runs it through [Registry.Local].
const ToggleCommand = "toggle"

func (r *Registry) builtins() []*Command {
	return []*Command{
		{
			Name:     SearchCommand,
			Usage:    "search the provider: {query}",
			Kind:     Query,
			validate: requireString("query", protocol.ErrNoQueryProvided),
			query:    r.search,
		},
		{
			Name:     PlayCommand,
			Usage:    "load a song and toggle play/pause: {source, song}",
			Kind:     Mutation,
			validate: validatePlay,
			mutate:   play,
		},
		{
			Name:     SeekCommand,
			Usage:    "seek to an absolute position: {time}",
			Kind:     Mutation,
			validate: validateSeek,
			mutate:   seek,
		},
		{
			Name:   PreviousCommand,
			Usage:  "go back one queue entry",
			Kind:   Mutation,
			mutate: func(tx *playback.Tx, _ protocol.Arguments) (protocol.Results, error) { return nil, tx.Previous() },
		},
		{
			Name:   NextCommand,
			Usage:  "skip to the next queue entry",
			Kind:   Mutation,
			mutate: func(tx *playback.Tx, _ protocol.Arguments) (protocol.Results, error) { return nil, tx.Next() },
		},
		{
			Name:     QueueCommand,
			Usage:    "append to the queue: {song, source?}",
			Kind:     Mutation,
			validate: validateQueue,
			mutate:   queue,
		},
		{
			Name:   ToggleCommand,
			Usage:  "toggle play/pause of the loaded song",
			Kind:   Mutation,
			Local:  true,
			mutate: toggle,
		},
		{
			Name:  QuitCommand,
			Usage: "stop the server",
			Kind:  Terminal,
		},
	}
}

func requireString(key string, missing *protocol.Error) validateFunc {
	return func(args protocol.Arguments) *protocol.Error {
		if _, ok := args.String(key); !ok {
			return missing
		}
		return nil
	}
}

func (r *Registry) search(ctx context.Context, args protocol.Arguments) (protocol.Results, error) {
	query, _ := args.String("query")

	tracks, err := r.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	return protocol.Results{"tracks": tracks}, nil
}

func validatePlay(args protocol.Arguments) *protocol.Error {
	_, hasSource := args.String("source")
	_, hasSong := args.String("song")
	if !hasSource || !hasSong {
		return protocol.ErrNoSongProvided
	}
	return nil
}

func play(tx *playback.Tx, args protocol.Arguments) (protocol.Results, error) {
	source, _ := args.String("source")
	song, _ := args.String("song")

	if _, err := tx.Reload(source, song); err != nil {
		return nil, err
	}
	return protocol.Results{
		"success": fmt.Sprintf("song %s is now %s", song, tx.State().Status()),
	}, nil
}

func toggle(tx *playback.Tx, _ protocol.Arguments) (protocol.Results, error) {
	if _, err := tx.Toggle(); err != nil {
		return nil, err
	}
	st := tx.State()
	return protocol.Results{
		"success": fmt.Sprintf("song %s is now %s", st.Song, st.Status()),
	}, nil
}

func validateSeek(args protocol.Arguments) *protocol.Error {
	seconds, ok := args.Number("time")
	if !ok || seconds < 0 {
		return protocol.ErrInvalidArguments
	}
	return nil
}

func seek(tx *playback.Tx, args protocol.Arguments) (protocol.Results, error) {
	seconds, _ := args.Number("time")
	return nil, tx.Seek(seconds)
}

func validateQueue(args protocol.Arguments) *protocol.Error {
	if _, ok := args.String("song"); !ok {
		return protocol.ErrNoSongProvided
	}
	if args.Has("source") && args["source"] != nil {
		if _, ok := args.String("source"); !ok {
			return protocol.ErrInvalidArguments
		}
	}
	return nil
}

func queue(tx *playback.Tx, args protocol.Arguments) (protocol.Results, error) {
	song, _ := args.String("song")
	source, ok := args.String("source")
	if !ok {
		source = song
	}
	return nil, tx.Queue(source, song)
}

// Tracks extracts the track list from search results, whether they were produced in process or decoded from JSON.
func Tracks(results protocol.Results) ([]models.Track, error) {
	switch v := results["tracks"].(type) {
	case nil:
		return nil, nil
	case []models.Track:
		return v, nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		var tracks []models.Track
		if err := json.Unmarshal(data, &tracks); err != nil {
			return nil, fmt.Errorf("malformed tracks: %w", err)
		}
		return tracks, nil
	}
}
