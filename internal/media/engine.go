package media

import (
	"context"
	"fmt"
	"strings"
)

// Engine is the command surface of an audio player.
type Engine interface {
	// Load replaces the current item with source, leaving playback paused.
	Load(ctx context.Context, source, song string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	// Seek moves to an absolute position in seconds.
	Seek(ctx context.Context, seconds float64) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	// Queue appends source to the engine's playlist.
	Queue(ctx context.Context, source, song string) error
	// Playing reports whether audio is currently playing.
	Playing() bool
	Close() error
}

// DefaultSourceTemplate expands bare YouTube video ids into watch URLs.
const DefaultSourceTemplate = "https://www.youtube.com/watch?v=%s"

// ResolveSource turns a source identifier into something the engine can open.
//
// Sources that already carry a scheme or look like a filesystem path are returned unchanged.
func ResolveSource(template, source string) string {
	if strings.Contains(source, "://") || strings.HasPrefix(source, "/") || strings.HasPrefix(source, ".") {
		return source
	}
	if template == "" {
		template = DefaultSourceTemplate
	}
	if !strings.Contains(template, "%s") {
		return template + source
	}
	return fmt.Sprintf(template, source)
}
