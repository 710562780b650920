package services

import (
	"context"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
)

// Searcher finds tracks for a free-text query.
type Searcher interface {
	// Search returns tracks ranked by relevance. An empty slice is a valid result.
	Search(ctx context.Context, query string) ([]models.Track, error)

	// Name returns the name of the provider (e.g., "YouTube Music")
	Name() string
}

// SearchCache stores ranked results per normalized query.
type SearchCache interface {
	// Lookup returns stored tracks, or an error wrapping shared.ErrCacheMiss.
	Lookup(query string, ttl time.Duration) ([]models.Track, error)
	Store(query string, tracks []models.Track) error
}
