package repositories

import (
	"fmt"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
)

// TrackCacheAdapter implements services.SearchCache using [TrackRepository] and [SearchRepository].
//
// Tracks are deduplicated via the service+service_id constraint; storing a query again replaces its ranking.
type TrackCacheAdapter struct {
	tracks   *TrackRepository
	searches *SearchRepository
	service  string
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter storing tracks under service.
func NewTrackCacheAdapter(tracks *TrackRepository, searches *SearchRepository, service string) *TrackCacheAdapter {
	return &TrackCacheAdapter{tracks: tracks, searches: searches, service: service}
}

// Lookup returns the cached results for a normalized query, or shared.ErrCacheMiss.
func (a *TrackCacheAdapter) Lookup(query string, ttl time.Duration) ([]models.Track, error) {
	return a.searches.Tracks(query, ttl)
}

// Store caches tracks as the ranked results of a normalized query.
func (a *TrackCacheAdapter) Store(query string, tracks []models.Track) error {
	ids := make([]string, 0, len(tracks))
	for _, track := range tracks {
		persisted := models.NewPersistedTrack(0, a.service, track.ID, track)
		if err := a.tracks.Upsert(persisted); err != nil {
			return fmt.Errorf("failed to cache track %s: %w", track.ID, err)
		}
		ids = append(ids, persisted.ID())
	}

	if err := a.searches.Replace(query, ids); err != nil {
		return fmt.Errorf("failed to cache search: %w", err)
	}
	return nil
}
