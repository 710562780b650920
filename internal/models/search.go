package models

import (
	"fmt"
	"time"
)

// SearchEntry is one ranked result of a cached query.
//
// Query is stored normalized (see shared.NormalizeQuery) so equivalent queries share entries.
type SearchEntry struct {
	Query     string
	Position  int
	TrackID   string
	CreatedAt time.Time
}

// Validate checks required fields.
func (e SearchEntry) Validate() error {
	if e.Query == "" {
		return fmt.Errorf("query is required")
	}
	if e.TrackID == "" {
		return fmt.Errorf("track id is required")
	}
	if e.Position < 0 {
		return fmt.Errorf("position must not be negative")
	}
	return nil
}

// Expired reports whether the entry is older than ttl. A non-positive ttl never expires.
func (e SearchEntry) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(e.CreatedAt) > ttl
}
