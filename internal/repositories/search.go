package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// SearchRepository stores ranked search results as ordered references into the tracks table.
type SearchRepository struct {
	db *sql.DB
}

// NewSearchRepository creates a new SearchRepository with the given database connection
func NewSearchRepository(db *sql.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Replace swaps every entry of query for trackIDs in order, in one transaction.
func (r *SearchRepository) Replace(query string, trackIDs []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM searches WHERE query = ?", query); err != nil {
		return fmt.Errorf("failed to clear search entries: %w", err)
	}

	now := time.Now()
	for position, trackID := range trackIDs {
		entry := models.SearchEntry{Query: query, Position: position, TrackID: trackID, CreatedAt: now}
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		if _, err := tx.Exec(
			"INSERT INTO searches (query, position, track_id, created_at) VALUES (?, ?, ?, ?)",
			entry.Query, entry.Position, entry.TrackID, entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert search entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit search entries: %w", err)
	}
	return nil
}

// Entries returns the entries stored for query ordered by position.
func (r *SearchRepository) Entries(query string) ([]models.SearchEntry, error) {
	rows, err := r.db.Query(
		"SELECT query, position, track_id, created_at FROM searches WHERE query = ? ORDER BY position ASC",
		query,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query search entries: %w", err)
	}
	defer rows.Close()

	var entries []models.SearchEntry
	for rows.Next() {
		var e models.SearchEntry
		if err := rows.Scan(&e.Query, &e.Position, &e.TrackID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan search entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Tracks returns the cached tracks for query in rank order.
//
// Returns [shared.ErrCacheMiss] when the query has no entries, any entry is older than ttl, or a referenced track has
// been soft-deleted.
func (r *SearchRepository) Tracks(query string, ttl time.Duration) ([]models.Track, error) {
	rows, err := r.db.Query(`
		SELECT s.created_at, t.service_id, t.title, t.artist, t.album, t.duration, t.deleted_at
		FROM searches s
		JOIN tracks t ON t.id = s.track_id
		WHERE s.query = ?
		ORDER BY s.position ASC
	`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached search: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	var tracks []models.Track
	for rows.Next() {
		var (
			track     models.Track
			createdAt time.Time
			deletedAt sql.NullTime
		)
		if err := rows.Scan(&createdAt, &track.ID, &track.Title, &track.Artist, &track.Album, &track.Duration, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cached track: %w", err)
		}

		entry := models.SearchEntry{Query: query, CreatedAt: createdAt}
		if deletedAt.Valid || entry.Expired(now, ttl) {
			return nil, shared.ErrCacheMiss
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(tracks) == 0 {
		return nil, shared.ErrCacheMiss
	}
	return tracks, nil
}

// Prune deletes entries created before cutoff and returns how many were removed.
func (r *SearchRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM searches WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune search entries: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
