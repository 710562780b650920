package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

const trackColumns = "id, sequence, service, service_id, title, artist, album, duration, created_at, updated_at, deleted_at"

var _ models.Store[*models.PersistedTrack] = (*TrackRepository)(nil)

// TrackRepository stores [models.PersistedTrack] rows, one per (service, service_id).
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts track with a generated ID and the next sequence number. A second row for the same service id is
// rejected by the unique constraint.
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	now := time.Now()
	if track.CreatedAt().IsZero() {
		track.SetCreatedAt(now)
	}
	track.SetUpdatedAt(now)
	track.SetID(shared.GenerateID())

	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return inTx(r.db, func(tx *sql.Tx) error {
		sequence, err := nextSequence(tx, "tracks")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}
		track.SetSequence(sequence)

		if _, err := tx.Exec(
			`INSERT INTO tracks (id, sequence, service, service_id, title, artist, album, duration, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			track.ID(), sequence, track.Service(), track.ServiceID(),
			track.Title(), track.Artist(), track.Album(), track.Duration(),
			track.CreatedAt(), track.UpdatedAt(),
		); err != nil {
			return fmt.Errorf("failed to insert track: %w", err)
		}
		return nil
	})
}

// Upsert stores track, refreshing the metadata of an existing row with the same service id and restoring it when
// soft-deleted. The track takes the stored row's ID and sequence.
func (r *TrackRepository) Upsert(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	return inTx(r.db, func(tx *sql.Tx) error {
		var id string
		var sequence int
		err := tx.QueryRow(
			"SELECT id, sequence FROM tracks WHERE service = ? AND service_id = ?",
			track.Service(), track.ServiceID(),
		).Scan(&id, &sequence)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			if sequence, err = nextSequence(tx, "tracks"); err != nil {
				return fmt.Errorf("failed to generate sequence: %w", err)
			}
			id = shared.GenerateID()
			if _, err := tx.Exec(
				`INSERT INTO tracks (id, sequence, service, service_id, title, artist, album, duration, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				id, sequence, track.Service(), track.ServiceID(),
				track.Title(), track.Artist(), track.Album(), track.Duration(), now, now,
			); err != nil {
				return fmt.Errorf("failed to insert track: %w", err)
			}
			track.SetCreatedAt(now)
		case err != nil:
			return fmt.Errorf("failed to look up track: %w", err)
		default:
			if _, err := tx.Exec(
				`UPDATE tracks SET title = ?, artist = ?, album = ?, duration = ?, updated_at = ?, deleted_at = NULL
				WHERE id = ?`,
				track.Title(), track.Artist(), track.Album(), track.Duration(), now, id,
			); err != nil {
				return fmt.Errorf("failed to refresh track: %w", err)
			}
		}

		track.SetID(id)
		track.SetSequence(sequence)
		track.SetUpdatedAt(now)
		track.SetDeletedAt(nil)
		return nil
	})
}

// Get retrieves a live track by ID.
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	return scanTrack(r.db.QueryRow(
		"SELECT "+trackColumns+" FROM tracks WHERE id = ? AND deleted_at IS NULL", id,
	))
}

// GetByServiceID retrieves a live track by its provider id.
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.PersistedTrack, error) {
	return scanTrack(r.db.QueryRow(
		"SELECT "+trackColumns+" FROM tracks WHERE service = ? AND service_id = ? AND deleted_at IS NULL",
		service, serviceID,
	))
}

// Update rewrites the metadata of a live track.
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	result, err := r.db.Exec(
		"UPDATE tracks SET title = ?, artist = ?, album = ?, duration = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		track.Title(), track.Artist(), track.Album(), track.Duration(), now, track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}
	if err := expectRow(result, track.ID()); err != nil {
		return err
	}

	track.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a track. Cached searches that reference it become misses.
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return expectRow(result, id)
}

// List returns live tracks matching criteria in insertion order.
func (r *TrackRepository) List(criteria models.Criteria) ([]*models.PersistedTrack, error) {
	var (
		where = []string{"deleted_at IS NULL"}
		args  []any
	)
	if criteria.Service != "" {
		where = append(where, "service = ?")
		args = append(args, criteria.Service)
	}
	if criteria.Artist != "" {
		where = append(where, "artist = ?")
		args = append(args, criteria.Artist)
	}

	query := "SELECT " + trackColumns + " FROM tracks WHERE " + strings.Join(where, " AND ") + " ORDER BY sequence ASC"
	if criteria.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, criteria.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return nil
}

// scanTrack reads one row selected with trackColumns.
func scanTrack(row rowScanner) (*models.PersistedTrack, error) {
	var (
		id, service, serviceID string
		sequence               int
		dto                    models.Track
		createdAt, updatedAt   time.Time
		deletedAt              sql.NullTime
	)

	err := row.Scan(&id, &sequence, &service, &serviceID, &dto.Title, &dto.Artist, &dto.Album, &dto.Duration,
		&createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}
	dto.ID = serviceID

	track := models.NewPersistedTrack(sequence, service, serviceID, dto)
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		track.SetDeletedAt(&deletedAt.Time)
	}
	return track, nil
}
