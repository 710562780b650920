package models

import (
	"fmt"
	"time"
)

// Track is song metadata from a search provider. ID is the provider's identifier and doubles as the playable source.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration int    `json:"duration"` // seconds
}

// Label renders the track the way notifications and the console name it.
func (t Track) Label() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// PersistedTrack is a cached [Track] tied to the service it came from.
type PersistedTrack struct {
	id        string
	sequence  int
	service   string
	serviceID string
	track     Track
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates an unsaved cache entry for track.
func NewPersistedTrack(sequence int, service, serviceID string, track Track) *PersistedTrack {
	now := time.Now()
	return &PersistedTrack{
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		track:     track,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTrack) ID() string            { return t.id }
func (t *PersistedTrack) Sequence() int         { return t.sequence }
func (t *PersistedTrack) Service() string       { return t.service }
func (t *PersistedTrack) ServiceID() string     { return t.serviceID }
func (t *PersistedTrack) Title() string         { return t.track.Title }
func (t *PersistedTrack) Artist() string        { return t.track.Artist }
func (t *PersistedTrack) Album() string         { return t.track.Album }
func (t *PersistedTrack) Duration() int         { return t.track.Duration }
func (t *PersistedTrack) CreatedAt() time.Time  { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time  { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

func (t *PersistedTrack) SetID(id string)            { t.id = id }
func (t *PersistedTrack) SetSequence(sequence int)   { t.sequence = sequence }
func (t *PersistedTrack) SetCreatedAt(at time.Time)  { t.createdAt = at }
func (t *PersistedTrack) SetUpdatedAt(at time.Time)  { t.updatedAt = at }
func (t *PersistedTrack) SetDeletedAt(at *time.Time) { t.deletedAt = at }
func (t *PersistedTrack) SetTrack(track Track)       { t.track = track }

// Track returns the DTO form with the service id as the track id.
func (t *PersistedTrack) Track() Track {
	dto := t.track
	dto.ID = t.serviceID
	return dto
}

// Validate checks required fields.
func (t *PersistedTrack) Validate() error {
	switch {
	case t.service == "":
		return fmt.Errorf("service is required")
	case t.serviceID == "":
		return fmt.Errorf("service id is required")
	case t.track.Title == "":
		return fmt.Errorf("title is required")
	case t.track.Duration < 0:
		return fmt.Errorf("duration must not be negative")
	}
	return nil
}
