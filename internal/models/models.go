package models

import (
	"time"
)

// Model is implemented by every row type kept in the search cache.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Criteria narrows a [Store.List] call. Zero-valued fields match every row.
type Criteria struct {
	Service string
	Artist  string
	Limit   int
}

// Store is the persistence contract for a cached entity type. Rows are soft-deleted and an upsert restores them.
type Store[T Model] interface {
	Create(model T) error
	Upsert(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria Criteria) ([]T, error)
}
