// Package models defines domain entities and persistence interfaces for the ytplay search cache.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing search provider data
//   - [Track] : Song metadata as returned by the search provider and sent to clients
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : Cached tracks keyed by service and service id
//   - [SearchEntry] : One ranked result of a cached search query
//
// Persistent entities implement [Model] and are stored through a [Store], whose List takes [Criteria] filters.
// A track is kept once per service id however many cached searches reference it.
package models
