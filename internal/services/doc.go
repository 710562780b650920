// Package services defines the [Searcher] interface for track search providers and implements it for YouTube Music.
//
// # YouTube Music Implementation
//
// [YouTubeService] communicates with the FastAPI proxy server wrapping ytmusicapi.
// All YouTube operations are synchronous HTTP calls to the proxy endpoints.
//
// # Caching and Rate Limiting
//
// [CachedSearcher] wraps any Searcher with:
//   - a [SearchCache] (sqlite, see package repositories) keyed by normalized query
//   - a token bucket ([rate.Limiter]) shared by every caller
//   - a per-call timeout
//
// Searches never touch playback state, so callers may run them concurrently with each other and with playback
// mutations.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : the proxy answered with a non-2xx status or an undecodable body
//   - [shared.ErrServiceUnavailable] : the proxy could not be reached
//   - [shared.ErrTimeout] : the search did not finish in time
package services
