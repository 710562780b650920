// YouTube Music [Searcher] implementation
//
// Communicates with the FastAPI proxy server running on port 8080.
// The proxy wraps ytmusicapi Python library for YouTube Music operations.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// ServiceName identifies YouTube Music rows in the track cache.
const ServiceName = "youtube"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music search responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"` // Duration in seconds
}

// Track converts the proxy representation into a [models.Track], keeping the first credited artist.
func (y YouTubeTrack) Track() models.Track {
	track := models.Track{
		ID:       y.VideoID,
		Title:    y.Title,
		Duration: y.DurationSec,
	}

	if len(y.Artists) > 0 {
		track.Artist = y.Artists[0].Name
	}

	if y.Album != nil {
		track.Album = y.Album.Name
	}

	return track
}

// YouTubeService implements the [Searcher] interface for YouTube Music via proxy.
type YouTubeService struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL string, client *http.Client) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &YouTubeService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	apiURL := y.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", shared.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music API error (status %d): %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music API error: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err)
		}
	}

	return nil
}

// Search returns song results for query.
//
// Calls GET /api/search?q={query}&filter=songs on the proxy. Results without a video id cannot be played and are
// skipped.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs", url.QueryEscape(query))

	var results []YouTubeTrack
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &results); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(results))
	for _, result := range results {
		if result.VideoID == "" {
			continue
		}
		tracks = append(tracks, result.Track())
	}

	return tracks, nil
}

// Health calls GET /health on the proxy.
func (y *YouTubeService) Health(ctx context.Context) error {
	return y.doRequest(ctx, http.MethodGet, "/health", nil)
}
