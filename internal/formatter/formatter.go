// package formatter renders search results in the formats the CLI can print or save (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Format names an output format accepted by [Write].
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat maps a flag value onto a [Format]. The empty string selects [Text].
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "":
		return Text, nil
	case Text, Markdown, CSV, JSON:
		return f, nil
	case "md":
		return Markdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, name)
	}
}

// Extension is the file extension used when results are saved in format f.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return "md"
	case CSV:
		return "csv"
	case JSON:
		return "json"
	default:
		return "txt"
	}
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past the hour.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "-:--"
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TracksToCSV converts tracks to CSV with columns: ID, Title, Artist, Album, Duration
func TracksToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TracksToMarkdown converts search results for query to a Markdown document
func TracksToMarkdown(query string, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Results for %q\n\n", query))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	for i, track := range tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s%s [%s] `%s`\n", i+1, track.Label(), albumPart, FormatDuration(track.Duration), track.ID))
	}

	return buf.Bytes(), nil
}

// TracksToText converts tracks to a numbered plain text listing
func TracksToText(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s [%s] %s\n", i+1, track.Label(), FormatDuration(track.Duration), track.ID))
	}

	return buf.Bytes(), nil
}

// TracksToJSON renders tracks as an indented JSON array
func TracksToJSON(tracks []models.Track) ([]byte, error) {
	if tracks == nil {
		tracks = []models.Track{}
	}
	data, err := json.MarshalIndent(tracks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tracks: %w", err)
	}
	return append(data, '\n'), nil
}

// Render converts tracks into the given format.
func Render(format Format, query string, tracks []models.Track) ([]byte, error) {
	switch format {
	case Text, "":
		return TracksToText(tracks)
	case Markdown:
		return TracksToMarkdown(query, tracks)
	case CSV:
		return TracksToCSV(tracks)
	case JSON:
		return TracksToJSON(tracks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
	}
}

// Write renders tracks to w.
func Write(w io.Writer, format Format, query string, tracks []models.Track) error {
	data, err := Render(format, query, tracks)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders tracks to the file at path, replacing it.
func WriteFile(path string, format Format, query string, tracks []models.Track) error {
	data, err := Render(format, query, tracks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
