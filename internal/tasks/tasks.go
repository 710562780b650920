// package tasks runs batch search operations with real-time progress reporting.
//
// The core abstraction is Prefetcher, which searches a list of queries through the configured searcher so that
// later console and remote searches are answered from the cache. Operations emit progress updates via channels
// for non-blocking status reporting to the CLI.
package tasks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/desertthunder/ytplay/internal/formatter"
	"github.com/desertthunder/ytplay/internal/services"
	"github.com/desertthunder/ytplay/internal/shared"
)

const (
	defaultWorkers = 4
	maxWorkers     = 10
)

// PrefetchOpts contains configuration for a batch search.
type PrefetchOpts struct {
	Workers   int              // Concurrent searches (default: 4, max: 10)
	OutputDir string           // When set, each query's results are saved here along with a manifest
	Format    formatter.Format // Format of the saved results (default: text)
}

// QueryResult is the outcome of one query of a batch.
type QueryResult struct {
	Query   string `json:"query"`
	Tracks  int    `json:"tracks"`
	File    string `json:"file,omitempty"`
	Success bool   `json:"success"`
	Error   error  `json:"-"`
}

// MarshalJSON includes the error text in manifests.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	type alias QueryResult
	out := struct {
		alias
		Error string `json:"error,omitempty"`
	}{alias: alias(r)}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return json.Marshal(out)
}

// PrefetchResult summarizes a batch search. Results keep the order of the input queries.
type PrefetchResult struct {
	Total           int           `json:"total"`
	Succeeded       int           `json:"succeeded"`
	Failed          int           `json:"failed"`
	Results         []QueryResult `json:"results"`
	OutputDirectory string        `json:"output_directory,omitempty"`
	ManifestPath    string        `json:"-"`
}

type prefetchJob struct {
	index int
	query string
}

// Prefetcher searches many queries concurrently through one searcher.
//
// Rate limiting and caching are left to the searcher, usually a [services.CachedSearcher].
type Prefetcher struct {
	searcher services.Searcher
}

// NewPrefetcher creates a Prefetcher over searcher.
func NewPrefetcher(searcher services.Searcher) *Prefetcher {
	return &Prefetcher{searcher: searcher}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run searches every query with a worker pool. Individual failures are recorded in the result and do not stop the
// batch; only a canceled context or an unwritable output directory fails the whole run.
func (p *Prefetcher) Run(ctx context.Context, progress chan<- ProgressUpdate, queries []string, opts PrefetchOpts) (*PrefetchResult, error) {
	if p.searcher == nil {
		return nil, fmt.Errorf("%w: searcher not initialized", shared.ErrServiceUnavailable)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no queries to search", shared.ErrMissingArgument)
	}

	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.Format == "" {
		opts.Format = formatter.Text
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	result := &PrefetchResult{
		Total:           len(queries),
		Results:         make([]QueryResult, len(queries)),
		OutputDirectory: opts.OutputDir,
	}

	jobs := make(chan prefetchJob)
	done := make(chan prefetchJob, len(queries))

	var wg sync.WaitGroup
	for range opts.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result.Results[job.index] = p.searchOne(ctx, job, opts)
				done <- job
			}
		}()
	}

	go func() {
		defer close(jobs)
		sendProgress(progress, startedUpdate(len(queries), opts.Workers))
		for i, query := range queries {
			select {
			case jobs <- prefetchJob{index: i, query: query}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for job := range done {
		completed++
		res := result.Results[job.index]
		if res.Success {
			result.Succeeded++
			sendProgress(progress, queryCompletedUpdate(completed, len(queries), res))
		} else {
			result.Failed++
			sendProgress(progress, queryFailedUpdate(completed, len(queries), res))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("batch interrupted after %d of %d queries: %w", completed, len(queries), err)
	}

	if opts.OutputDir != "" {
		manifestPath := filepath.Join(opts.OutputDir, "manifest.json")
		if err := writeManifest(result, manifestPath); err != nil {
			return result, fmt.Errorf("batch completed but failed to write manifest: %w", err)
		}
		result.ManifestPath = manifestPath
		sendProgress(progress, manifestUpdate(manifestPath))
	}

	return result, nil
}

// searchOne runs a single query and saves its results when an output directory is set.
func (p *Prefetcher) searchOne(ctx context.Context, job prefetchJob, opts PrefetchOpts) QueryResult {
	res := QueryResult{Query: job.query}

	tracks, err := p.searcher.Search(ctx, job.query)
	if err != nil {
		res.Error = fmt.Errorf("search failed: %w", err)
		return res
	}
	res.Tracks = len(tracks)

	if opts.OutputDir != "" {
		name := fmt.Sprintf("%03d_%s.%s", job.index+1, Slug(job.query), opts.Format.Extension())
		path := filepath.Join(opts.OutputDir, name)
		if err := formatter.WriteFile(path, opts.Format, job.query, tracks); err != nil {
			res.Error = fmt.Errorf("failed to save results: %w", err)
			return res
		}
		res.File = name
	}

	res.Success = true
	return res
}

func writeManifest(result *PrefetchResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// ReadQueries reads one query per line. Blank lines and lines starting with # are skipped, and queries that
// normalize to the same cache key are kept once.
func ReadQueries(r io.Reader) ([]string, error) {
	var queries []string
	seen := map[string]bool{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key := shared.NormalizeQuery(line)
		if seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read queries: %w", err)
	}
	return queries, nil
}

// Slug turns a query into a file name fragment of lowercase letters, digits and underscores.
func Slug(query string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		return "query"
	}
	if runes := []rune(slug); len(runes) > 48 {
		slug = strings.TrimSuffix(string(runes[:48]), "_")
	}
	return slug
}
