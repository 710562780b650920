package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// CachedSearcherOptions configures a [CachedSearcher].
type CachedSearcherOptions struct {
	// Cache is optional; without one every call reaches the provider.
	Cache    SearchCache
	CacheTTL time.Duration
	// RateLimit is provider requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Timeout   time.Duration
	Logger    *log.Logger
}

// CachedSearcher decorates a [Searcher] with caching, rate limiting and a timeout.
type CachedSearcher struct {
	next    Searcher
	cache   SearchCache
	ttl     time.Duration
	limiter *rate.Limiter
	timeout time.Duration
	logger  *log.Logger
}

// NewCachedSearcher wraps next according to opts.
func NewCachedSearcher(next Searcher, opts CachedSearcherOptions) *CachedSearcher {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &CachedSearcher{
		next:    next,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
		limiter: limiter,
		timeout: opts.Timeout,
		logger:  shared.WithLogger(logger, "component", "search"),
	}
}

// Name returns the wrapped provider's name.
func (c *CachedSearcher) Name() string {
	return c.next.Name()
}

// Search serves query from the cache when possible and otherwise asks the provider, storing non-empty results.
func (c *CachedSearcher) Search(ctx context.Context, query string) ([]models.Track, error) {
	key := shared.NormalizeQuery(query)
	if key == "" {
		return nil, fmt.Errorf("%w: empty query", shared.ErrInvalidInput)
	}

	if c.cache != nil {
		tracks, err := c.cache.Lookup(key, c.ttl)
		if err == nil {
			c.logger.Debug("cache hit", "query", key, "results", len(tracks))
			return tracks, nil
		}
		if !errors.Is(err, shared.ErrCacheMiss) {
			c.logger.Warn("cache lookup failed", "query", key, "error", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, shared.Interrupted(ctx, fmt.Errorf("waiting for rate limiter: %w", err))
	}

	tracks, err := c.next.Search(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, shared.Interrupted(ctx, err)
		}
		return nil, err
	}

	if c.cache != nil && len(tracks) > 0 {
		if err := c.cache.Store(key, tracks); err != nil {
			c.logger.Warn("cache store failed", "query", key, "error", err)
		}
	}

	c.logger.Debug("searched", "provider", c.next.Name(), "query", key, "results", len(tracks))
	return tracks, nil
}
