package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytplay/internal/formatter"
	"github.com/desertthunder/ytplay/internal/repositories"
	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/desertthunder/ytplay/internal/tasks"
)

// CacheShow prints the cached results for a query, ignoring their age.
func (r *Runner) CacheShow(ctx context.Context, cmd *cli.Command) error {
	query := shared.NormalizeQuery(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	db, err := shared.OpenCache(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open search cache: %w", err)
	}
	defer db.Close()

	searches := repositories.NewSearchRepository(db)
	entries, err := searches.Entries(query)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return r.writePlain("Nothing cached for %q\n", query)
	}

	tracks, err := searches.Tracks(query, 0)
	if errors.Is(err, shared.ErrCacheMiss) {
		return r.writePlain("Cached results for %q are no longer available\n", query)
	}
	if err != nil {
		return err
	}

	r.writePlain("Cached %s ago (%d tracks)\n", time.Since(entries[0].CreatedAt).Round(time.Second), len(tracks))
	return formatter.Write(r.output, formatter.Text, query, tracks)
}

// CachePrune removes cached searches older than --older-than, defaulting to search.cache_ttl.
func (r *Runner) CachePrune(ctx context.Context, cmd *cli.Command) error {
	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}

	age := cmd.Duration("older-than")
	if age <= 0 {
		age = r.config.Search.CacheTTL.Duration
	}
	if age <= 0 {
		return fmt.Errorf("%w: --older-than or search.cache_ttl must be positive", shared.ErrInvalidArgument)
	}

	db, err := shared.OpenCache(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open search cache: %w", err)
	}
	defer db.Close()

	removed, err := repositories.NewSearchRepository(db).Prune(time.Now().Add(-age))
	if err != nil {
		return fmt.Errorf("failed to prune cache: %w", err)
	}

	r.logger.Info("pruned search cache", "entries", removed, "older_than", age)
	return r.writePlain("✓ Removed %d cached entries older than %s\n", removed, age)
}

// CacheWarm searches every query of a file through the cached searcher, optionally saving each result set.
func (r *Runner) CacheWarm(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("%w: query file", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.loadConfig(cmd.String("config")); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open query file: %w", err)
	}
	queries, err := tasks.ReadQueries(file)
	file.Close()
	if err != nil {
		return err
	}

	searcher, closeCache, err := r.openSearcher(true)
	if err != nil {
		return err
	}
	defer closeCache()

	progress := make(chan tasks.ProgressUpdate, 32)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := tasks.NewPrefetcher(searcher).Run(ctx, progress, queries, tasks.PrefetchOpts{
		Workers:   int(cmd.Int("workers")),
		OutputDir: cmd.String("dir"),
		Format:    format,
	})
	close(progress)
	<-printed

	if err != nil {
		return err
	}

	r.logger.Info("cache warmed", "queries", result.Total, "failed", result.Failed)
	r.writePlainln("✓ Searched %d queries (%d failed)", result.Total, result.Failed)
	if result.ManifestPath != "" {
		r.writePlain("Results saved under %s\n", result.OutputDirectory)
	}
	return nil
}

// cacheCommand handles the search cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the search cache",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the cached results for a query",
				ArgsUsage: "<query...>",
				Flags:     []cli.Flag{configFlag()},
				Action:    r.CacheShow,
			},
			{
				Name:  "prune",
				Usage: "Remove stale cached searches",
				Flags: []cli.Flag{
					configFlag(),
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Age past which entries are removed (defaults to search.cache_ttl)",
					},
				},
				Action: r.CachePrune,
			},
			{
				Name:      "warm",
				Usage:     "Search every query of a file (one per line) to fill the cache",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:    "workers",
						Aliases: []string{"w"},
						Usage:   "Concurrent searches (max 10)",
						Value:   4,
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Also save each query's results and a manifest in this directory",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Format of saved results: text, markdown, csv or json",
						Value:   "text",
					},
				},
				Action: r.CacheWarm,
			},
		},
	}
}
