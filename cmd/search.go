package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytplay/internal/formatter"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Search queries the provider through the same cache, rate limit and timeout the server uses.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.Join(cmd.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
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

	searcher, closeCache, err := r.openSearcher(!cmd.Bool("no-cache"))
	if err != nil {
		return err
	}
	defer closeCache()

	r.logger.Debug("searching", "query", query, "provider", searcher.Name())

	tracks, err := searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, format, query, tracks); err != nil {
			return err
		}
		r.logger.Info("results saved", "path", path, "tracks", len(tracks))
		return nil
	}

	if len(tracks) == 0 && format == formatter.Text {
		return r.writePlain("No results for %q\n", query)
	}
	return formatter.Write(r.output, format, query, tracks)
}
