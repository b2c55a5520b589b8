package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/cervantesaxel/musicflow/internal/formatter"
	"github.com/cervantesaxel/musicflow/internal/models"
)

// CatalogRecommend prints the recommendation feed for --genre or a random configured genre.
func (r *Runner) CatalogRecommend(ctx context.Context, cmd *cli.Command) error {
	catalog, err := r.catalogService()
	if err != nil {
		return err
	}

	genre := cmd.String("genre")
	tracks, err := catalog.Recommend(ctx, genre)
	if err != nil {
		return err
	}

	if genre == "" {
		genre = "random genre"
	}
	return r.writeCatalogTracks(cmd, fmt.Sprintf("Recommended (%s)", genre), tracks)
}

// CatalogSearch searches catalog tracks.
func (r *Runner) CatalogSearch(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}

	catalog, err := r.catalogService()
	if err != nil {
		return err
	}

	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		limit = r.config.Catalog.Limit
	}

	tracks, err := catalog.Search(ctx, query, limit)
	if err != nil {
		return err
	}
	return r.writeCatalogTracks(cmd, fmt.Sprintf("Results for %q", query), tracks)
}

// CatalogAdd looks a track up in the catalog and adds it to a playlist.
func (r *Runner) CatalogAdd(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "playlist-id")
	if err != nil {
		return err
	}
	trackID, err := requireArg(cmd, "track-id")
	if err != nil {
		return err
	}

	catalog, err := r.catalogService()
	if err != nil {
		return err
	}

	ct, err := catalog.Lookup(ctx, trackID)
	if err != nil {
		return err
	}

	return r.addTrack(ctx, cmd, playlistID, ct.ToTrack())
}

func (r *Runner) writeCatalogTracks(cmd *cli.Command, title string, tracks []models.CatalogTrack) error {
	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		return r.writePlain("No tracks found.\n")
	}

	r.writePlainHeader(title)
	for _, t := range tracks {
		r.writePlain("%-22s %s - %s [%s]\n", t.ID, t.Name, strings.Join(t.Artists, ", "), formatter.FormatDuration(t.Duration))
	}
	return r.writePlainln("Add one with: musicflow catalog add <playlist-id> <track-id>")
}
