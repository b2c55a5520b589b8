package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/cervantesaxel/musicflow/internal/formatter"
	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
	"github.com/cervantesaxel/musicflow/internal/tasks"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: <%s>", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// PlaylistCreate creates a playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}

	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	p, err := store.CreatePlaylist(ctx, name, cmd.String("description"), cmd.String("color"), cmd.Bool("public"))
	if err != nil {
		return err
	}

	r.logger.Debug("playlist created", "id", p.ID)
	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("✓ Created '%s' (%s)\n", p.Name, p.ID)
}

// PlaylistList lists playlists, optionally filtered and sorted.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	playlists := store.Search(ctx, cmd.String("query"))
	if s := cmd.String("sort"); s != "" {
		key, err := models.ParseSortKey(s)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		playlists = store.Sort(playlists, key)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		return r.writePlain("No playlists found.\n")
	}

	now := r.now()
	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, p := range playlists {
		r.writePlain("%-22s %-30s %3d tracks  %-7s updated %s\n",
			p.ID, p.Name, len(p.Tracks), p.Visibility(), formatter.FormatRelative(p.UpdatedAt, now))
	}
	return nil
}

// PlaylistShow prints a playlist and its resolved tracks.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	export, err := store.Export(ctx, id)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(export, true)
	}

	p := export.Playlist
	now := r.now()
	r.writePlainHeader(p.Name)
	if p.Description != "" {
		r.writePlain("%s\n", p.Description)
	}
	r.writePlain("ID: %s  Color: %s  %s\n", p.ID, p.Color, p.Visibility())
	r.writePlain("Created %s, updated %s\n", formatter.FormatRelative(p.CreatedAt, now), formatter.FormatRelative(p.UpdatedAt, now))
	r.writePlain("Cover: %s\n\n", coverRef(&p))

	for i, t := range export.Tracks {
		r.writePlain("%3d. %s - %s [%s]\n", i+1, t.Name, t.Artist, formatter.FormatDuration(t.Duration))
	}
	if len(export.Tracks) == 0 {
		r.writePlain("No tracks yet.\n")
	}
	return nil
}

func coverRef(p *models.Playlist) string {
	if p.CoverImage != nil {
		return *p.CoverImage
	}
	return formatter.GenerateCoverURL(p)
}

// PlaylistUpdate applies the flags that were set to a playlist.
func (r *Runner) PlaylistUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	var update models.PlaylistUpdate
	if cmd.IsSet("name") {
		update.Name = new(string)
		*update.Name = cmd.String("name")
	}
	if cmd.IsSet("description") {
		update.Description = new(string)
		*update.Description = cmd.String("description")
	}
	if cmd.IsSet("color") {
		update.Color = new(string)
		*update.Color = cmd.String("color")
	}
	if cmd.IsSet("public") {
		update.IsPublic = new(bool)
		*update.IsPublic = cmd.Bool("public")
	}
	if update.IsEmpty() {
		return fmt.Errorf("%w: nothing to update (use --name, --description, --color or --public)", shared.ErrMissingArgument)
	}

	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	p, err := store.UpdatePlaylist(ctx, id, update)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("✓ Updated '%s'\n", p.Name)
}

// PlaylistDelete deletes a playlist. Its cached track records are kept.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	if err := store.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// PlaylistAddTrack adds a track described by flags.
func (r *Runner) PlaylistAddTrack(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "playlist-id")
	if err != nil {
		return err
	}

	track := models.Track{
		ID:       cmd.String("id"),
		Name:     cmd.String("name"),
		Artist:   cmd.String("artist"),
		Album:    cmd.String("album"),
		Duration: int(cmd.Int("duration")),
	}
	if v := cmd.String("image"); v != "" {
		track.Image = &v
	}
	if v := cmd.String("preview"); v != "" {
		track.PreviewURL = &v
	}

	return r.addTrack(ctx, cmd, playlistID, track)
}

func (r *Runner) addTrack(ctx context.Context, cmd *cli.Command, playlistID string, track models.Track) error {
	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	p, err := store.AddTrackToPlaylist(ctx, playlistID, track)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("✓ Added '%s' to '%s' (%d tracks)\n", track.Name, p.Name, len(p.Tracks))
}

// PlaylistRemoveTrack removes a track reference from a playlist.
func (r *Runner) PlaylistRemoveTrack(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "playlist-id")
	if err != nil {
		return err
	}
	trackID, err := requireArg(cmd, "track-id")
	if err != nil {
		return err
	}

	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	p, err := store.RemoveTrackFromPlaylist(ctx, playlistID, trackID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return r.writePlain("✓ '%s' now has %d tracks\n", p.Name, len(p.Tracks))
}

// PlaylistExport writes a playlist to disk in the requested format.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	export, err := store.Export(ctx, id)
	if err != nil {
		return err
	}

	result, err := formatter.WriteExport(ctx, export, format, formatter.ExportOptions{
		Path:          cmd.String("output"),
		DownloadCover: cmd.Bool("cover"),
		HTTPClient:    r.httpClient,
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		r.logger.Warn(w)
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	r.writePlain("✓ Exported '%s' as %s\n", export.Playlist.Name, result.Format)
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// PlaylistExportAll exports every playlist through the bulk export worker pool, printing progress as it goes.
func (r *Runner) PlaylistExportAll(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	playlists := store.List(ctx)
	ids := make([]string, len(playlists))
	for i, p := range playlists {
		ids[i] = p.ID
	}

	prog := make(chan tasks.ProgressUpdate, len(ids)*2+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.logger.Debug(u.Message, "phase", u.Phase)
			if u.Phase != tasks.LoadPlaylist && !cmd.Bool("json") {
				r.writePlain("%s\n", u.Message)
			}
		}
	}()

	result, err := tasks.BulkExport(ctx, store, prog, ids, tasks.BulkExportOpts{
		Format:        format,
		OutputDir:     cmd.String("output-dir"),
		NumWorkers:    int(cmd.Int("workers")),
		DownloadCover: cmd.Bool("cover"),
		RateLimit:     r.config.Catalog.RateLimit,
		HTTPClient:    r.httpClient,
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}
	return r.writePlainln("✓ Exported %d/%d playlists to %s", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
}

// Stats prints library totals.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	stats := store.Stats(ctx)
	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Library")
	r.writePlain("Playlists: %d\n", stats.PlaylistCount)
	r.writePlain("Tracks:    %d\n", stats.TrackCount)
	r.writePlain("Duration:  %s\n", stats.FormatTotalDuration())
	return nil
}

// Reconcile reports orphaned track records and dangling references, purging orphans with --purge.
func (r *Runner) Reconcile(ctx context.Context, cmd *cli.Command) error {
	store, err := r.library(ctx)
	if err != nil {
		return err
	}

	report, err := store.Reconcile(ctx, cmd.Bool("purge"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, true)
	}

	r.writePlain("Orphaned track records: %d\n", len(report.OrphanTracks))
	for _, id := range report.OrphanTracks {
		r.writePlain("  %s\n", id)
	}
	r.writePlain("Dangling references: %d\n", len(report.Dangling))
	for _, d := range report.Dangling {
		r.writePlain("  %s -> %s\n", d.PlaylistID, d.TrackID)
	}
	if report.Purged > 0 {
		r.writePlain("✓ Purged %d track records\n", report.Purged)
	}
	return nil
}
