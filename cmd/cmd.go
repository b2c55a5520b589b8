// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write config.toml from the bundled example",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the SQLite database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// playlistCommand handles playlist CRUD and export.
func playlistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Playlist description"},
					&cli.StringFlag{Name: "color", Usage: "Cover color as #rrggbb"},
					&cli.BoolFlag{Name: "public", Usage: "Make playlist public"},
				},
				Action: r.PlaylistCreate,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List playlists",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by name or description"},
					&cli.StringFlag{Name: "sort", Usage: "Sort by name, createdAt or trackCount"},
				},
				Action: r.PlaylistList,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistShow,
			},
			{
				Name:      "update",
				Usage:     "Update playlist metadata",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New name"},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
					&cli.StringFlag{Name: "color", Usage: "New cover color as #rrggbb"},
					&cli.BoolFlag{Name: "public", Usage: "Set visibility (--public=false for private)"},
				},
				Action: r.PlaylistUpdate,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "add-track",
				Usage:     "Add a track record to a playlist",
				Arguments: []cli.Argument{&cli.StringArg{Name: "playlist-id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Track ID", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Track name", Required: true},
					&cli.StringFlag{Name: "artist", Usage: "Artist names"},
					&cli.StringFlag{Name: "album", Usage: "Album name"},
					&cli.StringFlag{Name: "image", Usage: "Album image URL"},
					&cli.StringFlag{Name: "preview", Usage: "Preview clip URL"},
					&cli.IntFlag{Name: "duration", Usage: "Duration in milliseconds"},
				},
				Action: r.PlaylistAddTrack,
			},
			{
				Name:  "remove-track",
				Usage: "Remove a track from a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist-id"},
					&cli.StringArg{Name: "track-id"},
				},
				Action: r.PlaylistRemoveTrack,
			},
			{
				Name:      "export",
				Usage:     "Export a playlist to csv, markdown, text or json",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Export format", Value: "markdown"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file, or directory for markdown"},
					&cli.BoolFlag{Name: "cover", Usage: "Download the cover image next to a markdown export"},
				},
				Action: r.PlaylistExport,
			},
			{
				Name:  "export-all",
				Usage: "Export every playlist concurrently and write a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Export format", Value: "json"},
					&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: "Output directory (default: musicflow_export_{epoch})"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent workers", Value: 5},
					&cli.BoolFlag{Name: "cover", Usage: "Download cover images for markdown exports"},
				},
				Action: r.PlaylistExportAll,
			},
		},
	}
}

// statsCommand prints library totals.
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "stats",
		Usage:  "Show playlist and track totals",
		Action: r.Stats,
	}
}

// reconcileCommand reports and optionally purges orphaned track records.
func reconcileCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Report orphaned track records and dangling references",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "purge", Usage: "Delete orphaned track records"},
		},
		Action: r.Reconcile,
	}
}

// catalogCommand handles catalog lookups.
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Search the music catalog",
		Commands: []*cli.Command{
			{
				Name:  "recommend",
				Usage: "Show the recommendation feed",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "genre", Usage: "Genre to query (random when empty)"},
				},
				Action: r.CatalogRecommend,
			},
			{
				Name:      "search",
				Usage:     "Search catalog tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of results"},
				},
				Action: r.CatalogSearch,
			},
			{
				Name:  "add",
				Usage: "Add a catalog track to a playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist-id"},
					&cli.StringArg{Name: "track-id"},
				},
				Action: r.CatalogAdd,
			},
		},
	}
}

// serveCommand runs the HTTP server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the token proxy and library API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (defaults to server.host:server.port)"},
			&cli.BoolFlag{Name: "open", Usage: "Open the health endpoint in a browser once listening"},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive playlist management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive playlist browser",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-file", Usage: "Log file path", Value: "./tmp/musicflow-tui.log"},
		},
		Action: r.TUI,
	}
}
