package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cervantesaxel/musicflow/internal/library"
	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
	"github.com/cervantesaxel/musicflow/internal/storage"
	tu "github.com/cervantesaxel/musicflow/internal/testing"
)

func newTestRunner(t *testing.T, catalog *tu.MockCatalog) (*Runner, *library.Store, *bytes.Buffer) {
	t.Helper()
	config := shared.DefaultConfig()
	config.Storage.Driver = "memory"
	config.Database.Path = filepath.Join(t.TempDir(), "musicflow.db")

	store := library.New(storage.NewMemory())
	output := &bytes.Buffer{}
	opts := RunnerOpts{
		Config: config,
		Store:  store,
		Logger: shared.DiscardLogger(),
		Output: output,
		Now:    func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	if catalog != nil {
		opts.Catalog = catalog
	}
	return NewRunner(opts), store, output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	return newApp(r).Run(context.Background(), append([]string{"musicflow"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := &tu.MockCatalog{}
			store := library.New(storage.NewMemory())

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    catalog,
				Store:      store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
			if runner.loadConfig {
				t.Error("expected injected config not to be reloaded")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if !runner.loadConfig {
				t.Error("expected config to be loaded from flags")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses the catalog timeout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient == nil || runner.httpClient.Timeout != runner.config.Catalog.Timeout() {
				t.Error("expected httpClient with catalog timeout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "playlist", "stats", "reconcile", "catalog", "serve", "tui"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})
}

func TestConfigure(t *testing.T) {
	t.Run("loads config file and applies storage flag", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := os.WriteFile(path, []byte("[server]\nport = 6060\n"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: output})
		if err := run(t, runner, "--config", path, "--storage", "memory", "--json", "stats"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if runner.config.Server.Port != 6060 {
			t.Errorf("expected port from file, got %d", runner.config.Server.Port)
		}
		if runner.config.Storage.Driver != "memory" {
			t.Errorf("expected storage override, got %q", runner.config.Storage.Driver)
		}
		if !strings.Contains(output.String(), `"playlistCount": 0`) {
			t.Errorf("expected empty stats, got %q", output.String())
		}
	})

	t.Run("explicit missing config file is an error", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})
		err := run(t, runner, "--config", filepath.Join(t.TempDir(), "nope.toml"), "stats")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("rejects unknown storage driver", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, nil)
		err := run(t, runner, "--storage", "floppy", "stats")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("create, add, show and remove", func(t *testing.T) {
		runner, store, output := newTestRunner(t, nil)

		if err := run(t, runner, "playlist", "create", "Road Trip", "--description", "summer"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		playlists := store.List(ctx)
		if len(playlists) != 1 {
			t.Fatalf("expected 1 playlist, got %d", len(playlists))
		}
		id := playlists[0].ID
		if !strings.Contains(output.String(), "Created 'Road Trip'") {
			t.Errorf("unexpected output %q", output.String())
		}

		err := run(t, runner, "playlist", "add-track", id,
			"--id", "t1", "--name", "Song One", "--artist", "A", "--duration", "185000", "--image", "http://x/t1.png")
		if err != nil {
			t.Fatalf("add-track failed: %v", err)
		}

		p, _ := store.Get(ctx, id)
		if p.CoverImage == nil || *p.CoverImage != "http://x/t1.png" {
			t.Errorf("expected cover from first track, got %v", p.CoverImage)
		}

		output.Reset()
		if err := run(t, runner, "playlist", "show", id); err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(output.String(), "Song One - A [3:05]") {
			t.Errorf("expected track line, got %q", output.String())
		}

		if err := run(t, runner, "playlist", "remove-track", id, "t1"); err != nil {
			t.Fatalf("remove-track failed: %v", err)
		}
		p, _ = store.Get(ctx, id)
		if len(p.Tracks) != 0 || p.CoverImage != nil {
			t.Errorf("expected empty playlist without cover, got %+v", p)
		}
	})

	t.Run("list with query and sort as JSON", func(t *testing.T) {
		runner, store, output := newTestRunner(t, nil)
		for _, name := range []string{"Zeta", "alpha", "Beta"} {
			if _, err := store.CreatePlaylist(ctx, name, "", "", false); err != nil {
				t.Fatalf("failed to create playlist: %v", err)
			}
		}

		if err := run(t, runner, "--json", "playlist", "list", "--sort", "name"); err != nil {
			t.Fatalf("list failed: %v", err)
		}

		var got []models.Playlist
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		names := []string{}
		for _, p := range got {
			names = append(names, p.Name)
		}
		if strings.Join(names, ",") != "alpha,Beta,Zeta" {
			t.Errorf("expected name order alpha,Beta,Zeta, got %v", names)
		}

		output.Reset()
		if err := run(t, runner, "playlist", "list", "--query", "ET"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(output.String(), "Zeta") || !strings.Contains(output.String(), "Beta") || strings.Contains(output.String(), "alpha") {
			t.Errorf("unexpected filtered output %q", output.String())
		}
	})

	t.Run("list rejects unknown sort key", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, nil)
		err := run(t, runner, "playlist", "list", "--sort", "mood")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("update sets only given fields", func(t *testing.T) {
		runner, store, _ := newTestRunner(t, nil)
		p, _ := store.CreatePlaylist(ctx, "Old", "keep me", "", false)

		if err := run(t, runner, "playlist", "update", p.ID, "--name", "New", "--public"); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		got, _ := store.Get(ctx, p.ID)
		if got.Name != "New" || got.Description != "keep me" || !got.IsPublic {
			t.Errorf("unexpected playlist after update: %+v", got)
		}
	})

	t.Run("update without flags is rejected", func(t *testing.T) {
		runner, store, _ := newTestRunner(t, nil)
		p, _ := store.CreatePlaylist(ctx, "Old", "", "", false)

		err := run(t, runner, "playlist", "update", p.ID)
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("delete unknown playlist", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, nil)
		err := run(t, runner, "playlist", "delete", "playlist_0")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("create without name", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, nil)
		err := run(t, runner, "playlist", "create")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("export writes a csv file", func(t *testing.T) {
		runner, store, _ := newTestRunner(t, nil)
		p, _ := store.CreatePlaylist(ctx, "Export Me", "", "", false)
		if _, err := store.AddTrackToPlaylist(ctx, p.ID, tu.SampleTrack("t1", 60000)); err != nil {
			t.Fatalf("failed to add track: %v", err)
		}

		path := filepath.Join(t.TempDir(), "out.csv")
		if err := run(t, runner, "playlist", "export", p.ID, "--format", "csv", "--output", path); err != nil {
			t.Fatalf("export failed: %v", err)
		}

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "Song t1") {
			t.Errorf("expected track in csv, got %q", content)
		}
	})
}

func TestPlaylistExportAll(t *testing.T) {
	ctx := context.Background()
	runner, store, output := newTestRunner(t, nil)
	for _, name := range []string{"One", "Two"} {
		p, _ := store.CreatePlaylist(ctx, name, "", "", false)
		store.AddTrackToPlaylist(ctx, p.ID, tu.SampleTrack(name, 1000))
	}

	dir := t.TempDir()
	if err := run(t, runner, "playlist", "export-all", "--format", "text", "--output-dir", dir); err != nil {
		t.Fatalf("export-all failed: %v", err)
	}

	for _, p := range store.List(ctx) {
		tu.AssertFileExists(t, filepath.Join(dir, p.ID+".txt"))
	}
	tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
	if !strings.Contains(output.String(), "Exported 2/2 playlists") {
		t.Errorf("unexpected output %q", output.String())
	}
}

func TestStatsAndReconcile(t *testing.T) {
	ctx := context.Background()
	runner, store, output := newTestRunner(t, nil)

	p, _ := store.CreatePlaylist(ctx, "Mix", "", "", false)
	store.AddTrackToPlaylist(ctx, p.ID, tu.SampleTrack("t1", 3_600_000))
	store.AddTrackToPlaylist(ctx, p.ID, tu.SampleTrack("t2", 1_500_000))
	store.RemoveTrackFromPlaylist(ctx, p.ID, "t2")

	if err := run(t, runner, "stats"); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(output.String(), "Duration:  1h 0m") {
		t.Errorf("unexpected stats output %q", output.String())
	}

	output.Reset()
	if err := run(t, runner, "reconcile", "--purge"); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !strings.Contains(output.String(), "Orphaned track records: 1") || !strings.Contains(output.String(), "Purged 1") {
		t.Errorf("unexpected reconcile output %q", output.String())
	}
	if _, err := store.Track(ctx, "t2"); err == nil {
		t.Error("expected orphan t2 to be purged")
	}
}

func TestCatalogCommands(t *testing.T) {
	ctx := context.Background()
	catalog := &tu.MockCatalog{Tracks: []models.CatalogTrack{
		{ID: "c1", Name: "Cumbia", Artists: []string{"A", "B"}, Album: "X", Images: []string{"http://img/c1"}, Duration: 200000},
	}}

	t.Run("without credentials the catalog is unavailable", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, nil)
		err := run(t, runner, "catalog", "recommend")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("recommend uses the genre flag", func(t *testing.T) {
		runner, _, output := newTestRunner(t, catalog)
		if err := run(t, runner, "catalog", "recommend", "--genre", "latin"); err != nil {
			t.Fatalf("recommend failed: %v", err)
		}
		if !strings.Contains(output.String(), "Cumbia - A, B [3:20]") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("search uses the configured limit", func(t *testing.T) {
		runner, _, output := newTestRunner(t, catalog)
		if err := run(t, runner, "--json", "catalog", "search", "cumbia"); err != nil {
			t.Fatalf("search failed: %v", err)
		}
		var got []models.CatalogTrack
		if err := json.Unmarshal(output.Bytes(), &got); err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if len(got) != 1 || got[0].ID != "c1" {
			t.Errorf("unexpected results %+v", got)
		}
	})

	t.Run("add looks the track up and caches it", func(t *testing.T) {
		runner, store, _ := newTestRunner(t, catalog)
		p, _ := store.CreatePlaylist(ctx, "Latin", "", "", false)

		if err := run(t, runner, "catalog", "add", p.ID, "c1"); err != nil {
			t.Fatalf("add failed: %v", err)
		}
		track, err := store.Track(ctx, "c1")
		if err != nil {
			t.Fatalf("expected cached track: %v", err)
		}
		if track.Artist != "A, B" || track.Image == nil || *track.Image != "http://img/c1" {
			t.Errorf("unexpected cached track %+v", track)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("setup config writes the example file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner, _, _ := newTestRunner(t, nil)
		runner.configPath = path

		if err := run(t, runner, "setup", "config"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected written config to parse: %v", err)
		}
	})

	t.Run("setup database runs and rolls back migrations", func(t *testing.T) {
		runner, _, output := newTestRunner(t, nil)

		if err := run(t, runner, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		tu.AssertFileExists(t, runner.config.Database.Path)
		if err := run(t, runner, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
		if !strings.Contains(output.String(), "Rolled back") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}
