package library

import (
	"context"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/cervantesaxel/musicflow/internal/models"
	th "github.com/cervantesaxel/musicflow/internal/testing"
)

func ids(playlists []*models.Playlist) []string {
	out := make([]string, len(playlists))
	for i, p := range playlists {
		out[i] = p.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, nil)
	rock, _ := s.CreatePlaylist(ctx, "Rock Classics", "guitar heavy", "", false)
	chill, _ := s.CreatePlaylist(ctx, "Evening", "Chill ROCK ballads", "", false)
	jazz, _ := s.CreatePlaylist(ctx, "Jazz", "", "", false)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty query returns all", "", []string{rock.ID, chill.ID, jazz.ID}},
		{"blank query returns all", "   ", []string{rock.ID, chill.ID, jazz.ID}},
		{"matches name and description case-insensitively", "rock", []string{rock.ID, chill.ID}},
		{"matches description only", "ballads", []string{chill.ID}},
		{"no match", "polka", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(s.Search(ctx, tt.query))
			if !equalIDs(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSort(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	playlists := []*models.Playlist{
		{ID: "a", Name: "beta", Tracks: []string{"1", "2"}, CreatedAt: base},
		{ID: "b", Name: "Álbum", Tracks: []string{}, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "c", Name: "zeta", Tracks: []string{"1", "2", "3", "4", "5"}, CreatedAt: base.Add(time.Hour)},
		{ID: "d", Name: "Alpha", Tracks: []string{"9", "8"}, CreatedAt: base.Add(time.Hour)},
	}

	tests := []struct {
		key  models.SortKey
		want []string
	}{
		{models.SortByName, []string{"b", "d", "a", "c"}},
		{models.SortByCreatedAt, []string{"b", "c", "d", "a"}},
		{models.SortByTrackCount, []string{"c", "a", "d", "b"}},
		{models.SortKey("unknown"), []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := ids(Sort(playlists, tt.key))
			if !equalIDs(got, tt.want) {
				t.Errorf("Sort(%s) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}

	t.Run("track counts 2 0 5", func(t *testing.T) {
		in := []*models.Playlist{
			{ID: "two", Tracks: []string{"a", "b"}},
			{ID: "zero", Tracks: []string{}},
			{ID: "five", Tracks: []string{"a", "b", "c", "d", "e"}},
		}
		got := ids(Sort(in, models.SortByTrackCount))
		if !equalIDs(got, []string{"five", "two", "zero"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("input is not reordered", func(t *testing.T) {
		Sort(playlists, models.SortByName)
		if !equalIDs(ids(playlists), []string{"a", "b", "c", "d"}) {
			t.Errorf("input slice was modified: %v", ids(playlists))
		}
	})

	t.Run("store uses configured locale", func(t *testing.T) {
		s := New(nil, WithLocale(language.English))
		got := ids(s.Sort(playlists, models.SortByName))
		if !equalIDs(got, []string{"b", "d", "a", "c"}) {
			t.Errorf("got %v", got)
		}
	})
}

func TestAggregateStats(t *testing.T) {
	t.Run("counts references and skips missing tracks", func(t *testing.T) {
		lib := models.NewLibrary()
		lib.Playlists = []*models.Playlist{
			{ID: "p1", Tracks: []string{"t1", "t2", "missing1"}},
			{ID: "p2", Tracks: []string{"t1", "t2", "t3", "missing2", "t4"}},
		}
		for i, id := range []string{"t1", "t2", "t3", "t4"} {
			lib.Tracks[id] = th.SampleTrack(id, (i+1)*1000)
		}

		got := AggregateStats(lib)
		want := models.Stats{
			PlaylistCount:   2,
			TrackCount:      8,
			TotalDurationMs: (1000 + 2000) + (1000 + 2000 + 3000 + 4000),
		}
		if got != want {
			t.Errorf("AggregateStats() = %+v, want %+v", got, want)
		}
	})

	t.Run("empty and nil libraries", func(t *testing.T) {
		if got := AggregateStats(models.NewLibrary()); got != (models.Stats{}) {
			t.Errorf("expected zero stats, got %+v", got)
		}
		if got := AggregateStats(nil); got != (models.Stats{}) {
			t.Errorf("expected zero stats for nil, got %+v", got)
		}
	})
}
