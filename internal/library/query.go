package library

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/cervantesaxel/musicflow/internal/models"
)

// Search returns playlists whose name or description contains query, case-insensitively, in insertion order.
// A blank query returns every playlist.
func (s *Store) Search(ctx context.Context, query string) []*models.Playlist {
	return SearchPlaylists(s.Load(ctx).Playlists, query)
}

// SearchPlaylists filters playlists by a case-insensitive substring of name or description.
func SearchPlaylists(playlists []*models.Playlist, query string) []*models.Playlist {
	query = strings.ToLower(strings.TrimSpace(query))

	out := make([]*models.Playlist, 0, len(playlists))
	for _, p := range playlists {
		if query == "" ||
			strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Sort orders playlists using the store's collation locale.
func (s *Store) Sort(playlists []*models.Playlist, key models.SortKey) []*models.Playlist {
	return SortWith(playlists, key, s.locale)
}

// Sort returns a new slice of playlists ordered by key.
//
// Names sort ascending with Spanish collation, creation time and track count sort descending. Ties keep their
// input order. An unknown key returns the input order.
func Sort(playlists []*models.Playlist, key models.SortKey) []*models.Playlist {
	return SortWith(playlists, key, language.Spanish)
}

// SortWith is [Sort] with an explicit collation locale for names.
func SortWith(playlists []*models.Playlist, key models.SortKey, locale language.Tag) []*models.Playlist {
	out := slices.Clone(playlists)

	switch key {
	case models.SortByName:
		c := collate.New(locale, collate.IgnoreCase)
		slices.SortStableFunc(out, func(a, b *models.Playlist) int {
			return c.CompareString(a.Name, b.Name)
		})
	case models.SortByCreatedAt:
		slices.SortStableFunc(out, func(a, b *models.Playlist) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case models.SortByTrackCount:
		slices.SortStableFunc(out, func(a, b *models.Playlist) int {
			return len(b.Tracks) - len(a.Tracks)
		})
	}
	return out
}

// Stats aggregates the persisted library.
func (s *Store) Stats(ctx context.Context) models.Stats {
	return AggregateStats(s.Load(ctx))
}

// AggregateStats counts playlists and track references and sums the durations of references found in the cache.
func AggregateStats(lib *models.Library) models.Stats {
	var stats models.Stats
	if lib == nil {
		return stats
	}

	stats.PlaylistCount = len(lib.Playlists)
	for _, p := range lib.Playlists {
		stats.TrackCount += len(p.Tracks)
		for _, id := range p.Tracks {
			if t, ok := lib.Tracks[id]; ok {
				stats.TotalDurationMs += int64(t.Duration)
			}
		}
	}
	return stats
}
