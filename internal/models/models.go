package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Track is the denormalized cache of a catalog item referenced by some playlist.
type Track struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Image      *string `json:"image"`
	Duration   int     `json:"duration"` // milliseconds
	PreviewURL *string `json:"preview_url"`
}

// Playlist is a named ordered collection of track references plus display metadata.
type Playlist struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CoverImage  *string   `json:"coverImage"`
	Tracks      []string  `json:"tracks"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MarshalJSON keeps the tracks field an array when the playlist is empty.
func (p Playlist) MarshalJSON() ([]byte, error) {
	type alias Playlist
	if p.Tracks == nil {
		p.Tracks = []string{}
	}
	return json.Marshal(alias(p))
}

// HasTrack reports whether trackID is referenced by the playlist.
func (p *Playlist) HasTrack(trackID string) bool {
	return p.IndexOfTrack(trackID) >= 0
}

// IndexOfTrack returns the position of trackID in the playlist or -1.
func (p *Playlist) IndexOfTrack(trackID string) int {
	for i, id := range p.Tracks {
		if id == trackID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers cannot mutate library state through it.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	c := *p
	c.Tracks = append([]string{}, p.Tracks...)
	if p.CoverImage != nil {
		img := *p.CoverImage
		c.CoverImage = &img
	}
	return &c
}

// Visibility returns "Public" or "Private".
func (p *Playlist) Visibility() string {
	if p.IsPublic {
		return "Public"
	}
	return "Private"
}

// Library is the persisted root: ordered playlists plus the track cache.
type Library struct {
	Playlists []*Playlist      `json:"playlists"`
	Tracks    map[string]Track `json:"tracks"`
}

// NewLibrary returns an empty library with non-nil collections.
func NewLibrary() *Library {
	return &Library{Playlists: []*Playlist{}, Tracks: map[string]Track{}}
}

// Normalize replaces nil collections and nil playlist entries left by decoding.
func (l *Library) Normalize() {
	if l.Tracks == nil {
		l.Tracks = map[string]Track{}
	}
	playlists := make([]*Playlist, 0, len(l.Playlists))
	for _, p := range l.Playlists {
		if p == nil {
			continue
		}
		if p.Tracks == nil {
			p.Tracks = []string{}
		}
		playlists = append(playlists, p)
	}
	l.Playlists = playlists
}

// IndexOf returns the position of the playlist with id or -1.
func (l *Library) IndexOf(id string) int {
	for i, p := range l.Playlists {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Playlist returns the playlist with id, or nil.
func (l *Library) Playlist(id string) *Playlist {
	if i := l.IndexOf(id); i >= 0 {
		return l.Playlists[i]
	}
	return nil
}

// PlaylistUpdate holds the fields merged by an update. Nil fields are left unchanged.
type PlaylistUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	IsPublic    *bool   `json:"isPublic,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u PlaylistUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Color == nil && u.IsPublic == nil
}

// Stats aggregates counts across the library.
//
// TrackCount counts references, not distinct tracks.
type Stats struct {
	PlaylistCount   int   `json:"playlistCount"`
	TrackCount      int   `json:"trackCount"`
	TotalDurationMs int64 `json:"totalDurationMs"`
}

// FormatTotalDuration renders the total as "<h>h <m>m", or "<m>m" under an hour.
func (s Stats) FormatTotalDuration() string {
	minutes := s.TotalDurationMs / 60000
	hours := minutes / 60
	minutes %= 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// SortKey selects the ordering used by playlist listings.
type SortKey string

const (
	SortByName       SortKey = "name"
	SortByCreatedAt  SortKey = "createdAt"
	SortByTrackCount SortKey = "trackCount"
)

// ParseSortKey maps user input to a [SortKey].
//
// Accepts the canonical names and the aliases "date" and "tracks", case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name":
		return SortByName, nil
	case "createdat", "created_at", "date":
		return SortByCreatedAt, nil
	case "trackcount", "track_count", "tracks":
		return SortByTrackCount, nil
	default:
		return "", fmt.Errorf("unknown sort key %q (want name, createdAt or trackCount)", s)
	}
}

// CatalogTrack is a track descriptor returned by the catalog provider.
type CatalogTrack struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	Images     []string `json:"images"`
	Duration   int      `json:"duration"` // milliseconds
	Popularity int      `json:"popularity"`
	PreviewURL string   `json:"preview_url,omitempty"`
}

// ToTrack converts the descriptor into the cached [Track] record.
func (c CatalogTrack) ToTrack() Track {
	t := Track{
		ID:       c.ID,
		Name:     c.Name,
		Artist:   strings.Join(c.Artists, ", "),
		Album:    c.Album,
		Duration: c.Duration,
	}
	if len(c.Images) > 0 && c.Images[0] != "" {
		img := c.Images[0]
		t.Image = &img
	}
	if c.PreviewURL != "" {
		preview := c.PreviewURL
		t.PreviewURL = &preview
	}
	return t
}

// DanglingRef is a playlist reference to a track missing from the cache.
type DanglingRef struct {
	PlaylistID string `json:"playlistId"`
	TrackID    string `json:"trackId"`
}

// ReconcileReport describes the referential state found by reconciliation.
type ReconcileReport struct {
	OrphanTracks []string      `json:"orphanTracks"`
	Dangling     []DanglingRef `json:"dangling"`
	Purged       int           `json:"purged"`
}

// PlaylistExport is a playlist with its resolved tracks in order.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}
