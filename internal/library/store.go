// Package library implements the playlist library store.
//
// A [Store] owns the persisted [models.Library] aggregate: ordered playlists plus a denormalized cache of the
// tracks they reference, serialized as one JSON document under a single key of a [storage.Storage] backend.
// Every mutation is a full load-modify-save cycle, serialized within the process by a mutex.
//
// Track references are a soft invariant. Reads skip references whose track record is missing, and orphaned
// track records are kept until an explicit [Store.Reconcile] purge.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/text/language"

	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
	"github.com/cervantesaxel/musicflow/internal/storage"
)

// DefaultKey is the storage key the library is persisted under.
const DefaultKey = "musicflow_data"

const playlistIDPrefix = "playlist_"

// Store provides CRUD and query operations over the persisted library.
type Store struct {
	mu           sync.Mutex
	backend      storage.Storage
	key          string
	logger       *log.Logger
	now          func() time.Time
	locale       language.Tag
	defaultColor string
}

// Option configures a [Store].
type Option func(*Store)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocale sets the collation locale used when sorting by name.
func WithLocale(tag language.Tag) Option {
	return func(s *Store) { s.locale = tag }
}

// WithDefaultColor sets the color given to playlists created without one.
func WithDefaultColor(color string) Option {
	return func(s *Store) {
		if color != "" {
			s.defaultColor = color
		}
	}
}

// New returns a store persisting to backend.
func New(backend storage.Storage, opts ...Option) *Store {
	s := &Store{
		backend:      backend,
		key:          DefaultKey,
		logger:       shared.DiscardLogger(),
		now:          time.Now,
		locale:       language.Spanish,
		defaultColor: shared.DefaultColor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted library.
//
// A missing key, a backend read error, or malformed data all produce an empty library; failures are logged, never
// returned.
func (s *Store) Load(ctx context.Context) *models.Library {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("library read failed, starting empty", "key", s.key, "error", err)
		}
		return models.NewLibrary()
	}
	return s.decode(data)
}

// loadForWrite reads the library ahead of a mutation. Unlike [Store.Load], a backend read error other than a
// missing key is returned wrapped in [shared.ErrPersistence] so the caller never overwrites data it could not read.
func (s *Store) loadForWrite(ctx context.Context) (*models.Library, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return models.NewLibrary(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrPersistence, err)
	}
	return s.decode(data), nil
}

// decode parses persisted data, falling back to an empty library when it is malformed.
func (s *Store) decode(data []byte) *models.Library {
	var lib models.Library
	if err := json.Unmarshal(data, &lib); err != nil {
		s.logger.Warn("library data malformed, starting empty", "key", s.key, "error", err)
		return models.NewLibrary()
	}
	lib.Normalize()
	return &lib
}

// Save serializes and persists lib. Backend failures are wrapped in [shared.ErrPersistence].
func (s *Store) Save(ctx context.Context, lib *models.Library) error {
	if lib == nil {
		lib = models.NewLibrary()
	}
	lib.Normalize()

	data, err := json.Marshal(lib)
	if err != nil {
		return fmt.Errorf("%w: failed to encode library: %v", shared.ErrPersistence, err)
	}

	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrPersistence, err)
	}
	return nil
}

// mutate runs fn over a freshly loaded library and saves the result when fn reports a change.
// A failed read aborts before fn runs.
func (s *Store) mutate(ctx context.Context, fn func(lib *models.Library) (changed bool, err error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, err := s.loadForWrite(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(lib)
	if err != nil || !changed {
		return err
	}
	return s.Save(ctx, lib)
}

// touch sets updatedAt to now, never earlier than createdAt.
func (s *Store) touch(p *models.Playlist) {
	now := s.now().UTC()
	if now.Before(p.CreatedAt) {
		now = p.CreatedAt
	}
	p.UpdatedAt = now
}

// newPlaylistID returns "playlist_<unix-millis>", bumping the millis until unused.
func newPlaylistID(lib *models.Library, now time.Time) string {
	ms := now.UnixMilli()
	for {
		id := playlistIDPrefix + strconv.FormatInt(ms, 10)
		if lib.IndexOf(id) < 0 {
			return id
		}
		ms++
	}
}

func (s *Store) validateColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return s.defaultColor, nil
	}
	if !shared.IsHexColor(color) {
		return "", fmt.Errorf("%w: color %q is not #rrggbb", shared.ErrValidation, color)
	}
	return color, nil
}

// CreatePlaylist creates and persists an empty playlist.
//
// Fails with [shared.ErrValidation] when the trimmed name is empty or color is malformed.
func (s *Store) CreatePlaylist(ctx context.Context, name, description, color string, isPublic bool) (*models.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}
	color, err := s.validateColor(color)
	if err != nil {
		return nil, err
	}

	var created *models.Playlist
	err = s.mutate(ctx, func(lib *models.Library) (bool, error) {
		now := s.now().UTC()
		created = &models.Playlist{
			ID:          newPlaylistID(lib, now),
			Name:        name,
			Description: strings.TrimSpace(description),
			Color:       color,
			Tracks:      []string{},
			IsPublic:    isPublic,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		lib.Playlists = append(lib.Playlists, created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// UpdatePlaylist merges the non-nil fields of update into the playlist and bumps updatedAt.
func (s *Store) UpdatePlaylist(ctx context.Context, id string, update models.PlaylistUpdate) (*models.Playlist, error) {
	var name, color string
	if update.Name != nil {
		if name = strings.TrimSpace(*update.Name); name == "" {
			return nil, fmt.Errorf("%w: playlist name cannot be blank", shared.ErrValidation)
		}
	}
	if update.Color != nil {
		c, err := s.validateColor(*update.Color)
		if err != nil {
			return nil, err
		}
		color = c
	}

	var updated *models.Playlist
	err := s.mutate(ctx, func(lib *models.Library) (bool, error) {
		p := lib.Playlist(id)
		if p == nil {
			return false, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}

		if update.Name != nil {
			p.Name = name
		}
		if update.Description != nil {
			p.Description = strings.TrimSpace(*update.Description)
		}
		if update.Color != nil {
			p.Color = color
		}
		if update.IsPublic != nil {
			p.IsPublic = *update.IsPublic
		}
		s.touch(p)

		updated = p
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// DeletePlaylist removes the playlist. Track records are not cascaded.
//
// Deleting an absent id, including a second delete, fails with [shared.ErrNotFound].
func (s *Store) DeletePlaylist(ctx context.Context, id string) error {
	return s.mutate(ctx, func(lib *models.Library) (bool, error) {
		i := lib.IndexOf(id)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
		}
		lib.Playlists = append(lib.Playlists[:i], lib.Playlists[i+1:]...)
		return true, nil
	})
}

// AddTrackToPlaylist appends track to the playlist and upserts its cached record.
//
// The cover image is taken from the track only when the playlist was empty.
func (s *Store) AddTrackToPlaylist(ctx context.Context, playlistID string, track models.Track) (*models.Playlist, error) {
	if strings.TrimSpace(track.ID) == "" {
		return nil, fmt.Errorf("%w: track id is required", shared.ErrValidation)
	}
	if track.Duration < 0 {
		return nil, fmt.Errorf("%w: track duration cannot be negative", shared.ErrValidation)
	}

	var updated *models.Playlist
	err := s.mutate(ctx, func(lib *models.Library) (bool, error) {
		p := lib.Playlist(playlistID)
		if p == nil {
			return false, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		if p.HasTrack(track.ID) {
			return false, fmt.Errorf("%w: %s", shared.ErrTrackAlreadyInPlaylist, track.ID)
		}

		if len(p.Tracks) == 0 {
			p.CoverImage = copyString(track.Image)
		}
		p.Tracks = append(p.Tracks, track.ID)
		lib.Tracks[track.ID] = track
		s.touch(p)

		updated = p
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// RemoveTrackFromPlaylist removes trackID from the playlist.
//
// Removing an id the playlist does not hold is a no-op and writes nothing. Removing the first track recomputes the
// cover from the new first track; emptying the playlist clears it.
func (s *Store) RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) (*models.Playlist, error) {
	var updated *models.Playlist
	err := s.mutate(ctx, func(lib *models.Library) (bool, error) {
		p := lib.Playlist(playlistID)
		if p == nil {
			return false, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		updated = p

		i := p.IndexOfTrack(trackID)
		if i < 0 {
			return false, nil
		}
		p.Tracks = append(p.Tracks[:i], p.Tracks[i+1:]...)

		switch {
		case len(p.Tracks) == 0:
			p.CoverImage = nil
		case i == 0:
			p.CoverImage = nil
			if first, ok := lib.Tracks[p.Tracks[0]]; ok {
				p.CoverImage = copyString(first.Image)
			}
		}
		s.touch(p)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Get returns a copy of the playlist with id.
func (s *Store) Get(ctx context.Context, id string) (*models.Playlist, error) {
	p := s.Load(ctx).Playlist(id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p.Clone(), nil
}

// List returns every playlist in insertion order.
func (s *Store) List(ctx context.Context) []*models.Playlist {
	return clonePlaylists(s.Load(ctx).Playlists)
}

// PlaylistTracks resolves the playlist's references in order, skipping ids missing from the track cache.
func (s *Store) PlaylistTracks(ctx context.Context, id string) ([]models.Track, error) {
	lib := s.Load(ctx)
	p := lib.Playlist(id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return resolveTracks(lib, p), nil
}

// Export returns the playlist with its resolved tracks.
func (s *Store) Export(ctx context.Context, id string) (*models.PlaylistExport, error) {
	lib := s.Load(ctx)
	p := lib.Playlist(id)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return &models.PlaylistExport{Playlist: *p.Clone(), Tracks: resolveTracks(lib, p)}, nil
}

// Track returns the cached record for trackID.
func (s *Store) Track(ctx context.Context, trackID string) (models.Track, error) {
	t, ok := s.Load(ctx).Tracks[trackID]
	if !ok {
		return models.Track{}, fmt.Errorf("track %w: %s", shared.ErrNotFound, trackID)
	}
	return t, nil
}

func resolveTracks(lib *models.Library, p *models.Playlist) []models.Track {
	tracks := make([]models.Track, 0, len(p.Tracks))
	for _, id := range p.Tracks {
		if t, ok := lib.Tracks[id]; ok {
			tracks = append(tracks, t)
		}
	}
	return tracks
}

func clonePlaylists(playlists []*models.Playlist) []*models.Playlist {
	out := make([]*models.Playlist, len(playlists))
	for i, p := range playlists {
		out[i] = p.Clone()
	}
	return out
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
