package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/cervantesaxel/musicflow/internal/formatter"
	"github.com/cervantesaxel/musicflow/internal/library"
	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/services"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

// TokenHandler serves the token-exchange proxy and health check.
type TokenHandler struct {
	tokens services.TokenProvider
	now    func() time.Time
	logger *log.Logger
}

// Mount implements [Handler].
func (h *TokenHandler) Mount(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/token", h.token)
}

func (h *TokenHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TokenHandler) token(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog credentials are not configured")
		return
	}

	tok, err := h.tokens.Token(r.Context())
	if err != nil {
		h.logger.Error("token exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to obtain access token")
		return
	}

	writeJSON(w, http.StatusOK, services.NewTokenResponse(tok, h.now()))
}

// LibraryHandler serves the /api routes.
type LibraryHandler struct {
	store   *library.Store
	catalog services.Catalog
	logger  *log.Logger
}

// Mount implements [Handler].
func (h *LibraryHandler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.stats)
		r.Get("/recommendations", h.recommendations)

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", h.listPlaylists)
			r.Post("/", h.createPlaylist)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getPlaylist)
				r.Patch("/", h.updatePlaylist)
				r.Delete("/", h.deletePlaylist)
				r.Post("/tracks", h.addTrack)
				r.Delete("/tracks/{trackID}", h.removeTrack)
			})
		})
	})
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	IsPublic    bool   `json:"isPublic"`
}

// playlistDetail is a playlist with its resolved tracks.
type playlistDetail struct {
	Playlist *models.Playlist `json:"playlist"`
	Tracks   []models.Track   `json:"tracks"`
	CoverURL string           `json:"coverUrl"`
}

func (h *LibraryHandler) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists := h.store.Search(r.Context(), r.URL.Query().Get("q"))

	if raw := r.URL.Query().Get("sort"); raw != "" {
		key, err := models.ParseSortKey(raw)
		if err != nil {
			respondError(w, h.logger, fmt.Errorf("%w: %v", shared.ErrValidation, err))
			return
		}
		playlists = h.store.Sort(playlists, key)
	}

	writeJSON(w, http.StatusOK, playlists)
}

func (h *LibraryHandler) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	p, err := h.store.CreatePlaylist(r.Context(), req.Name, req.Description, req.Color, req.IsPublic)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *LibraryHandler) getPlaylist(w http.ResponseWriter, r *http.Request) {
	export, err := h.store.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, playlistDetail{
		Playlist: &export.Playlist,
		Tracks:   export.Tracks,
		CoverURL: formatter.GenerateCoverURL(&export.Playlist),
	})
}

func (h *LibraryHandler) updatePlaylist(w http.ResponseWriter, r *http.Request) {
	var update models.PlaylistUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondError(w, h.logger, err)
		return
	}

	p, err := h.store.UpdatePlaylist(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *LibraryHandler) deletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePlaylist(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addTrack accepts a full track record, or a bare {"id": ...} that is resolved through the catalog.
func (h *LibraryHandler) addTrack(w http.ResponseWriter, r *http.Request) {
	var track models.Track
	if err := decodeJSON(w, r, &track); err != nil {
		respondError(w, h.logger, err)
		return
	}

	if strings.TrimSpace(track.ID) != "" && track.Name == "" {
		if h.catalog == nil {
			respondError(w, h.logger, fmt.Errorf("%w: catalog is disabled, send the full track", shared.ErrServiceUnavailable))
			return
		}
		found, err := h.catalog.Lookup(r.Context(), track.ID)
		if err != nil {
			respondError(w, h.logger, err)
			return
		}
		track = found.ToTrack()
	}

	p, err := h.store.AddTrackToPlaylist(r.Context(), chi.URLParam(r, "id"), track)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *LibraryHandler) removeTrack(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.RemoveTrackFromPlaylist(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "trackID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type statsResponse struct {
	models.Stats
	TotalDuration string `json:"totalDuration"`
}

func (h *LibraryHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats := h.store.Stats(r.Context())
	writeJSON(w, http.StatusOK, statsResponse{Stats: stats, TotalDuration: stats.FormatTotalDuration()})
}

func (h *LibraryHandler) recommendations(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		respondError(w, h.logger, fmt.Errorf("%w: catalog credentials are not configured", shared.ErrServiceUnavailable))
		return
	}

	tracks, err := h.catalog.Recommend(r.Context(), r.URL.Query().Get("genre"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}
