package ui

import (
	"github.com/cervantesaxel/musicflow/internal/models"
)

// libraryLoadedMsg carries the playlist listing and stats.
type libraryLoadedMsg struct {
	playlists []*models.Playlist
	stats     models.Stats
}

// tracksLoadedMsg carries a playlist with its resolved tracks.
type tracksLoadedMsg struct {
	export *models.PlaylistExport
	err    error
}

// mutationMsg reports the outcome of a store mutation.
type mutationMsg struct {
	notice string
	err    error
	// reloadTracks is the playlist to reopen after the mutation, empty to return to the listing.
	reloadTracks string
}
