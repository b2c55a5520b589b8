package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	ConfirmDeleteView
)

// Store is the subset of the library store the TUI uses.
type Store interface {
	List(ctx context.Context) []*models.Playlist
	Sort(playlists []*models.Playlist, key models.SortKey) []*models.Playlist
	Stats(ctx context.Context) models.Stats
	Export(ctx context.Context, id string) (*models.PlaylistExport, error)
	RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, id string) error
}

var sortOrder = []models.SortKey{models.SortByCreatedAt, models.SortByName, models.SortByTrackCount}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	store        Store
	logger       *log.Logger
	view         ViewState
	prevView     ViewState
	width        int
	height       int
	sortIdx      int
	stats        models.Stats
	playlistList list.Model
	trackList    list.Model
	selected     *models.PlaylistExport
	notice       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over store.
func NewModel(ctx context.Context, store Store, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Model{
		ctx:          ctx,
		store:        store,
		logger:       logger,
		view:         PlaylistListView,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		trackList:    list.New(nil, list.NewDefaultDelegate(), 0, 0),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init loads the playlist listing.
func (m *Model) Init() tea.Cmd {
	return m.loadLibrary()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-8)
		m.trackList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		}

	case libraryLoadedMsg:
		m.stats = msg.stats
		items := make([]list.Item, len(msg.playlists))
		for i, p := range msg.playlists {
			items[i] = playlistItem{playlist: p}
		}
		m.playlistList.SetItems(items)
		m.playlistList.Title = fmt.Sprintf("Playlists • %d playlists • %d tracks • %s • by %s",
			m.stats.PlaylistCount, m.stats.TrackCount, m.stats.FormatTotalDuration(), m.sortKey())
		return m, nil

	case tracksLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = PlaylistListView
			return m, m.loadLibrary()
		}
		m.selected = msg.export
		items := make([]list.Item, len(msg.export.Tracks))
		for i, t := range msg.export.Tracks {
			items[i] = trackItem{track: t}
		}
		m.trackList.SetItems(items)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.export.Playlist.Name)
		m.view = TrackListView
		return m, nil

	case mutationMsg:
		m.err = msg.err
		m.notice = msg.notice
		if msg.err != nil {
			m.logger.Error("library update failed", "error", msg.err)
		}
		if msg.reloadTracks != "" {
			return m, tea.Batch(m.loadTracks(msg.reloadTracks), m.loadLibrary())
		}
		m.view = PlaylistListView
		m.selected = nil
		return m, m.loadLibrary()
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case TrackListView:
		body = m.renderTrackList()
	case ConfirmDeleteView:
		body = m.renderConfirm()
	}

	switch {
	case m.err != nil:
		body += "\n" + styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	case m.notice != "":
		body += "\n" + styles.ok.Render(m.notice)
	}
	return body
}

func (m *Model) sortKey() models.SortKey {
	return sortOrder[m.sortIdx%len(sortOrder)]
}

// filtering reports whether the active list is capturing keystrokes for its filter.
func (m *Model) filtering(l list.Model) bool {
	return l.FilterState() == list.Filtering
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.filtering(m.playlistList) {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				m.clearStatus()
				return m, m.loadTracks(pl.playlist.ID)
			}
			return m, nil
		case key.Matches(msg, m.keys.sort):
			m.sortIdx++
			return m, m.loadLibrary()
		case key.Matches(msg, m.keys.delete):
			if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				m.clearStatus()
				m.selected = &models.PlaylistExport{Playlist: *pl.playlist}
				m.prevView = PlaylistListView
				m.view = ConfirmDeleteView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.filtering(m.trackList) {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.back):
			m.clearStatus()
			m.view = PlaylistListView
			m.selected = nil
			return m, nil
		case key.Matches(msg, m.keys.remove):
			if t, ok := m.trackList.SelectedItem().(trackItem); ok && m.selected != nil {
				return m, m.removeTrack(m.selected.Playlist.ID, t.track)
			}
			return m, nil
		case key.Matches(msg, m.keys.delete):
			if m.selected != nil {
				m.clearStatus()
				m.prevView = TrackListView
				m.view = ConfirmDeleteView
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		if m.selected == nil {
			m.view = PlaylistListView
			return m, nil
		}
		return m, m.deletePlaylist(m.selected.Playlist)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = m.prevView
		if m.view == PlaylistListView {
			m.selected = nil
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) clearStatus() {
	m.err = nil
	m.notice = ""
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) loadLibrary() tea.Cmd {
	sortKey := m.sortKey()
	return func() tea.Msg {
		playlists := m.store.Sort(m.store.List(m.ctx), sortKey)
		return libraryLoadedMsg{playlists: playlists, stats: m.store.Stats(m.ctx)}
	}
}

func (m *Model) loadTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		export, err := m.store.Export(m.ctx, playlistID)
		return tracksLoadedMsg{export: export, err: err}
	}
}

func (m *Model) removeTrack(playlistID string, track models.Track) tea.Cmd {
	return func() tea.Msg {
		_, err := m.store.RemoveTrackFromPlaylist(m.ctx, playlistID, track.ID)
		if err != nil {
			return mutationMsg{err: err, reloadTracks: playlistID}
		}
		return mutationMsg{notice: fmt.Sprintf("Removed '%s'", track.Name), reloadTracks: playlistID}
	}
}

func (m *Model) deletePlaylist(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		if err := m.store.DeletePlaylist(m.ctx, p.ID); err != nil {
			return mutationMsg{err: err}
		}
		return mutationMsg{notice: fmt.Sprintf("Deleted '%s'", p.Name)}
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.sort, m.keys.delete, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.remove, m.keys.delete, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	if m.selected == nil {
		return ""
	}
	p := m.selected.Playlist
	title := styles.title.Render(fmt.Sprintf("Delete playlist '%s'?", p.Name))
	info := fmt.Sprintf("\nTracks: %d\n%s\n", len(p.Tracks), styles.warn.Render("Cached track records are kept."))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}
