// Package ui implements an interactive terminal browser over the playlist library using bubbletea's Elm architecture.
//
// The TUI provides three views:
//  1. [PlaylistListView] : Browse playlists with library stats in the title; s cycles the sort order
//  2. [TrackListView] : Inspect a playlist's resolved tracks; x removes the selected track
//  3. [ConfirmDeleteView] : Confirm deleting the selected playlist (d, then y/n)
//
// The [Model] implements bubbletea's Init/Update/View pattern. Every mutation goes through the [Store], and the
// affected view is reloaded from the persisted library afterwards.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
