// Package models defines the value types of the MusicFlow library and their persisted JSON layout.
//
// The package contains two categories of types:
//
// 1. Persisted aggregate: the single record stored under the library key
//   - [Library] : Ordered playlists plus the denormalized track cache
//   - [Playlist] : Named, ordered collection of track references with display metadata
//   - [Track] : Cached catalog metadata keyed by catalog id
//
// 2. Derived types: values computed from or fed into the aggregate
//   - [PlaylistUpdate] : Optional field set merged by playlist updates
//   - [Stats] : Aggregate counts and durations
//   - [SortKey] : Ordering used by playlist listings
//   - [CatalogTrack] : Track descriptor returned by the catalog provider
//   - [ReconcileReport] : Orphans and dangling references found by reconciliation
//   - [PlaylistExport] : Playlist with its resolved tracks, used by exporters
//
// The Library owns every Playlist and Track. Neither has an identity outside it.
package models
