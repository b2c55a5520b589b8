// Package tasks runs long library operations with real-time progress reporting.
//
// # Bulk Export
//
// [BulkExport] writes many playlists to disk with a fixed pool of workers:
//
//  1. Playlists are loaded one at a time from an [ExportSource] and queued as jobs.
//  2. Workers render each job through [formatter.WriteExport] into its own path under the output directory.
//  3. A manifest (export_manifest.json) summarizes successes and failures.
//
// A failed playlist does not stop the run; it is recorded in the result.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with default, so a slow or absent
// reader never blocks the workers.
package tasks
