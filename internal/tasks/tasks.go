package tasks

import (
	"context"
	"net/http"

	"github.com/cervantesaxel/musicflow/internal/formatter"
	"github.com/cervantesaxel/musicflow/internal/models"
)

// ExportSource resolves a playlist and its tracks. Satisfied by *library.Store.
type ExportSource interface {
	Export(ctx context.Context, id string) (*models.PlaylistExport, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format        formatter.Format // Export format
	OutputDir     string           // Base output directory (default: musicflow_export_{epoch})
	NumWorkers    int              // Concurrent workers (default: 5, max 10)
	DownloadCover bool             // Fetch cover images for markdown exports
	RateLimit     float64          // Cover downloads per second (default: 5)
	HTTPClient    *http.Client
}

// PlaylistExportResult is the outcome of exporting a single playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlistId"`
	PlaylistName string   `json:"playlistName"`
	Success      bool     `json:"success"`
	Files        []string `json:"files"`
	Warnings     []string `json:"warnings,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a [BulkExport] run.
type BulkExportResult struct {
	Format            formatter.Format       `json:"format"`
	TotalPlaylists    int                    `json:"totalPlaylists"`
	SuccessfulExports int                    `json:"successfulExports"`
	FailedExports     int                    `json:"failedExports"`
	OutputDirectory   string                 `json:"outputDirectory"`
	ManifestPath      string                 `json:"manifestPath"`
	Results           []PlaylistExportResult `json:"results"`
}

type playlistExportJob struct {
	playlistID string
	export     *models.PlaylistExport
}
