package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cervantesaxel/musicflow/internal/formatter"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

const (
	defaultWorkers   = 5
	maxWorkers       = 10
	defaultRateLimit = 5.0
	manifestName     = "export_manifest.json"
)

// BulkExport exports the playlists in ids concurrently and writes a manifest summarizing the run.
//
// Each playlist is written under opts.OutputDir: markdown to {dir}/{id}/README.md, other formats to
// {dir}/{id}.{ext}. Unknown ids and write failures are recorded per playlist. Cancellation stops queueing new
// work; playlists never queued are not reported.
func BulkExport(
	ctx context.Context,
	src ExportSource,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: export source not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("musicflow_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkers
	}
	if opts.NumWorkers > maxWorkers {
		opts.NumWorkers = maxWorkers
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan playlistExportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, limiter, opts)
	}

	go func() {
		defer close(jobs)
		for i, playlistID := range ids {
			if ctx.Err() != nil {
				return
			}

			export, err := src.Export(ctx, playlistID)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   playlistID,
					PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
					Error:        fmt.Errorf("failed to load playlist: %w", err),
				}
				continue
			}

			sendProgress(prog, loadingPlaylistUpdate(i+1, len(ids), export.Playlist.Name))
			jobs <- playlistExportJob{playlistID: playlistID, export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.ErrorMessage = res.Error.Error()
		}
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, manifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	sendProgress(prog, manifestUpdate(manifestPath))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker exports playlists from the jobs channel until it is closed.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan playlistExportJob,
	results chan<- PlaylistExportResult,
	limiter *rate.Limiter,
	opts BulkExportOpts,
) {
	defer wg.Done()

	// Drain without work after cancellation so the producer never blocks.
	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- exportSinglePlaylist(ctx, job, limiter, opts)
	}
}

func exportSinglePlaylist(ctx context.Context, j playlistExportJob, limiter *rate.Limiter, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   j.playlistID,
		PlaylistName: j.export.Playlist.Name,
		Files:        []string{},
	}

	downloadCover := opts.DownloadCover && opts.Format == formatter.FormatMarkdown && j.export.Playlist.CoverImage != nil
	if downloadCover {
		if err := limiter.Wait(ctx); err != nil {
			result.Error = err
			return result
		}
	}

	out, err := formatter.WriteExport(ctx, j.export, opts.Format, formatter.ExportOptions{
		Path:          exportPath(opts, j.playlistID),
		DownloadCover: downloadCover,
		HTTPClient:    opts.HTTPClient,
	})
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = out.Files
	result.Warnings = out.Warnings
	result.Success = true
	return result
}

func exportPath(opts BulkExportOpts, playlistID string) string {
	switch opts.Format {
	case formatter.FormatMarkdown:
		return filepath.Join(opts.OutputDir, playlistID)
	case formatter.FormatCSV:
		return filepath.Join(opts.OutputDir, playlistID+".csv")
	case formatter.FormatText:
		return filepath.Join(opts.OutputDir, playlistID+".txt")
	default:
		return filepath.Join(opts.OutputDir, playlistID+".json")
	}
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
