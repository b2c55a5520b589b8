// package formatter exports playlists to CSV, Markdown, JSON and plain text and renders human-readable values
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/cervantesaxel/musicflow/internal/models"
	"github.com/cervantesaxel/musicflow/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatText     Format = "text"
)

// ParseFormat maps user input to a [Format]. "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "text", "txt", "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// FormatDuration renders milliseconds as m:ss.
func FormatDuration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatRelative renders t relative to now, e.g. "3 days ago".
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// GenerateCoverURL returns the cached cover image or a placeholder built from the playlist color and initial.
func GenerateCoverURL(p *models.Playlist) string {
	if p.CoverImage != nil && *p.CoverImage != "" {
		return *p.CoverImage
	}

	color := p.Color
	if color == "" {
		color = shared.DefaultColor
	}

	initial := "?"
	if r, _ := utf8.DecodeRuneInString(p.Name); r != utf8.RuneError {
		initial = string(unicode.ToUpper(r))
	}

	return fmt.Sprintf("https://via.placeholder.com/300x300/%s/ffffff?text=%s",
		strings.TrimPrefix(color, "#"), url.QueryEscape(initial))
}

// ExportToCSV converts a PlaylistExport to CSV with columns: ID, Name, Artist, Album, Duration, DurationMs, PreviewURL
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artist", "Album", "Duration", "DurationMs", "PreviewURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		preview := ""
		if track.PreviewURL != nil {
			preview = *track.PreviewURL
		}
		record := []string{
			track.ID,
			track.Name,
			track.Artist,
			track.Album,
			FormatDuration(track.Duration),
			strconv.Itoa(track.Duration),
			preview,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a PlaylistExport to Markdown. The cover line is omitted when coverRef is empty.
func ExportToMarkdown(export *models.PlaylistExport, coverRef string) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)

	if coverRef != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", coverRef)
	}

	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Duration**: %s\n", totalDuration(export.Tracks))
	fmt.Fprintf(&buf, "**Visibility**: %s\n\n", p.Visibility())

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Name, albumPart, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d (%s)\n\n", len(export.Tracks), totalDuration(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, track.Name, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the playlist and its resolved tracks as indented JSON
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	if export.Tracks == nil {
		export = &models.PlaylistExport{Playlist: export.Playlist, Tracks: []models.Track{}}
	}
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export: %w", err)
	}
	return append(data, '\n'), nil
}

func totalDuration(tracks []models.Track) string {
	var ms int64
	for _, t := range tracks {
		ms += int64(t.Duration)
	}
	return models.Stats{TotalDurationMs: ms}.FormatTotalDuration()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, imageURL string) ([]byte, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ExportResult lists the files written by [WriteExport]
type ExportResult struct {
	Format     Format
	Files      []string
	CoverImage string
	Warnings   []string
}

// ExportOptions controls [WriteExport]
type ExportOptions struct {
	// Path is the output file, or the output directory for Markdown. Defaults derive from the playlist ID.
	Path string
	// DownloadCover fetches the cached cover image next to a Markdown export.
	DownloadCover bool
	HTTPClient    *http.Client
}

// WriteExport writes export in format.
//
// Markdown creates {dir}/README.md and, when requested and available, {dir}/cover.jpg. Other formats write a single
// {playlist.ID}.{ext} file unless a path is given. A failed cover download is reported as a warning.
func WriteExport(ctx context.Context, export *models.PlaylistExport, format Format, opts ExportOptions) (*ExportResult, error) {
	result := &ExportResult{Format: format, Files: []string{}}

	if format == FormatMarkdown {
		return writeMarkdownExport(ctx, export, opts, result)
	}

	var (
		data []byte
		ext  string
		err  error
	)
	switch format {
	case FormatCSV:
		data, err = ExportToCSV(export)
		ext = "csv"
	case FormatJSON:
		data, err = ExportToJSON(export)
		ext = "json"
	case FormatText:
		data, err = ExportToText(export)
		ext = "txt"
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", format, err)
	}

	path := opts.Path
	if path == "" {
		path = fmt.Sprintf("%s.%s", export.Playlist.ID, ext)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", format, err)
	}

	result.Files = append(result.Files, path)
	return result, nil
}

func writeMarkdownExport(ctx context.Context, export *models.PlaylistExport, opts ExportOptions, result *ExportResult) (*ExportResult, error) {
	outputDir := opts.Path
	if outputDir == "" {
		outputDir = export.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	coverRef := GenerateCoverURL(&export.Playlist)
	if opts.DownloadCover && export.Playlist.CoverImage != nil {
		imageData, err := DownloadImage(ctx, opts.HTTPClient, *export.Playlist.CoverImage)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("failed to download cover image: %v", err))
		} else {
			coverPath := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(coverPath, imageData, 0644); err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("failed to save cover image: %v", err))
			} else {
				coverRef = "cover.jpg"
				result.CoverImage = coverPath
				result.Files = append(result.Files, coverPath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverRef)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}
